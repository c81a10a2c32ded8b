// Package remote implements domain.RemoteRepository on the hosted PostgreSQL
// database using pgx. Local entry ids are stored in a client_id column so
// deletes and pulls map rows back to local entries without rewriting ids.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"healthlog/internal/domain"
)

// PgConnection is the subset of *pgxpool.Pool the repository needs.
type PgConnection interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the pgx-backed remote repository.
type Repository struct {
	conn  PgConnection
	close func()
}

var _ domain.RemoteRepository = (*Repository)(nil)

// Open connects a pool to connString and pings it.
func Open(ctx context.Context, connString string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("remote: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("remote: ping: %w", err)
	}
	return &Repository{conn: pool, close: pool.Close}, nil
}

// NewWithConn wraps an existing connection.
func NewWithConn(conn PgConnection) *Repository {
	return &Repository{conn: conn}
}

// Close releases the pool opened by Open.
func (r *Repository) Close() {
	if r.close != nil {
		r.close()
	}
}

// settingsImages is the JSON shape of the images column.
type settingsImages struct {
	BackgroundImage domain.ImageSetting `json:"backgroundImage"`
	HeroImage       domain.ImageSetting `json:"heroImage"`
	CardImage       domain.ImageSetting `json:"cardImage"`
}

const insertDefaultSettings = `INSERT INTO user_settings (user_id, units, name, theme, images) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (user_id) DO NOTHING;`

const selectSettings = `SELECT units, name, profile_picture, theme, images FROM user_settings WHERE user_id = $1;`

// FetchSettings returns the user's settings, inserting the defaults first
// when the user has no row yet.
func (r *Repository) FetchSettings(ctx context.Context, userID uuid.UUID) (*domain.Settings, error) {
	def := domain.DefaultSettings()
	theme, images, err := encodeSettings(def)
	if err != nil {
		return nil, err
	}
	if _, err := r.conn.Exec(ctx, insertDefaultSettings, userID, def.Units, def.Name, theme, images); err != nil {
		return nil, fmt.Errorf("create default %s: %w", domain.CollectionSettings, err)
	}

	var (
		s         = domain.DefaultSettings()
		pic       *string
		rawTheme  []byte
		rawImages []byte
	)
	row := r.conn.QueryRow(ctx, selectSettings, userID)
	if err := row.Scan(&s.Units, &s.Name, &pic, &rawTheme, &rawImages); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", domain.CollectionSettings, err)
	}
	s.ProfilePicture = pic
	if len(rawTheme) > 0 {
		if err := json.Unmarshal(rawTheme, &s.Theme); err != nil {
			return nil, fmt.Errorf("decode theme: %w", err)
		}
	}
	if len(rawImages) > 0 {
		imgs := settingsImages{BackgroundImage: s.BackgroundImage, HeroImage: s.HeroImage, CardImage: s.CardImage}
		if err := json.Unmarshal(rawImages, &imgs); err != nil {
			return nil, fmt.Errorf("decode images: %w", err)
		}
		s.BackgroundImage, s.HeroImage, s.CardImage = imgs.BackgroundImage, imgs.HeroImage, imgs.CardImage
	}
	return &s, nil
}

const upsertSettings = `INSERT INTO user_settings (user_id, units, name, profile_picture, theme, images, updated_at) VALUES ($1, $2, $3, $4, $5, $6, NOW())
ON CONFLICT (user_id) DO UPDATE SET units = EXCLUDED.units, name = EXCLUDED.name, profile_picture = EXCLUDED.profile_picture, theme = EXCLUDED.theme, images = EXCLUDED.images, updated_at = NOW();`

// UpsertSettings stores s as the user's settings.
func (r *Repository) UpsertSettings(ctx context.Context, userID uuid.UUID, s domain.Settings) error {
	theme, images, err := encodeSettings(s)
	if err != nil {
		return err
	}
	if _, err := r.conn.Exec(ctx, upsertSettings, userID, s.Units, s.Name, s.ProfilePicture, theme, images); err != nil {
		return fmt.Errorf("upsert %s: %w", domain.CollectionSettings, err)
	}
	return nil
}

func encodeSettings(s domain.Settings) (theme, images []byte, err error) {
	theme, err = json.Marshal(s.Theme)
	if err != nil {
		return nil, nil, fmt.Errorf("encode theme: %w", err)
	}
	images, err = json.Marshal(settingsImages{BackgroundImage: s.BackgroundImage, HeroImage: s.HeroImage, CardImage: s.CardImage})
	if err != nil {
		return nil, nil, fmt.Errorf("encode images: %w", err)
	}
	return theme, images, nil
}

const insertDefaultConnection = `INSERT INTO health_connections (user_id, status, permissions) VALUES ($1, $2, $3) ON CONFLICT (user_id) DO NOTHING;`

const selectConnection = `SELECT status, last_sync_at, permissions FROM health_connections WHERE user_id = $1;`

// FetchHealthConnection returns the user's connection, inserting a
// disconnected one first when the user has no row yet.
func (r *Repository) FetchHealthConnection(ctx context.Context, userID uuid.UUID) (*domain.HealthConnection, error) {
	perms, err := json.Marshal(domain.DefaultPermissions())
	if err != nil {
		return nil, err
	}
	if _, err := r.conn.Exec(ctx, insertDefaultConnection, userID, domain.StatusDisconnected, perms); err != nil {
		return nil, fmt.Errorf("create default %s: %w", domain.CollectionHealthConnections, err)
	}

	var (
		c        domain.HealthConnection
		rawPerms []byte
	)
	row := r.conn.QueryRow(ctx, selectConnection, userID)
	if err := row.Scan(&c.Status, &c.LastSyncAt, &rawPerms); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", domain.CollectionHealthConnections, err)
	}
	c.Permissions = []domain.Permission{}
	if len(rawPerms) > 0 {
		if err := json.Unmarshal(rawPerms, &c.Permissions); err != nil {
			return nil, fmt.Errorf("decode permissions: %w", err)
		}
	}
	return &c, nil
}

const upsertConnection = `INSERT INTO health_connections (user_id, status, last_sync_at, permissions) VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE SET status = EXCLUDED.status, last_sync_at = EXCLUDED.last_sync_at, permissions = EXCLUDED.permissions;`

// UpdateHealthConnection stores c as the user's connection.
func (r *Repository) UpdateHealthConnection(ctx context.Context, userID uuid.UUID, c domain.HealthConnection) error {
	perms := c.Permissions
	if perms == nil {
		perms = []domain.Permission{}
	}
	raw, err := json.Marshal(perms)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}
	if _, err := r.conn.Exec(ctx, upsertConnection, userID, c.Status, c.LastSyncAt, raw); err != nil {
		return fmt.Errorf("update %s: %w", domain.CollectionHealthConnections, err)
	}
	return nil
}

var purgeQueries = map[domain.Collection]string{
	domain.CollectionSettings:          `DELETE FROM user_settings WHERE user_id = $1;`,
	domain.CollectionWeightLogs:        `DELETE FROM weight_logs WHERE user_id = $1;`,
	domain.CollectionMoodLogs:          `DELETE FROM mood_logs WHERE user_id = $1;`,
	domain.CollectionNutritionNotes:    `DELETE FROM nutrition_notes WHERE user_id = $1;`,
	domain.CollectionHealthConnections: `DELETE FROM health_connections WHERE user_id = $1;`,
}

// ErrUnknownCollection is returned by Purge for a collection it does not own.
var ErrUnknownCollection = errors.New("unknown collection")

// Purge deletes every row the user owns in c.
func (r *Repository) Purge(ctx context.Context, userID uuid.UUID, c domain.Collection) error {
	q, ok := purgeQueries[c]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}
	if _, err := r.conn.Exec(ctx, q, userID); err != nil {
		return fmt.Errorf("purge %s: %w", c, err)
	}
	return nil
}
