package domain

import (
	"time"

	"github.com/google/uuid"
)

// Connection statuses.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// Permission is a single data-type grant on the health connection.
type Permission struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// HealthConnection describes the (simulated) link to an external health
// data source.
type HealthConnection struct {
	Status      string       `json:"status"`
	LastSyncAt  *time.Time   `json:"lastSyncAt"`
	Permissions []Permission `json:"permissions"`
}

// Connected reports whether the connection is in the connected state.
func (c HealthConnection) Connected() bool {
	return c.Status == StatusConnected
}

// Theme is the seven-color palette applied to the UI.
type Theme struct {
	PrimaryColor   string `json:"primaryColor" validate:"omitempty,hexcolor"`
	PrimaryDark    string `json:"primaryDark" validate:"omitempty,hexcolor"`
	SecondaryColor string `json:"secondaryColor" validate:"omitempty,hexcolor"`
	AccentCoral    string `json:"accentCoral" validate:"omitempty,hexcolor"`
	Beige100       string `json:"beige100" validate:"omitempty,hexcolor"`
	Beige200       string `json:"beige200" validate:"omitempty,hexcolor"`
	Beige300       string `json:"beige300" validate:"omitempty,hexcolor"`
}

// ImageSetting configures one decorative image slot.
type ImageSetting struct {
	URL      string  `json:"url"`
	Opacity  float64 `json:"opacity" validate:"gte=0,lte=1"`
	Fit      string  `json:"fit" validate:"oneof=cover contain auto"`
	Position string  `json:"position" validate:"oneof=center top bottom left right"`
	Enabled  bool    `json:"enabled"`
}

// Settings holds user preferences. Units only affect display; weights are
// always stored in kilograms.
type Settings struct {
	Units           string       `json:"units"`
	Name            string       `json:"name"`
	ProfilePicture  *string      `json:"profilePicture"`
	Theme           Theme        `json:"theme"`
	BackgroundImage ImageSetting `json:"backgroundImage"`
	HeroImage       ImageSetting `json:"heroImage"`
	CardImage       ImageSetting `json:"cardImage"`
}

// SettingsPatch is a partial settings update. Nil fields are left as they are.
type SettingsPatch struct {
	Units           *string       `json:"units,omitempty" validate:"omitempty,oneof=kg lb"`
	Name            *string       `json:"name,omitempty" validate:"omitempty,max=120"`
	ProfilePicture  *string       `json:"profilePicture,omitempty" validate:"omitempty,datauri"`
	Theme           *Theme        `json:"theme,omitempty"`
	BackgroundImage *ImageSetting `json:"backgroundImage,omitempty"`
	HeroImage       *ImageSetting `json:"heroImage,omitempty"`
	CardImage       *ImageSetting `json:"cardImage,omitempty"`
}

// Apply shallow-merges p into s and returns the result.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Units != nil {
		s.Units = *p.Units
	}
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.ProfilePicture != nil {
		pic := *p.ProfilePicture
		s.ProfilePicture = &pic
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.BackgroundImage != nil {
		s.BackgroundImage = *p.BackgroundImage
	}
	if p.HeroImage != nil {
		s.HeroImage = *p.HeroImage
	}
	if p.CardImage != nil {
		s.CardImage = *p.CardImage
	}
	return s
}

// State is the whole local state tree. A State value handed out by the store
// is a read-only snapshot: callers must not modify its slices.
type State struct {
	Settings         Settings         `json:"settings"`
	WeightEntries    []WeightEntry    `json:"weightEntries"`
	MoodEntries      []MoodEntry      `json:"moodEntries"`
	NutritionEntries []NutritionNote  `json:"nutritionEntries"`
	HealthConnection HealthConnection `json:"healthConnection"`
	// Unsynced lists entries whose remote delivery failed permanently.
	Unsynced []EntryRef `json:"unsynced,omitempty"`
	// Tombstones lists deleted entries whose remote delete failed.
	Tombstones []EntryRef `json:"tombstones,omitempty"`
	// Owner is the account whose pending refs this tree holds. Nil until a
	// signed-in user claims the tree.
	Owner uuid.UUID `json:"owner,omitzero"`
}

// DefaultTheme is the palette new users start with.
func DefaultTheme() Theme {
	return Theme{
		PrimaryColor:   "#2D5F4F",
		PrimaryDark:    "#1F4438",
		SecondaryColor: "#E8A87C",
		AccentCoral:    "#F4A896",
		Beige100:       "#FBF8F3",
		Beige200:       "#F5E6D3",
		Beige300:       "#E8D4BC",
	}
}

func defaultImage() ImageSetting {
	return ImageSetting{Opacity: 1, Fit: "cover", Position: "center"}
}

// DefaultSettings returns the settings used before anything is configured.
func DefaultSettings() Settings {
	return Settings{
		Units:           "kg",
		Name:            "Health Tracker User",
		Theme:           DefaultTheme(),
		BackgroundImage: defaultImage(),
		HeroImage:       defaultImage(),
		CardImage:       defaultImage(),
	}
}

// DefaultPermissions returns the permission list of a fresh connection.
func DefaultPermissions() []Permission {
	return []Permission{
		{Name: "Weight"},
		{Name: "Steps"},
		{Name: "Sleep"},
	}
}

// DefaultState is the empty snapshot: no entries, default settings and a
// disconnected health connection.
func DefaultState() State {
	return State{
		Settings:         DefaultSettings(),
		WeightEntries:    []WeightEntry{},
		MoodEntries:      []MoodEntry{},
		NutritionEntries: []NutritionNote{},
		HealthConnection: HealthConnection{
			Status:      StatusDisconnected,
			Permissions: DefaultPermissions(),
		},
	}
}

// Normalize fills nil lists so a snapshot decoded from older or partial
// JSON behaves like DefaultState.
func (s State) Normalize() State {
	if s.WeightEntries == nil {
		s.WeightEntries = []WeightEntry{}
	}
	if s.MoodEntries == nil {
		s.MoodEntries = []MoodEntry{}
	}
	if s.NutritionEntries == nil {
		s.NutritionEntries = []NutritionNote{}
	}
	if s.HealthConnection.Status == "" {
		s.HealthConnection.Status = StatusDisconnected
	}
	if s.Settings.Units == "" {
		s.Settings.Units = "kg"
	}
	return s
}

// HasEntry reports whether an entry with the given id exists in kind's list.
func (s State) HasEntry(kind Kind, id string) bool {
	switch kind {
	case KindWeight:
		for _, e := range s.WeightEntries {
			if e.ID == id {
				return true
			}
		}
	case KindMood:
		for _, e := range s.MoodEntries {
			if e.ID == id {
				return true
			}
		}
	case KindNutrition:
		for _, e := range s.NutritionEntries {
			if e.ID == id {
				return true
			}
		}
	}
	return false
}
