package adapthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	adapthttp "healthlog/internal/adapter/http"
	"healthlog/internal/adapter/memory"
	"healthlog/internal/app"
	"healthlog/internal/domain"
)

// ---------------------------------------------------------------------------
// Test-server helpers
// ---------------------------------------------------------------------------

type testEnv struct {
	ts    *httptest.Server
	store *app.Store
	db    *memory.DB
}

func quiet() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newEnv(t *testing.T, withAuth bool) *testEnv {
	t.Helper()

	db := memory.New()
	store := app.NewStore(context.Background(), app.StoreConfig{KV: db, Logger: quiet()})
	svc := adapthttp.Services{
		Store:    store,
		Entries:  app.NewEntryService(store),
		Insights: app.NewInsightsService(store, time.UTC, nil),
	}
	if withAuth {
		svc.Auth = app.NewAuthService(db.NewUserRepo(), db.NewSessionRepo())
		app.BindSession(svc.Auth, store, time.Second, quiet())
	}

	webDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(webDir, "index.html"), []byte("<html></html>"), 0o600); err != nil {
		t.Fatal(err)
	}

	srv := adapthttp.New(svc, webDir, quiet())
	if !withAuth {
		srv = srv.WithoutAuth()
	}
	srv = srv.WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	}))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, store: store, db: db}
}

func newTestServer(t *testing.T) *testEnv {
	return newEnv(t, false)
}

func (e *testEnv) do(t *testing.T, client *http.Client, method, path string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return m
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected %d, got %d: %s", want, resp.StatusCode, b)
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	env := newTestServer(t)

	resp := env.do(t, nil, http.MethodGet, "/api/health", nil)
	expectStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	if body["ok"] != true {
		t.Fatalf("expected ok=true, got %v", body["ok"])
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("expected no-store, got %q", cc)
	}
}

func TestStateDefaults(t *testing.T) {
	env := newTestServer(t)

	resp := env.do(t, nil, http.MethodGet, "/api/state", nil)
	expectStatus(t, resp, http.StatusOK)

	var st domain.State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Settings.Units != "kg" {
		t.Fatalf("expected kg, got %q", st.Settings.Units)
	}
	if st.HealthConnection.Status != domain.StatusDisconnected {
		t.Fatalf("expected disconnected, got %q", st.HealthConnection.Status)
	}
	if len(st.WeightEntries) != 0 {
		t.Fatalf("expected no weights, got %d", len(st.WeightEntries))
	}
}

func TestEntriesPost(t *testing.T) {
	tests := []struct {
		name       string
		kind       string
		payload    map[string]any
		wantStatus int
	}{
		{"weight kg", "weight", map[string]any{"value": 81.4}, http.StatusCreated},
		{"weight lb", "weight", map[string]any{"value": 180.0, "unit": "lb"}, http.StatusCreated},
		{"weight zero", "weight", map[string]any{"value": 0}, http.StatusBadRequest},
		{"weight bad unit", "weight", map[string]any{"value": 80.0, "unit": "stone"}, http.StatusBadRequest},
		{"mood", "mood", map[string]any{"moodScore": 4, "tags": []string{"rested"}}, http.StatusCreated},
		{"mood out of range", "mood", map[string]any{"moodScore": 6}, http.StatusBadRequest},
		{"nutrition", "nutrition", map[string]any{"text": "oatmeal", "mealType": "breakfast"}, http.StatusCreated},
		{"nutrition blank", "nutrition", map[string]any{"text": "   "}, http.StatusBadRequest},
		{"nutrition bad meal", "nutrition", map[string]any{"text": "cake", "mealType": "brunch"}, http.StatusBadRequest},
		{"unknown kind", "sleep", map[string]any{"hours": 8}, http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestServer(t)
			resp := env.do(t, nil, http.MethodPost, "/api/entries/"+tc.kind, tc.payload)
			expectStatus(t, resp, tc.wantStatus)
		})
	}
}

func TestEntriesPostStoresKilograms(t *testing.T) {
	env := newTestServer(t)

	resp := env.do(t, nil, http.MethodPost, "/api/entries/weight", map[string]any{"value": 220.462, "unit": "lb", "note": "morning"})
	expectStatus(t, resp, http.StatusCreated)

	st := env.store.State()
	if len(st.WeightEntries) != 1 {
		t.Fatalf("expected 1 weight, got %d", len(st.WeightEntries))
	}
	if got := st.WeightEntries[0].ValueKg; got < 99.99 || got > 100.01 {
		t.Fatalf("expected ~100 kg, got %v", got)
	}
	if st.WeightEntries[0].ID == "" {
		t.Fatal("expected an id")
	}
}

func TestEntriesListAndDelete(t *testing.T) {
	env := newTestServer(t)

	for _, text := range []string{"toast", "salad", "soup"} {
		expectStatus(t, env.do(t, nil, http.MethodPost, "/api/entries/nutrition", map[string]any{"text": text}), http.StatusCreated)
	}

	resp := env.do(t, nil, http.MethodGet, "/api/entries/nutrition?limit=2", nil)
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	items, ok := body["items"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("expected 2 items, got %v", body["items"])
	}
	first := items[0].(map[string]any)
	if first["text"] != "soup" {
		t.Fatalf("expected most recent first, got %v", first["text"])
	}

	id := first["id"].(string)
	resp = env.do(t, nil, http.MethodDelete, "/api/entries/nutrition/"+id, nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["deleted"] != true {
		t.Fatalf("expected deleted=true, got %v", body["deleted"])
	}

	resp = env.do(t, nil, http.MethodDelete, "/api/entries/nutrition/"+id, nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["deleted"] != false {
		t.Fatalf("expected second delete to be a no-op, got %v", body["deleted"])
	}
	if n := len(env.store.State().NutritionEntries); n != 2 {
		t.Fatalf("expected 2 notes left, got %d", n)
	}
}

func TestConnectionToggleAndPermissions(t *testing.T) {
	env := newTestServer(t)

	resp := env.do(t, nil, http.MethodPost, "/api/connection/toggle", nil)
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	if body["status"] != domain.StatusConnected {
		t.Fatalf("expected connected, got %v", body["status"])
	}
	if body["lastSyncAt"] == nil {
		t.Fatal("expected lastSyncAt to be stamped on connect")
	}

	resp = env.do(t, nil, http.MethodPut, "/api/connection/permissions", map[string]any{
		"permissions": []map[string]any{{"name": "Weight", "enabled": false}},
	})
	expectStatus(t, resp, http.StatusOK)
	perms := env.store.State().HealthConnection.Permissions
	if len(perms) != 1 || perms[0].Name != "Weight" || perms[0].Enabled {
		t.Fatalf("unexpected permissions %+v", perms)
	}

	resp = env.do(t, nil, http.MethodPut, "/api/connection/permissions", map[string]any{
		"permissions": []map[string]any{{"name": " ", "enabled": true}},
	})
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestSettingsPatch(t *testing.T) {
	env := newTestServer(t)

	resp := env.do(t, nil, http.MethodPatch, "/api/settings", map[string]any{"units": "lb", "name": "Ada"})
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	if body["units"] != "lb" || body["name"] != "Ada" {
		t.Fatalf("unexpected settings %v", body)
	}

	resp = env.do(t, nil, http.MethodPatch, "/api/settings", map[string]any{"units": "stone"})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = env.do(t, nil, http.MethodPatch, "/api/settings", map[string]any{"favouriteColor": "teal"})
	expectStatus(t, resp, http.StatusBadRequest)

	for _, img := range []map[string]any{
		{"url": "", "opacity": 5, "fit": "cover", "position": "center", "enabled": true},
		{"url": "", "opacity": 0.5, "fit": "banana", "position": "center", "enabled": true},
		{"url": "", "opacity": 0.5, "fit": "cover", "position": "sideways", "enabled": true},
	} {
		resp = env.do(t, nil, http.MethodPatch, "/api/settings", map[string]any{"backgroundImage": img})
		expectStatus(t, resp, http.StatusBadRequest)
	}
	resp = env.do(t, nil, http.MethodPatch, "/api/settings", map[string]any{"theme": map[string]any{"primaryColor": "not-a-color"}})
	expectStatus(t, resp, http.StatusBadRequest)
	if env.store.State().Settings.BackgroundImage != domain.DefaultSettings().BackgroundImage {
		t.Fatal("rejected image patches must not change settings")
	}

	resp = env.do(t, nil, http.MethodPatch, "/api/settings", map[string]any{
		"heroImage": map[string]any{"url": "", "opacity": 0.4, "fit": "contain", "position": "top", "enabled": true},
	})
	expectStatus(t, resp, http.StatusOK)
	if hero := env.store.State().Settings.HeroImage; hero.Fit != "contain" || hero.Opacity != 0.4 {
		t.Fatalf("unexpected hero image %+v", hero)
	}

	if env.store.State().Settings.Units != "lb" {
		t.Fatal("rejected patches must not change settings")
	}
}

func TestExport(t *testing.T) {
	env := newTestServer(t)
	expectStatus(t, env.do(t, nil, http.MethodPost, "/api/entries/mood", map[string]any{"moodScore": 3}), http.StatusCreated)

	resp := env.do(t, nil, http.MethodGet, "/api/export", nil)
	expectStatus(t, resp, http.StatusOK)

	cd := resp.Header.Get("Content-Disposition")
	if !strings.Contains(cd, "health-tracker-export-") || !strings.HasSuffix(cd, `.json"`) {
		t.Fatalf("unexpected Content-Disposition %q", cd)
	}
	var st domain.State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(st.MoodEntries) != 1 {
		t.Fatalf("expected 1 mood in export, got %d", len(st.MoodEntries))
	}
}

func TestClearRequiresConfirmation(t *testing.T) {
	env := newTestServer(t)
	expectStatus(t, env.do(t, nil, http.MethodPost, "/api/entries/weight", map[string]any{"value": 70}), http.StatusCreated)

	resp := env.do(t, nil, http.MethodPost, "/api/clear", map[string]any{"confirm": false})
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["cleared"] != false {
		t.Fatalf("expected cleared=false, got %v", body["cleared"])
	}
	if len(env.store.State().WeightEntries) != 1 {
		t.Fatal("declined clear must keep data")
	}

	resp = env.do(t, nil, http.MethodPost, "/api/clear", map[string]any{"confirm": true})
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["cleared"] != true {
		t.Fatalf("expected cleared=true, got %v", body["cleared"])
	}
	if len(env.store.State().WeightEntries) != 0 {
		t.Fatal("expected data to be cleared")
	}
}

func TestSyncPullWithoutRemote(t *testing.T) {
	env := newTestServer(t)
	resp := env.do(t, nil, http.MethodPost, "/api/sync/pull", nil)
	expectStatus(t, resp, http.StatusServiceUnavailable)
}

func TestInsights(t *testing.T) {
	env := newTestServer(t)
	expectStatus(t, env.do(t, nil, http.MethodPost, "/api/entries/weight", map[string]any{"value": 80}), http.StatusCreated)
	expectStatus(t, env.do(t, nil, http.MethodPost, "/api/entries/mood", map[string]any{"moodScore": 5}), http.StatusCreated)

	resp := env.do(t, nil, http.MethodGet, "/api/insights/summary", nil)
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	counts := body["counts"].(map[string]any)
	if counts["weight"] != float64(1) || counts["mood"] != float64(1) {
		t.Fatalf("unexpected counts %v", counts)
	}
	if body["averageMood"] != float64(5) {
		t.Fatalf("expected averageMood 5, got %v", body["averageMood"])
	}

	resp = env.do(t, nil, http.MethodGet, "/api/insights/daily?days=7&unit=lb", nil)
	expectStatus(t, resp, http.StatusOK)
	days := decodeBody(t, resp)["days"].([]any)
	if len(days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(days))
	}
	today := days[6].(map[string]any)
	weight, ok := today["weight"].(map[string]any)
	if !ok || weight["unit"] != "lb" {
		t.Fatalf("expected today's weight in lb, got %v", today["weight"])
	}

	resp = env.do(t, nil, http.MethodGet, "/api/insights/daily?unit=stone", nil)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestNutritionSearch(t *testing.T) {
	env := newTestServer(t)
	expectStatus(t, env.do(t, nil, http.MethodPost, "/api/entries/nutrition", map[string]any{"text": "Greek yogurt", "mealType": "breakfast"}), http.StatusCreated)
	expectStatus(t, env.do(t, nil, http.MethodPost, "/api/entries/nutrition", map[string]any{"text": "yogurt bowl", "mealType": "snack"}), http.StatusCreated)
	expectStatus(t, env.do(t, nil, http.MethodPost, "/api/entries/nutrition", map[string]any{"text": "pasta", "mealType": "dinner"}), http.StatusCreated)

	resp := env.do(t, nil, http.MethodGet, "/api/nutrition/search?q=YOGURT", nil)
	expectStatus(t, resp, http.StatusOK)
	if items := decodeBody(t, resp)["items"].([]any); len(items) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(items))
	}

	resp = env.do(t, nil, http.MethodGet, "/api/nutrition/search?q=yogurt&meal=snack", nil)
	expectStatus(t, resp, http.StatusOK)
	if items := decodeBody(t, resp)["items"].([]any); len(items) != 1 {
		t.Fatalf("expected 1 match, got %d", len(items))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestServer(t)
	resp := env.do(t, nil, http.MethodGet, "/metrics", nil)
	expectStatus(t, resp, http.StatusOK)
}

func TestWebSocketStreamsState(t *testing.T) {
	env := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	var msg adapthttp.StateMessage
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if msg.Type != "state" || len(msg.State.MoodEntries) != 0 {
		t.Fatalf("unexpected initial message %+v", msg)
	}

	expectStatus(t, env.do(t, nil, http.MethodPost, "/api/entries/mood", map[string]any{"moodScore": 2}), http.StatusCreated)

	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if len(msg.State.MoodEntries) != 1 || msg.State.MoodEntries[0].MoodScore != 2 {
		t.Fatalf("expected the new mood in the update, got %+v", msg.State.MoodEntries)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"POST state", http.MethodPost, "/api/state"},
		{"PUT entries", http.MethodPut, "/api/entries/weight"},
		{"GET entry", http.MethodGet, "/api/entries/weight/1"},
		{"GET toggle", http.MethodGet, "/api/connection/toggle"},
		{"POST permissions", http.MethodPost, "/api/connection/permissions"},
		{"DELETE settings", http.MethodDelete, "/api/settings"},
		{"POST export", http.MethodPost, "/api/export"},
		{"GET clear", http.MethodGet, "/api/clear"},
		{"GET pull", http.MethodGet, "/api/sync/pull"},
		{"POST summary", http.MethodPost, "/api/insights/summary"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.do(t, nil, tc.method, tc.path, nil)
			if resp.StatusCode != http.StatusMethodNotAllowed {
				t.Fatalf("expected 405, got %d", resp.StatusCode)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func jarClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

func TestAuthRequired(t *testing.T) {
	env := newEnv(t, true)

	resp := env.do(t, nil, http.MethodGet, "/api/state", nil)
	expectStatus(t, resp, http.StatusUnauthorized)

	// Public endpoints stay reachable.
	expectStatus(t, env.do(t, nil, http.MethodGet, "/api/health", nil), http.StatusOK)
	resp = env.do(t, nil, http.MethodGet, "/api/config", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["accounts_enabled"] != true || body["sso_enabled"] != false {
		t.Fatalf("unexpected config %v", body)
	}
}

func TestSignUpLoginLogout(t *testing.T) {
	env := newEnv(t, true)
	client := jarClient(t)

	creds := map[string]any{"email": "Ada@Example.com", "password": "correct horse"}
	resp := env.do(t, client, http.MethodPost, "/api/auth/signup", creds)
	expectStatus(t, resp, http.StatusCreated)

	resp = env.do(t, client, http.MethodGet, "/api/auth/me", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["email"] != "ada@example.com" {
		t.Fatalf("expected normalized email, got %v", body["email"])
	}

	expectStatus(t, env.do(t, nil, http.MethodPost, "/api/auth/signup", creds), http.StatusConflict)
	expectStatus(t, env.do(t, nil, http.MethodPost, "/api/auth/signup", map[string]any{"email": "not-an-email", "password": "correct horse"}), http.StatusBadRequest)
	expectStatus(t, env.do(t, nil, http.MethodPost, "/api/auth/signup", map[string]any{"email": "bob@example.com", "password": "short"}), http.StatusBadRequest)

	expectStatus(t, env.do(t, client, http.MethodPost, "/api/auth/logout", nil), http.StatusOK)
	expectStatus(t, env.do(t, client, http.MethodGet, "/api/state", nil), http.StatusUnauthorized)

	expectStatus(t, env.do(t, nil, http.MethodPost, "/api/auth/login", map[string]any{"email": "ada@example.com", "password": "wrong password"}), http.StatusUnauthorized)
	expectStatus(t, env.do(t, client, http.MethodPost, "/api/auth/login", creds), http.StatusOK)
	expectStatus(t, env.do(t, client, http.MethodGet, "/api/state", nil), http.StatusOK)
}

func TestForwardAuthHeader(t *testing.T) {
	env := newEnv(t, true)

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/auth/me", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Remote-User", "grace@example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["authenticated"] != true || body["email"] != "grace@example.com" {
		t.Fatalf("unexpected identity %v", body)
	}
}

func TestSecondAccountConflicts(t *testing.T) {
	env := newEnv(t, true)
	ada, grace := jarClient(t), jarClient(t)

	adaCreds := map[string]any{"email": "ada@example.com", "password": "correct horse"}
	graceCreds := map[string]any{"email": "grace@example.com", "password": "battery staple"}
	expectStatus(t, env.do(t, ada, http.MethodPost, "/api/auth/signup", adaCreds), http.StatusCreated)
	expectStatus(t, env.do(t, ada, http.MethodPost, "/api/entries/weight", map[string]any{"value": 61.5, "note": "ada only"}), http.StatusCreated)

	expectStatus(t, env.do(t, grace, http.MethodPost, "/api/auth/signup", graceCreds), http.StatusConflict)
	expectStatus(t, env.do(t, grace, http.MethodPost, "/api/auth/login", graceCreds), http.StatusConflict)
	expectStatus(t, env.do(t, grace, http.MethodGet, "/api/state", nil), http.StatusUnauthorized)

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/state", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Remote-User", "grace@example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	expectStatus(t, resp, http.StatusConflict)

	expectStatus(t, env.do(t, ada, http.MethodPost, "/api/auth/logout", nil), http.StatusOK)
	expectStatus(t, env.do(t, grace, http.MethodPost, "/api/auth/login", graceCreds), http.StatusOK)
	resp = env.do(t, grace, http.MethodGet, "/api/state", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); len(body["weightEntries"].([]any)) != 0 {
		t.Fatalf("second account sees the first account's entries: %v", body["weightEntries"])
	}
}

func TestDeleteAccount(t *testing.T) {
	env := newEnv(t, true)
	client := jarClient(t)

	creds := map[string]any{"email": "lin@example.com", "password": "a long passphrase"}
	expectStatus(t, env.do(t, client, http.MethodPost, "/api/auth/signup", creds), http.StatusCreated)

	expectStatus(t, env.do(t, client, http.MethodDelete, "/api/account", nil), http.StatusOK)
	expectStatus(t, env.do(t, client, http.MethodGet, "/api/state", nil), http.StatusUnauthorized)
	expectStatus(t, env.do(t, nil, http.MethodPost, "/api/auth/login", creds), http.StatusUnauthorized)
}

func TestSSODisabled(t *testing.T) {
	env := newEnv(t, true)
	expectStatus(t, env.do(t, nil, http.MethodGet, "/api/auth/sso/login", nil), http.StatusNotFound)
}
