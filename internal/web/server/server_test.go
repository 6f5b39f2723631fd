package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/ninthcircle/diceroller/internal/config"
	"github.com/ninthcircle/diceroller/internal/db"
	"github.com/ninthcircle/diceroller/internal/dice"
	"github.com/ninthcircle/diceroller/internal/lifecycle"
	"github.com/ninthcircle/diceroller/internal/models"
	"github.com/ninthcircle/diceroller/internal/options"
	"github.com/ninthcircle/diceroller/internal/repository"
	"github.com/ninthcircle/diceroller/internal/roller"
	"github.com/ninthcircle/diceroller/internal/web/middleware"
)

type testEnv struct {
	handler   http.Handler
	svc       *roller.Service
	campaigns *repository.CampaignRepository
	sessions  *repository.SessionRepository
}

func setupServer(t *testing.T) *testEnv {
	return setupServerWith(t, nil)
}

func setupServerWith(t *testing.T, configure func(*config.Config)) *testEnv {
	t.Helper()
	ctx := context.Background()

	cfg, err := config.Parse([]byte("server:\n  listen_addr: \"127.0.0.1:0\"\n"))
	if err != nil {
		t.Fatalf("config.Parse() error = %v", err)
	}
	if configure != nil {
		configure(cfg)
	}

	database, err := db.New(db.MemoryPath, "wp_")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.Migrate(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := options.NewSQLStore(database.DB)
	if err := lifecycle.New(database, opts, logger, lifecycle.DefaultComponents(true)...).Install(ctx); err != nil {
		t.Fatalf("install failed: %v", err)
	}

	users := repository.NewUserRepository(database.DB)
	sessions := repository.NewSessionRepository(database.DB)
	campaigns := repository.NewCampaignRepository(database.DB, database.Tables.Campaign)
	rolls := repository.NewRollRepository(database.DB, database.Tables)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error = %v", err)
	}
	if err := users.Create(ctx, &models.User{Login: "keeper", PasswordHash: string(hash)}); err != nil {
		t.Fatalf("user Create() error = %v", err)
	}

	svc, err := roller.New(ctx, campaigns, rolls, opts, dice.NewRollerWithSource(rand.NewPCG(1, 2)), cfg.Embed.MaxCount, logger)
	if err != nil {
		t.Fatalf("roller.New() error = %v", err)
	}

	srv, err := New(cfg, svc, users, sessions, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &testEnv{handler: srv.Handler(), svc: svc, campaigns: campaigns, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	w := e.do(t, postForm("/auth/login", url.Values{"login": {"keeper"}, "password": {"s3cret"}}))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d, want 303", w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie && c.Value != "" {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHealth(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAdminRequiresLogin(t *testing.T) {
	env := setupServer(t)

	for _, path := range []string{"/", "/admin/dice-roller"} {
		w := env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/auth/login" {
			t.Errorf("GET %s = %d to %q, want redirect to login", path, w.Code, w.Header().Get("Location"))
		}
	}
}

func TestLoginFlow(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `name="password"`) {
		t.Fatalf("login page = %d", w.Code)
	}

	w = env.do(t, postForm("/auth/login", url.Values{"login": {"keeper"}, "password": {"wrong"}}))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid username or password") {
		t.Error("bad password page lacks error message")
	}

	w = env.do(t, postForm("/auth/login", url.Values{"login": {"nobody"}, "password": {"s3cret"}}))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unknown user status = %d, want 401", w.Code)
	}

	cookie := env.login(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	w = env.do(t, req)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/admin/dice-roller" {
		t.Errorf("GET / = %d to %q", w.Code, w.Header().Get("Location"))
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	req.AddCookie(cookie)
	env.do(t, req)

	if u, _ := env.sessions.GetUser(context.Background(), cookie.Value); u != nil {
		t.Error("session still valid after logout")
	}
}

func TestLoginThrottling(t *testing.T) {
	env := setupServer(t)

	attempt := func(addr, password string) *httptest.ResponseRecorder {
		req := postForm("/auth/login", url.Values{"login": {"keeper"}, "password": {password}})
		req.RemoteAddr = addr
		return env.do(t, req)
	}

	for i := 0; i < 10; i++ {
		if w := attempt("192.0.2.1:4000", "guess"); w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, w.Code)
		}
	}

	w := attempt("192.0.2.1:4000", "s3cret")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("throttled status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("throttled response lacks Retry-After")
	}
	if !strings.Contains(w.Body.String(), "Too many failed login attempts") {
		t.Error("throttled page lacks error message")
	}

	if w := attempt("198.51.100.7:4000", "s3cret"); w.Code != http.StatusSeeOther {
		t.Errorf("other client status = %d, want 303", w.Code)
	}
}

func TestOIDCRoutes(t *testing.T) {
	var issuer *httptest.Server
	issuer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"issuer":%q,"authorization_endpoint":%q,"token_endpoint":%q,"jwks_uri":%q}`,
			issuer.URL, issuer.URL+"/authorize", issuer.URL+"/token", issuer.URL+"/keys")
	}))
	defer issuer.Close()

	env := setupServerWith(t, func(cfg *config.Config) {
		cfg.Auth.OIDC = config.OIDCConfig{
			Enabled:      true,
			Provider:     "Guild",
			ClientID:     "dice",
			ClientSecret: "secret",
			IssuerURL:    issuer.URL,
			RedirectURL:  "http://rolls.test/auth/oidc/callback",
			Scopes:       []string{"openid"},
		}
	})

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	if !strings.Contains(w.Body.String(), "Sign in with Guild") {
		t.Error("login page lacks the OIDC button")
	}

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/auth/oidc/login", nil))
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("OIDC login status = %d, want 307", w.Code)
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil || !strings.HasPrefix(loc.String(), issuer.URL+"/authorize") {
		t.Fatalf("Location = %q", w.Header().Get("Location"))
	}
	var state *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "oidc_state" {
			state = c
		}
	}
	if state == nil || state.Value != loc.Query().Get("state") {
		t.Fatal("state cookie does not match the authorization request")
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/oidc/callback?state=forged&code=abc", nil)
	req.AddCookie(state)
	w = env.do(t, req)
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "Invalid state") {
		t.Errorf("forged state = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/oidc/callback?state="+url.QueryEscape(state.Value)+"&error=access_denied", nil)
	req.AddCookie(state)
	w = env.do(t, req)
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "access_denied") {
		t.Errorf("denied callback = %d", w.Code)
	}
}

func TestOIDCRoutesDisabled(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/auth/oidc/login", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("OIDC login without config = %d, want 404", w.Code)
	}
	w = env.do(t, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	if strings.Contains(w.Body.String(), "Sign in with") {
		t.Error("login page shows OIDC button without config")
	}
}

func TestAdminPage(t *testing.T) {
	env := setupServer(t)
	cookie := env.login(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/dice-roller", nil)
	req.AddCookie(cookie)
	w := env.do(t, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()

	for _, want := range []string{
		"Make a new roll",
		`<option value="1">Test Campaign</option>`,
		`<input id="N" name="N" value="1"`,
		`<option value="10" selected="selected">10</option>`,
		`<option value="100">100</option>`,
		`<option value="0" selected="selected">0</option>`,
		`value="Roll description"`,
		"Latest 10 rolls",
		`href="/admin/dice-roller?orderby=roll_result&amp;order=asc"`,
		"0 Dice Rolls found",
		"Logged in as <strong>keeper</strong>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page lacks %s", want)
		}
	}
	if strings.Contains(body, "Pages:") {
		t.Error("pagination shown for an empty history")
	}
}

func TestRollSubmission(t *testing.T) {
	env := setupServer(t)
	cookie := env.login(t)

	form := url.Values{
		"roll_campaign":    {"1"},
		"N":                {"3"},
		"X":                {"10"},
		"M":                {"2"},
		"roll_description": {"Climb the wall"},
		"submit":           {"Roll"},
	}
	req := postForm("/admin/dice-roller", form)
	req.AddCookie(cookie)
	w := env.do(t, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()

	for _, want := range []string{
		`<div class="updated">Roll done!<br>Result: 3d10&#43;2 = `,
		`<option value="2" selected="selected">&#43;2</option>`,
		`value="Climb the wall"`,
		"<td>keeper</td>",
		"<td>Test Campaign</td>",
		"<td>Climb the wall</td>",
		"1 Dice Rolls found",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page lacks %s", want)
		}
	}
}

func TestRollSubmissionRequiresSubmit(t *testing.T) {
	env := setupServer(t)
	cookie := env.login(t)

	req := postForm("/admin/dice-roller", url.Values{"roll_campaign": {"1"}, "N": {"1"}, "X": {"10"}})
	req.AddCookie(cookie)
	w := env.do(t, req)

	if strings.Contains(w.Body.String(), "Roll done!") {
		t.Error("roll stored without submit")
	}
	if !strings.Contains(w.Body.String(), "0 Dice Rolls found") {
		t.Error("history not empty")
	}
}

func TestRollSubmissionFailure(t *testing.T) {
	env := setupServer(t)
	cookie := env.login(t)
	ctx := context.Background()

	closed := &models.Campaign{Name: "Closed", Active: false}
	if err := env.campaigns.Create(ctx, closed); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, campaign := range []string{"abc", "999"} {
		req := postForm("/admin/dice-roller", url.Values{
			"roll_campaign": {campaign},
			"N":             {"1"},
			"X":             {"100"},
			"submit":        {"Roll"},
		})
		req.AddCookie(cookie)
		w := env.do(t, req)

		body := w.Body.String()
		if !strings.Contains(body, `<div class="error">Error in updating roll table</div>`) {
			t.Errorf("campaign %q: error notice missing", campaign)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/dice-roller", nil)
	req.AddCookie(cookie)
	body := env.do(t, req).Body.String()
	if strings.Contains(body, ">Closed</option>") {
		t.Error("inactive campaign offered in selector")
	}
}

func TestHistoryPages(t *testing.T) {
	env := setupServer(t)
	cookie := env.login(t)
	ctx := context.Background()

	for range 25 {
		if _, err := env.svc.Roll(ctx, roller.RollRequest{CampaignID: 1, Count: 1, Faces: 100}); err != nil {
			t.Fatalf("Roll() error = %v", err)
		}
	}

	tests := []struct {
		query    string
		wantRows int
		current  string
		wantLink string
	}{
		{"", 10, "<strong>1</strong>", `<a href="/admin/dice-roller?num_page=2" title="Go to page 2">2</a>`},
		{"?num_page=3", 5, "<strong>3</strong>", `<a href="/admin/dice-roller?num_page=1" title="Go to page 1">1</a>`},
		{"?num_page=abc", 10, "<strong>1</strong>", `title="Go to page 3"`},
		{"?orderby=roll_result&num_page=2", 10, "<strong>2</strong>", `href="/admin/dice-roller?orderby=roll_result&amp;num_page=3"`},
		{"?num_page=9", 0, "", `title="Go to page 1"`},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/dice-roller"+tt.query, nil)
			req.AddCookie(cookie)
			w := env.do(t, req)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			body := w.Body.String()

			if rows := strings.Count(body, "<td>Test Campaign</td>"); rows != tt.wantRows {
				t.Errorf("rows = %d, want %d", rows, tt.wantRows)
			}
			if tt.current != "" && !strings.Contains(body, tt.current) {
				t.Errorf("current page marker %s missing", tt.current)
			}
			if !strings.Contains(body, tt.wantLink) {
				t.Errorf("link %s missing", tt.wantLink)
			}
			if !strings.Contains(body, "25 Dice Rolls found") {
				t.Error("total line missing")
			}
		})
	}
}

func TestHistoryUnknownSort(t *testing.T) {
	env := setupServer(t)
	cookie := env.login(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/dice-roller?orderby="+url.QueryEscape("r.id; DROP TABLE wp_pbf_dice_roll"), nil)
	req.AddCookie(cookie)
	w := env.do(t, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	if _, err := env.svc.History(context.Background(), roller.HistoryRequest{}); err != nil {
		t.Errorf("roll table damaged: %v", err)
	}
}

func TestEmbedWidget(t *testing.T) {
	env := setupServer(t)
	ctx := context.Background()

	avalon := &models.Campaign{Name: "Avalon", URL: "https://forum.example.com/avalon", Active: true}
	if err := env.campaigns.Create(ctx, avalon); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for i := range 12 {
		campaign := int64(1)
		if i%2 == 1 {
			campaign = avalon.ID
		}
		if _, err := env.svc.Roll(ctx, roller.RollRequest{CampaignID: campaign, Count: 2, Faces: 10, Description: "Stealth"}); err != nil {
			t.Fatalf("Roll() error = %v", err)
		}
	}

	tests := []struct {
		query    string
		wantRows int
	}{
		{"?count=3&class=c9-rolls", 3},
		{"", 10},
		{"?count=abc", 10},
		{"?count=-4", 10},
		{"?count=500", 12},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := env.do(t, httptest.NewRequest(http.MethodGet, "/embed/dice-rolls"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			body := w.Body.String()

			if rows := strings.Count(body, "<td><a href="); rows != tt.wantRows {
				t.Errorf("rows = %d, want %d", rows, tt.wantRows)
			}
			if strings.Contains(body, "<html") {
				t.Error("widget rendered with layout")
			}
		})
	}

	body := env.do(t, httptest.NewRequest(http.MethodGet, "/embed/dice-rolls?count=1&class=c9-rolls", nil)).Body.String()
	for _, want := range []string{
		`<table class="c9-rolls">`,
		`<a href="https://forum.example.com/avalon" rel="nofollow">Avalon</a>`,
		"<td>2d10</td>",
		"<td>Stealth</td>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("widget lacks %s", want)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/static/css/screen.css", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), ".diceroller-element") {
		t.Error("stylesheet content missing")
	}
}
