package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ninthcircle/diceroller/internal/ipfilter"
	"github.com/ninthcircle/diceroller/internal/models"
	"github.com/ninthcircle/diceroller/internal/web/auth"
	"github.com/ninthcircle/diceroller/internal/web/middleware"
)

const oidcStateCookie = "oidc_state"

type loginPage struct {
	User  *models.User
	Login string
	Error string
	OIDC  string
}

// LoginPage renders the login form
func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login", h.loginPage("", ""))
}

// Login checks the submitted credentials and starts a session
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLoginError(w, "", "Invalid form data")
		return
	}

	login := r.FormValue("login")
	password := r.FormValue("password")

	client := clientKey(r)
	if res := h.logins.Check(client); !res.Allowed {
		h.logger.Warn("login throttled", "login", login, "client", client, "retry_after", res.RetryAfter)
		w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
		h.renderStatus(w, http.StatusTooManyRequests, "login", h.loginPage(login, "Too many failed login attempts, try again later"))
		return
	}

	user, err := h.users.GetByLogin(r.Context(), login)
	if err != nil {
		h.logger.Error("failed to load user", "login", login, "error", err)
		h.renderLoginError(w, login, "Login failed, try again later")
		return
	}
	if user == nil {
		h.logins.Allow(client)
		h.renderLoginError(w, login, "Invalid username or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		h.logger.Warn("failed login", "login", login, "client", client)
		h.logins.Allow(client)
		h.renderLoginError(w, login, "Invalid username or password")
		return
	}

	h.logins.Reset(client)
	h.startSession(w, r, user)
}

// Logout ends the session
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookie); err == nil {
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			h.logger.Error("failed to delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})

	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

// OIDCLogin redirects to the identity provider
func (h *Handlers) OIDCLogin(w http.ResponseWriter, r *http.Request) {
	url, state, err := h.oidc.AuthCodeURL()
	if err != nil {
		h.logger.Error("failed to generate auth URL", "error", err)
		h.renderLoginError(w, "", "Failed to initiate login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oidcStateCookie,
		Value:    state,
		Path:     "/auth/oidc",
		MaxAge:   int(auth.StateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// OIDCCallback finishes the provider login, creating the local user on
// first sign-in
func (h *Handlers) OIDCCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oidcStateCookie)

	http.SetCookie(w, &http.Cookie{
		Name:     oidcStateCookie,
		Value:    "",
		Path:     "/auth/oidc",
		MaxAge:   -1,
		HttpOnly: true,
	})

	q := r.URL.Query()
	state := q.Get("state")
	if err != nil || state == "" || state != stateCookie.Value {
		h.renderLoginError(w, "", "Invalid state")
		return
	}

	code := q.Get("code")
	if code == "" {
		desc := q.Get("error_description")
		if desc == "" {
			desc = q.Get("error")
		}
		if desc == "" {
			desc = "Authorization failed"
		}
		h.renderLoginError(w, "", desc)
		return
	}

	info, err := h.oidc.Exchange(r.Context(), state, code)
	if err != nil {
		h.logger.Warn("OIDC exchange failed", "error", err)
		msg := "Authentication failed"
		if errors.Is(err, auth.ErrNotInGroup) {
			msg = "You are not allowed to use the dice roller"
		}
		h.renderLoginError(w, "", msg)
		return
	}

	user, err := h.users.GetByLogin(r.Context(), info.Login)
	if err != nil {
		h.logger.Error("failed to load user", "login", info.Login, "error", err)
		h.renderLoginError(w, "", "Login failed, try again later")
		return
	}
	if user == nil {
		user = &models.User{Login: info.Login, DisplayName: info.Name}
		if err := h.users.Create(r.Context(), user); err != nil {
			h.logger.Error("failed to create OIDC user", "login", info.Login, "error", err)
			h.renderLoginError(w, "", "Login failed, try again later")
			return
		}
		h.logger.Info("created OIDC user", "login", info.Login)
	}

	h.startSession(w, r, user)
}

func (h *Handlers) startSession(w http.ResponseWriter, r *http.Request, user *models.User) {
	session, err := h.sessions.Create(r.Context(), user.ID, h.cfg.Auth.SessionTTL)
	if err != nil {
		h.logger.Error("failed to create session", "login", user.Login, "error", err)
		h.renderLoginError(w, user.Login, "Login failed, try again later")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("user logged in", "login", user.Login)
	http.Redirect(w, r, "/admin/dice-roller", http.StatusSeeOther)
}

func (h *Handlers) secureCookies() bool {
	return h.cfg.Auth.CookieSecure || h.cfg.Server.TLS.Enabled
}

func (h *Handlers) loginPage(login, message string) loginPage {
	page := loginPage{Login: login, Error: message}
	if h.oidc != nil {
		page.OIDC = h.oidc.Name()
	}
	return page
}

func (h *Handlers) renderLoginError(w http.ResponseWriter, login, message string) {
	h.renderStatus(w, http.StatusUnauthorized, "login", h.loginPage(login, message))
}

// clientKey identifies the client for login throttling
func clientKey(r *http.Request) string {
	if ip, ok := ipfilter.ClientIP(r); ok {
		return ip.String()
	}
	return r.RemoteAddr
}
