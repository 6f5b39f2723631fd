// Package auth implements single sign-on through OpenID Connect
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/ninthcircle/diceroller/internal/config"
)

// StateTTL bounds how long a login may take at the provider
const StateTTL = 10 * time.Minute

var (
	ErrInvalidState = errors.New("invalid state")
	ErrNotInGroup   = errors.New("user not in allowed groups")
)

// OIDCProvider handles OIDC authentication
type OIDCProvider struct {
	cfg      config.OIDCConfig
	oauth2   oauth2.Config
	verifier *oidc.IDTokenVerifier

	mu     sync.Mutex
	states map[string]time.Time
	now    func() time.Time
}

// UserInfo is the identity taken from a verified ID token
type UserInfo struct {
	Login  string
	Name   string
	Groups []string
}

// NewOIDCProvider discovers the issuer and returns a provider.
// It returns nil when OIDC is disabled.
func NewOIDCProvider(ctx context.Context, cfg config.OIDCConfig) (*OIDCProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return &OIDCProvider{
		cfg: cfg,
		oauth2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       cfg.Scopes,
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		states:   make(map[string]time.Time),
		now:      time.Now,
	}, nil
}

// Name returns the provider name shown on the login page
func (p *OIDCProvider) Name() string {
	return p.cfg.Provider
}

// AuthCodeURL generates the authorization URL with a random state
func (p *OIDCProvider) AuthCodeURL() (url, state string, err error) {
	state, err = generateState()
	if err != nil {
		return "", "", err
	}

	p.mu.Lock()
	p.states[state] = p.now()
	p.mu.Unlock()

	return p.oauth2.AuthCodeURL(state), state, nil
}

// Exchange trades the authorization code for a verified identity.
// A state is accepted once.
func (p *OIDCProvider) Exchange(ctx context.Context, state, code string) (*UserInfo, error) {
	if !p.consumeState(state) {
		return nil, ErrInvalidState
	}

	token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("no id_token in response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id_token: %w", err)
	}

	var claims struct {
		Email             string   `json:"email"`
		PreferredUsername string   `json:"preferred_username"`
		Name              string   `json:"name"`
		Groups            []string `json:"groups"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	if !inAllowedGroups(p.cfg.AllowedGroups, claims.Groups) {
		return nil, ErrNotInGroup
	}

	login := claims.Email
	if login == "" {
		login = claims.PreferredUsername
	}
	if login == "" {
		login = idToken.Subject
	}

	return &UserInfo{Login: login, Name: claims.Name, Groups: claims.Groups}, nil
}

// Prune forgets states older than StateTTL and returns how many were removed
func (p *OIDCProvider) Prune() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for state, issued := range p.states {
		if p.now().Sub(issued) > StateTTL {
			delete(p.states, state)
			removed++
		}
	}
	return removed
}

func (p *OIDCProvider) consumeState(state string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	issued, ok := p.states[state]
	if !ok {
		return false
	}
	delete(p.states, state)
	return p.now().Sub(issued) <= StateTTL
}

// inAllowedGroups reports whether any of groups is allowed. An empty
// allow list admits everyone.
func inAllowedGroups(allowed, groups []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, g := range groups {
		if slices.Contains(allowed, g) {
			return true
		}
	}
	return false
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
