package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleJWKSURL   = "https://www.googleapis.com/oauth2/v3/certs"
	googleRevokeURL = "https://oauth2.googleapis.com/revoke"
)

// GoogleProvider implements IdentityProvider against Google's OAuth
// endpoints, verifying ID tokens with Google's published signing keys.
type GoogleProvider struct {
	cfg       *oauth2.Config
	jwks      *keyfunc.JWKS
	parser    *jwt.Parser
	httpc     *http.Client
	revokeURL string
}

// NewGoogleProvider fetches Google's signing keys and returns a provider for
// the authorization-code flow.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) (*GoogleProvider, error) {
	jwks, err := keyfunc.Get(googleJWKSURL, keyfunc.Options{})
	if err != nil {
		return nil, fmt.Errorf("google jwks: %w", err)
	}
	return &GoogleProvider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.profile",
				"https://www.googleapis.com/auth/userinfo.email",
			},
		},
		jwks:      jwks,
		parser:    jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
		httpc:     http.DefaultClient,
		revokeURL: googleRevokeURL,
	}, nil
}

// AuthCodeURL returns the consent screen URL, requesting offline access.
func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades the authorization code for tokens and verifies the ID
// token's signature, issuer and audience before trusting its claims.
func (g *GoogleProvider) Exchange(ctx context.Context, code string) (Profile, string, error) {
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return Profile{}, "", fmt.Errorf("code exchange: %w", err)
	}
	rawID, _ := tok.Extra("id_token").(string)
	if rawID == "" {
		return Profile{}, "", errors.New("token response missing id_token")
	}
	profile, err := g.verifyIDToken(rawID)
	if err != nil {
		return Profile{}, "", err
	}
	return profile, tok.AccessToken, nil
}

func (g *GoogleProvider) verifyIDToken(raw string) (Profile, error) {
	parsed, err := g.parser.Parse(raw, g.jwks.Keyfunc)
	if err != nil {
		return Profile{}, fmt.Errorf("verify id token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Profile{}, errors.New("invalid id token claims")
	}
	if !claims.VerifyAudience(g.cfg.ClientID, true) {
		return Profile{}, errors.New("id token audience mismatch")
	}
	iss, _ := claims["iss"].(string)
	if iss != "https://accounts.google.com" && iss != "accounts.google.com" {
		return Profile{}, errors.New("id token issuer mismatch")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Profile{}, errors.New("id token missing sub")
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	return Profile{Subject: sub, Email: email, Name: name}, nil
}

// Revoke invalidates the delegated access token at Google.
func (g *GoogleProvider) Revoke(ctx context.Context, accessToken string) error {
	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := g.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke returned status %d", resp.StatusCode)
	}
	return nil
}
