package api

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const sessionTTL = 24 * time.Hour

// Identity is the request-scoped identity bound into a session token.
type Identity struct {
	UserID      string
	AccessToken string
}

// Sessions mints and verifies signed session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

// NewSessions creates a session service signing with the given secret.
func NewSessions(secret string) *Sessions {
	if secret == "" {
		panic("api.NewSessions: signing secret must not be empty")
	}
	return &Sessions{
		secret: []byte(secret),
		ttl:    sessionTTL,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
		now:    time.Now,
	}
}

// Issue signs a session token binding the user id and the delegated external
// access token. Tokens expire 24 hours after issuance.
func (s *Sessions) Issue(userID, accessToken string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":         userID,
		"accessToken": accessToken,
		"iat":         now.Unix(),
		"exp":         now.Add(s.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks the token's signature and expiry and returns the bound
// identity.
func (s *Sessions) Verify(token string) (Identity, error) {
	parsed, err := s.parser.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return Identity{}, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid claims")
	}
	if !claims.VerifyExpiresAt(s.now().Unix(), true) {
		return Identity{}, errors.New("token expired")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Identity{}, errors.New("missing sub")
	}
	accessToken, _ := claims["accessToken"].(string)
	return Identity{UserID: sub, AccessToken: accessToken}, nil
}
