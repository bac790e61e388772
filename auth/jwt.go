package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

// ErrNoToken is returned when a request carries no bearer token.
var ErrNoToken = errors.New("no bearer token")

// Validator checks JWTs issued by the auth provider at baseURL against its
// JWKS. The key set is fetched on first use and refreshed in the background
// by keyfunc.
type Validator struct {
	baseURL string
	issuer  string

	mu      sync.Mutex
	keyfunc jwt.Keyfunc
}

// NewValidator returns a validator for the provider at baseURL.
func NewValidator(baseURL string) (*Validator, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("auth base URL is not set")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	return &Validator{
		baseURL: strings.TrimRight(baseURL, "/"),
		issuer:  u.Scheme + "://" + u.Host,
	}, nil
}

func (v *Validator) keys() (jwt.Keyfunc, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.keyfunc != nil {
		return v.keyfunc, nil
	}
	jwks, err := keyfunc.NewDefault([]string{v.baseURL + "/.well-known/jwks.json"})
	if err != nil {
		return nil, fmt.Errorf("load jwks: %w", err)
	}
	v.keyfunc = jwks.Keyfunc
	return v.keyfunc, nil
}

// Validate parses and verifies tokenString and returns its claims.
func (v *Validator) Validate(tokenString string) (jwt.MapClaims, error) {
	kf, err := v.keys()
	if err != nil {
		return nil, err
	}
	token, err := jwt.Parse(tokenString, kf,
		jwt.WithIssuer(v.issuer),
		jwt.WithValidMethods([]string{"EdDSA"}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// TokenFromRequest returns the bearer token from the Authorization header,
// falling back to the token query parameter used by browser WebSocket
// clients, which cannot set headers.
func TokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		if token := strings.TrimSpace(h[len(bearerPrefix):]); token != "" {
			return token, nil
		}
	}
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token, nil
	}
	return "", ErrNoToken
}

// FirstNameFromClaims returns the first word of the "name" claim, or fallback.
func FirstNameFromClaims(claims jwt.MapClaims, fallback string) string {
	name, _ := claims["name"].(string)
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return fallback
	}
	return parts[0]
}

// UserIDFromClaims returns the user id from claims ("sub" or "id").
func UserIDFromClaims(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id
	}
	return ""
}
