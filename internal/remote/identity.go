package remote

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenFile is the name of the token file inside the data directory.
const tokenFile = "token.jwt"

// Identity holds the authenticated user's bearer token. The client
// does not verify the signature (only the server holds the secret); it
// parses the claims to know who the user is and when the token lapses.
type Identity struct {
	Token   string
	Subject string
	Expiry  time.Time
}

// LoadIdentity reads the stored token from the data directory.
// A missing token file yields an unauthenticated (nil) identity, not
// an error.
func LoadIdentity(dataDir string) (*Identity, error) {
	raw, err := os.ReadFile(filepath.Join(dataDir, tokenFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	return ParseIdentity(strings.TrimSpace(string(raw)))
}

// ParseIdentity extracts subject and expiry from a JWT without
// verifying its signature.
func ParseIdentity(token string) (*Identity, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	id := &Identity{Token: token}
	if sub, ok := claims["sub"].(string); ok {
		id.Subject = sub
	}
	if id.Subject == "" {
		return nil, fmt.Errorf("token has no subject claim")
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.Expiry = exp.Time
	}

	return id, nil
}

// SaveIdentity persists the token into the data directory with
// owner-only permissions.
func SaveIdentity(dataDir, token string) (*Identity, error) {
	id, err := ParseIdentity(token)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	path := filepath.Join(dataDir, tokenFile)
	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("failed to write token file: %w", err)
	}
	return id, nil
}

// RemoveIdentity deletes the stored token. Removing a missing token
// is not an error.
func RemoveIdentity(dataDir string) error {
	err := os.Remove(filepath.Join(dataDir, tokenFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// Authenticated reports whether the identity is usable: present, with
// a subject, and not expired.
func (id *Identity) Authenticated() bool {
	if id == nil || id.Subject == "" {
		return false
	}
	if !id.Expiry.IsZero() && time.Now().After(id.Expiry) {
		return false
	}
	return true
}
