package remote

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mintToken(t *testing.T, subject string, expiry time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": subject}
	if !expiry.IsZero() {
		claims["exp"] = expiry.Unix()
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tok
}

func TestParseIdentity(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	id, err := ParseIdentity(mintToken(t, "alice", exp))
	if err != nil {
		t.Fatalf("ParseIdentity failed: %v", err)
	}
	if id.Subject != "alice" {
		t.Errorf("expected subject alice, got %q", id.Subject)
	}
	if !id.Expiry.Equal(exp) {
		t.Errorf("expected expiry %v, got %v", exp, id.Expiry)
	}
}

func TestParseIdentityRejectsGarbage(t *testing.T) {
	if _, err := ParseIdentity("not-a-jwt"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestParseIdentityRequiresSubject(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{}).SignedString([]byte("s"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	if _, err := ParseIdentity(tok); err == nil {
		t.Error("expected error for token without subject")
	}
}

func TestAuthenticated(t *testing.T) {
	var nilID *Identity
	if nilID.Authenticated() {
		t.Error("nil identity reports authenticated")
	}

	valid := &Identity{Subject: "alice", Expiry: time.Now().Add(time.Hour)}
	if !valid.Authenticated() {
		t.Error("valid identity reports unauthenticated")
	}

	noExpiry := &Identity{Subject: "alice"}
	if !noExpiry.Authenticated() {
		t.Error("identity without expiry reports unauthenticated")
	}

	expired := &Identity{Subject: "alice", Expiry: time.Now().Add(-time.Minute)}
	if expired.Authenticated() {
		t.Error("expired identity reports authenticated")
	}
}

func TestSaveLoadRemoveIdentity(t *testing.T) {
	dir := t.TempDir()

	// Nothing stored yet: unauthenticated, not an error.
	id, err := LoadIdentity(dir)
	if err != nil {
		t.Fatalf("LoadIdentity failed: %v", err)
	}
	if id != nil {
		t.Fatal("expected nil identity before save")
	}

	tok := mintToken(t, "alice", time.Now().Add(time.Hour))
	saved, err := SaveIdentity(dir, tok)
	if err != nil {
		t.Fatalf("SaveIdentity failed: %v", err)
	}
	if saved.Subject != "alice" {
		t.Errorf("expected subject alice, got %q", saved.Subject)
	}

	loaded, err := LoadIdentity(dir)
	if err != nil {
		t.Fatalf("LoadIdentity failed: %v", err)
	}
	if loaded == nil || loaded.Token != tok {
		t.Error("loaded identity does not match saved token")
	}

	if err := RemoveIdentity(dir); err != nil {
		t.Fatalf("RemoveIdentity failed: %v", err)
	}
	id, err = LoadIdentity(dir)
	if err != nil {
		t.Fatalf("LoadIdentity failed: %v", err)
	}
	if id != nil {
		t.Error("identity survived removal")
	}

	// Removing again is a no-op.
	if err := RemoveIdentity(dir); err != nil {
		t.Errorf("repeat RemoveIdentity errored: %v", err)
	}
}
