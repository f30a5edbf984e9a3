package main

import (
	"strings"
	"testing"
)

func newTestAuth(t *testing.T) *Auth {
	t.Helper()
	return NewAuth(openTestDB(t))
}

func TestRegisterAndValidate(t *testing.T) {
	a := newTestAuth(t)

	id, token, err := a.Register("alice@example.com", "alice", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id == "" || token == "" {
		t.Fatal("register returned empty id or token")
	}

	uid, username, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if uid != id || username != "alice" {
		t.Errorf("claims = %q/%q, want %q/alice", uid, username, id)
	}
}

func TestRegisterValidation(t *testing.T) {
	a := newTestAuth(t)

	cases := []struct {
		name     string
		email    string
		username string
		password string
	}{
		{"bad email", "not-an-email", "alice", "secret"},
		{"short username", "a@example.com", "a", "secret"},
		{"long username", "a@example.com", strings.Repeat("x", 20), "secret"},
		{"short password", "a@example.com", "alice", "abc"},
	}
	for _, tc := range cases {
		if _, _, err := a.Register(tc.email, tc.username, tc.password); err == nil {
			t.Errorf("%s: registration accepted", tc.name)
		}
	}

	if _, _, err := a.Register("alice@example.com", "alice", "secret"); err != nil {
		t.Fatalf("valid registration rejected: %v", err)
	}
	if _, _, err := a.Register("alice@example.com", "other", "secret"); err == nil {
		t.Error("duplicate email accepted")
	}
	if _, _, err := a.Register("other@example.com", "alice", "secret"); err == nil {
		t.Error("duplicate username accepted")
	}
}

func TestLogin(t *testing.T) {
	a := newTestAuth(t)
	id, _, err := a.Register("alice@example.com", "alice", "secret")
	if err != nil {
		t.Fatal(err)
	}

	uid, token, err := a.Login("alice@example.com", "secret", "1.2.3.4")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if uid != id || token == "" {
		t.Errorf("login returned uid=%q token empty=%v", uid, token == "")
	}

	// Email matching is case-insensitive.
	if _, _, err := a.Login("ALICE@example.com", "secret", "1.2.3.4"); err != nil {
		t.Errorf("case-insensitive login failed: %v", err)
	}

	if _, _, err := a.Login("alice@example.com", "wrong", "1.2.3.4"); err == nil {
		t.Error("wrong password accepted")
	}
	if _, _, err := a.Login("nobody@example.com", "secret", "1.2.3.4"); err == nil {
		t.Error("unknown email accepted")
	}
}

func TestLoginRateLimit(t *testing.T) {
	a := newTestAuth(t)
	a.Register("alice@example.com", "alice", "secret")

	for i := 0; i < maxLoginAttempts; i++ {
		a.Login("alice@example.com", "wrong", "9.9.9.9")
	}
	_, _, err := a.Login("alice@example.com", "secret", "9.9.9.9")
	if err == nil || !strings.Contains(err.Error(), "too many") {
		t.Errorf("rate limit not applied: %v", err)
	}

	// Other addresses are unaffected.
	if _, _, err := a.Login("alice@example.com", "secret", "8.8.8.8"); err != nil {
		t.Errorf("unrelated ip rate limited: %v", err)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	a := newTestAuth(t)
	if _, _, err := a.ValidateToken("not-a-token"); err == nil {
		t.Error("garbage token accepted")
	}
	if _, _, err := a.ValidateToken(""); err == nil {
		t.Error("empty token accepted")
	}
}

func TestTokenFromOtherSecretRejected(t *testing.T) {
	a := newTestAuth(t)
	b := newTestAuth(t)

	_, token, err := a.Register("alice@example.com", "alice", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := b.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret accepted")
	}
}

func TestSecretPersistsAcrossRestarts(t *testing.T) {
	db := openTestDB(t)
	a1 := NewAuth(db)
	_, token, err := a1.Register("alice@example.com", "alice", "secret")
	if err != nil {
		t.Fatal(err)
	}

	a2 := NewAuth(db)
	if _, _, err := a2.ValidateToken(token); err != nil {
		t.Errorf("token invalid after restart: %v", err)
	}
}
