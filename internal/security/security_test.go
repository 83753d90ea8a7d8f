package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func TestSignAndAuthenticate(t *testing.T) {
	key := newTestKey(t)
	s := NewJWTSigner(key, &key.PublicKey, "chat", "chat-clients", time.Minute, 5*time.Second)

	tok, err := s.SignAccessToken(Identity{UserID: 7, Username: "alice"}, time.Now())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	id, err := s.Authenticate(tok)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if id.UserID != 7 || id.Username != "alice" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	key := newTestKey(t)
	s := NewJWTSigner(key, &key.PublicKey, "chat", "chat-clients", time.Minute, 0)

	expired, _ := s.SignAccessToken(Identity{UserID: 1, Username: "a"}, time.Now().Add(-time.Hour))
	if _, err := s.Authenticate(expired); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	other := NewJWTSigner(key, &key.PublicKey, "someone-else", "chat-clients", time.Minute, 0)
	foreign, _ := other.SignAccessToken(Identity{UserID: 1, Username: "a"}, time.Now())
	if _, err := s.Authenticate(foreign); !errors.Is(err, ErrInvalidIssuer) {
		t.Fatalf("expected ErrInvalidIssuer, got %v", err)
	}

	otherKey := newTestKey(t)
	forged, _ := NewJWTSigner(otherKey, &otherKey.PublicKey, "chat", "chat-clients", time.Minute, 0).
		SignAccessToken(Identity{UserID: 1, Username: "a"}, time.Now())
	if _, err := s.Authenticate(forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	if _, err := s.Authenticate("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestSubjectAsUserID(t *testing.T) {
	if _, err := SubjectAsUserID(nil); !errors.Is(err, ErrInvalidSubject) {
		t.Fatalf("nil claims: %v", err)
	}
	c := &AccessClaims{}
	c.Subject = "abc"
	if _, err := SubjectAsUserID(c); !errors.Is(err, ErrInvalidSubject) {
		t.Fatalf("bad subject: %v", err)
	}
}

func TestLoadRSAKeysFromPEM(t *testing.T) {
	key := newTestKey(t)
	dir := t.TempDir()

	privPath := filepath.Join(dir, "private.pem")
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		t.Fatal(err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	pubPath := filepath.Join(dir, "public.pem")
	if err := os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0o644); err != nil {
		t.Fatal(err)
	}

	priv, err := LoadRSAPrivateKeyFromPEM(privPath)
	if err != nil {
		t.Fatalf("load private: %v", err)
	}
	pub, err := LoadRSAPublicKeyFromPEM(pubPath)
	if err != nil {
		t.Fatalf("load public: %v", err)
	}
	if !priv.PublicKey.Equal(pub) {
		t.Fatal("loaded keys do not match")
	}
}

func TestHashPassword(t *testing.T) {
	if _, err := HashPassword("123", nil); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}

	hash, err := HashPassword("secret-pass", &BcryptConfig{Cost: bcrypt.MinCost, MinLength: 8})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hash, "secret-pass"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := ComparePassword(hash, "wrong-pass"); err == nil {
		t.Fatal("wrong password accepted")
	}
}
