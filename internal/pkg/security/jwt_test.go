package security

import (
	"Warbler/internal/api/config"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager(config.JWTConfig{Secret: "s3cret", ExpireDays: 60, Issuer: "warbler"})

	token, err := m.GenerateToken("65a1b2c3d4e5f60718293a4b")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "65a1b2c3d4e5f60718293a4b" {
		t.Errorf("UserID = %q", claims.UserID)
	}

	remaining := m.Remaining(claims)
	if remaining < 59*24*time.Hour || remaining > 60*24*time.Hour {
		t.Errorf("Remaining = %v, want about 60 days", remaining)
	}
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	a := NewTokenManager(config.JWTConfig{Secret: "a"})
	b := NewTokenManager(config.JWTConfig{Secret: "b"})

	token, err := a.GenerateToken("u1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err = b.ValidateToken(token); err == nil {
		t.Error("token signed with another secret must be rejected")
	}
}

func TestExtractSignature(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"a.b.c", "c", false},
		{"a.b", "", true},
		{"a.b.", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractSignature(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ExtractSignature(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ExtractSignature(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(hash, "correct horse") {
		t.Fatal("hash must not contain the plain password")
	}
	if err = CheckPasswordHash("correct horse", hash); err != nil {
		t.Errorf("matching password rejected: %v", err)
	}
	if err = CheckPasswordHash("wrong", hash); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, err = HashPassword(""); err == nil {
		t.Error("empty password must be rejected")
	}
}
