package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nmoralesdev/storefront-backend/pkg/config"
	"github.com/nmoralesdev/storefront-backend/pkg/enums"
)

func testCfg() config.JWTConfig {
	return config.JWTConfig{Secret: "unit-test-secret", Issuer: "storefront-test", ExpirationMinutes: 30}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testCfg()
	userID := uuid.New()
	now := time.Now()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID: userID,
		Email:  "shopper@example.com",
		Role:   enums.UserRoleCustomer,
		JTI:    "session-1",
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("user id = %s, want %s", claims.UserID, userID)
	}
	if claims.Email != "shopper@example.com" {
		t.Fatalf("email = %q", claims.Email)
	}
	if claims.Role != enums.UserRoleCustomer {
		t.Fatalf("role = %q", claims.Role)
	}
	if claims.ID != "session-1" {
		t.Fatalf("jti = %q, want session-1", claims.ID)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("issuer = %q, want %q", claims.Issuer, cfg.Issuer)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(now) {
		t.Fatal("expiry must be in the future")
	}
}

func TestMintGeneratesJTIWhenMissing(t *testing.T) {
	token, err := MintAccessToken(testCfg(), time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "shopper@example.com",
		Role:   enums.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}
	claims, err := ParseAccessToken(testCfg(), token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.ID == "" {
		t.Fatal("expected a generated jti")
	}
}

func TestMintRejectsInvalidPayload(t *testing.T) {
	cfg := testCfg()

	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{Email: "a@b.com", Role: enums.UserRoleCustomer}); err == nil {
		t.Fatal("expected error for nil user id")
	}
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRole("superuser")}); err == nil {
		t.Fatal("expected error for invalid role")
	}

	bad := cfg
	bad.Secret = ""
	if _, err := MintAccessToken(bad, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer}); err == nil {
		t.Fatal("expected error for missing secret")
	}
	bad = cfg
	bad.ExpirationMinutes = 0
	if _, err := MintAccessToken(bad, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer}); err == nil {
		t.Fatal("expected error for zero expiry")
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	cfg := testCfg()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "shopper@example.com",
		Role:   enums.UserRoleCustomer,
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	t.Run("wrong secret", func(t *testing.T) {
		other := cfg
		other.Secret = "a different secret"
		if _, err := ParseAccessToken(other, token); err == nil {
			t.Fatal("expected signature error")
		}
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := cfg
		other.Issuer = "someone-else"
		if _, err := ParseAccessToken(other, token); err == nil {
			t.Fatal("expected issuer error")
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if _, err := ParseAccessToken(cfg, "not.a.jwt"); err == nil {
			t.Fatal("expected parse error")
		}
	})
}

func TestParseRejectsExpiredToken(t *testing.T) {
	cfg := testCfg()
	issued := time.Now().Add(-2 * time.Hour)
	token, err := MintAccessToken(cfg, issued, AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "shopper@example.com",
		Role:   enums.UserRoleCustomer,
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expiry error")
	}
}
