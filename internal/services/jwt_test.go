package services_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"rewards-backend/internal/services"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := services.NewJWTService("secret", time.Hour)

	token, expiresAt, err := svc.IssueToken("zoe", 777)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Errorf("Token already expired at %s", expiresAt)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.AccountID != "zoe" || claims.TelegramID != 777 {
		t.Errorf("Unexpected claims %+v", claims)
	}
}

func TestJWTRejects(t *testing.T) {
	svc := services.NewJWTService("secret", time.Hour)
	good, _, _ := svc.IssueToken("zoe", 1)

	otherKey, _, _ := services.NewJWTService("other", time.Hour).IssueToken("zoe", 1)
	expired, _, _ := services.NewJWTService("secret", -time.Minute).IssueToken("zoe", 1)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"account_id": "zoe", "sub": "zoe"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"wrong key": otherKey,
		"expired":   expired,
		"alg none":  none,
		"garbage":   "not.a.token",
		"truncated": good[:len(good)-4],
	}
	for name, token := range tests {
		if _, err := svc.ValidateToken(token); !errors.Is(err, services.ErrInvalidToken) {
			t.Errorf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}
