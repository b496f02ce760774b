package utils_test

import (
	"errors"
	"testing"
	"time"

	"github.com/USA-RedDragon/wander-server/internal/utils"
	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateVerify(t *testing.T) {
	t.Parallel()

	secret := "changeme"
	token, err := utils.GenerateSessionJWT(secret, "session-1", time.Hour)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	sessionID, err := utils.VerifySessionJWT(secret, token)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if sessionID != "session-1" {
		t.Errorf("expected session-1, got %s", sessionID)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := utils.GenerateSessionJWT("changeme", "session-1", time.Hour)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	_, err = utils.VerifySessionJWT("other", token)
	if !errors.Is(err, utils.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	t.Parallel()

	claims := jwt.RegisteredClaims{
		Subject:   "session-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("changeme"))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	_, err = utils.VerifySessionJWT("changeme", token)
	if err == nil {
		t.Error("expected error, got nil")
	}
}

func TestVerifyMissingSubject(t *testing.T) {
	t.Parallel()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString([]byte("changeme"))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	_, err = utils.VerifySessionJWT("changeme", token)
	if !errors.Is(err, utils.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "session-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	_, err = utils.VerifySessionJWT("changeme", token)
	if err == nil {
		t.Error("expected error, got nil")
	}
}
