package handlers

import (
	"testing"
	"time"

	"github.com/trgnexus/platform/libs/auth"
)

func TestPasswordHashing(t *testing.T) {
	password := "pass123"
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash == "" {
		t.Fatal("expected non-empty hash")
	}
	if err := verifyPassword(hash, password); err != nil {
		t.Fatalf("verifyPassword should succeed: %v", err)
	}
	if err := verifyPassword(hash, "wrong-pass"); err == nil {
		t.Fatal("verifyPassword should fail for wrong password")
	}
}

func TestHS256SignerRoundTrip(t *testing.T) {
	signer := auth.NewHS256Signer("unit-test-secret")
	token, err := signer.Sign(auth.Claims{
		Sub:         "t-42",
		TherapistID: "t-42",
		Role:        "therapist",
		Iat:         time.Now().Unix(),
		Exp:         time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.TherapistID != "t-42" {
		t.Fatalf("therapist_id = %q, want t-42", claims.TherapistID)
	}
	if claims.Role != "therapist" {
		t.Fatalf("role = %q, want therapist", claims.Role)
	}
}
