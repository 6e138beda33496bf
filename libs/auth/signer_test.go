package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"
)

func testClaims(sub string) Claims {
	return Claims{
		Sub:         sub,
		TherapistID: sub,
		Role:        "therapist",
		Iat:         time.Now().Unix(),
		Exp:         time.Now().Add(time.Hour).Unix(),
	}
}

func TestHS256SignerRoundTrip(t *testing.T) {
	signer := NewHS256Signer("unit-test-secret")
	token, err := signer.Sign(testClaims("t-42"))
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
	if signer.CanRotate() {
		t.Fatal("hs256 signer must not report rotation support")
	}
	if signer.JWKS() != nil {
		t.Fatal("hs256 signer has no public keys to publish")
	}
}

func TestRotatingSignerVerifiesOldKeys(t *testing.T) {
	keyA, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", err)
	}
	keyB, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", err)
	}
	kidA := keyIDFromPublicKey(&keyA.PublicKey)
	kidB := keyIDFromPublicKey(&keyB.PublicKey)

	signer, err := NewRotatingRS256Signer(map[string]*rsa.PrivateKey{kidA: keyA, kidB: keyB}, kidA)
	if err != nil {
		t.Fatalf("NewRotatingRS256Signer failed: %v", err)
	}

	tokenA, err := signer.Sign(testClaims("t-1"))
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if err := signer.SetActiveKid(kidB); err != nil {
		t.Fatalf("SetActiveKid failed: %v", err)
	}

	// Tokens issued under the previous key stay valid after rotation.
	claims, err := signer.Verify(tokenA)
	if err != nil {
		t.Fatalf("Verify of pre-rotation token failed: %v", err)
	}
	if claims.TherapistID != "t-1" {
		t.Fatalf("therapist_id = %q, want t-1", claims.TherapistID)
	}

	if got := len(signer.JWKS()); got != 2 {
		t.Fatalf("JWKS size = %d, want 2", got)
	}
	if err := signer.SetActiveKid("nope"); err == nil {
		t.Fatal("unknown kid must be rejected")
	}
}
