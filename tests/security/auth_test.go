// auth_test.go — admin bearer-token hardening tests: alg:none
// rejection, expired tokens, tampered signatures, wrong algorithm.
package security_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/albumvault/catalogd/internal/auth"
)

const testJWTSecret = "test-secret-key-for-security-tests-minimum-32chars"

// craftToken builds a raw JWT string from arbitrary header/payload
// maps, bypassing the jwt library entirely, so tests can construct
// tokens the real signer would never produce (alg:none, wrong alg).
func craftToken(header, payload map[string]interface{}, key []byte) string {
	hBytes, _ := json.Marshal(header)
	pBytes, _ := json.Marshal(payload)

	hEnc := base64.RawURLEncoding.EncodeToString(hBytes)
	pEnc := base64.RawURLEncoding.EncodeToString(pBytes)
	msg := hEnc + "." + pEnc

	if key == nil {
		return msg + "."
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return msg + "." + sig
}

func TestRejectAlgNone(t *testing.T) {
	payload := map[string]interface{}{
		"sub": "admin-1",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
		"iss": "catalogd",
	}

	algNoneToken := craftToken(
		map[string]interface{}{"alg": "none", "typ": "JWT"},
		payload,
		nil,
	)

	if _, err := auth.ValidateAdminToken(algNoneToken, testJWTSecret); err == nil {
		t.Error("alg:none token must be rejected")
	}
}

func TestRejectExpiredToken(t *testing.T) {
	payload := map[string]interface{}{
		"sub": "admin-1",
		"exp": time.Now().Add(-1 * time.Hour).Unix(),
		"iat": time.Now().Add(-2 * time.Hour).Unix(),
		"iss": "catalogd",
	}

	expiredToken := craftToken(
		map[string]interface{}{"alg": "HS256", "typ": "JWT"},
		payload,
		[]byte(testJWTSecret),
	)

	if _, err := auth.ValidateAdminToken(expiredToken, testJWTSecret); err == nil {
		t.Error("expired token must be rejected")
	}
}

func TestRejectWrongAlgorithm(t *testing.T) {
	payload := map[string]interface{}{
		"sub": "admin-1",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
		"iss": "catalogd",
	}

	// RS256 in the header with an HMAC-computed "signature": the
	// library must refuse to even attempt verification under the
	// attacker-chosen algorithm rather than treating the secret as an
	// RSA public key.
	wrongAlgToken := craftToken(
		map[string]interface{}{"alg": "RS256", "typ": "JWT"},
		payload,
		[]byte(testJWTSecret),
	)

	if _, err := auth.ValidateAdminToken(wrongAlgToken, testJWTSecret); err == nil {
		t.Error("token with RS256 algorithm must be rejected by an HS256-only validator")
	}
}

func TestRejectTamperedSignature(t *testing.T) {
	token, err := auth.GenerateAdminToken("admin-1", testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}

	tampered := token[:len(token)-1] + "x"
	if _, err := auth.ValidateAdminToken(tampered, testJWTSecret); err == nil {
		t.Error("tampered signature must be rejected")
	}
}

func TestRejectWrongSecret(t *testing.T) {
	token, err := auth.GenerateAdminToken("admin-1", testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}

	if _, err := auth.ValidateAdminToken(token, "a-completely-different-secret-value"); err == nil {
		t.Error("token validated against the wrong secret must be rejected")
	}
}

func TestAcceptValidToken(t *testing.T) {
	token, err := auth.GenerateAdminToken("admin-1", testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}

	claims, err := auth.ValidateAdminToken(token, testJWTSecret)
	if err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
	if claims == nil {
		t.Fatal("claims must not be nil for a valid token")
	}
	if claims.Subject != "admin-1" {
		t.Errorf("claims.Subject = %q, want %q", claims.Subject, "admin-1")
	}
}

func TestRejectEmptySecret(t *testing.T) {
	if _, err := auth.GenerateAdminToken("admin-1", "", time.Hour); err == nil {
		t.Error("GenerateAdminToken with an empty secret must fail")
	}

	token, _ := auth.GenerateAdminToken("admin-1", testJWTSecret, time.Hour)
	if _, err := auth.ValidateAdminToken(token, ""); err == nil {
		t.Error("ValidateAdminToken with an empty secret must fail")
	}
}
