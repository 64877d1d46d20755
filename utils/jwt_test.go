package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vidlingo/dub-orchestrator/config"
)

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	return c, w
}

func TestExtractTokenFromBearerHeader(t *testing.T) {
	c, _ := testContext()
	c.Request.Header.Set("Authorization", "Bearer abc.def.ghi")
	if got := ExtractToken(c); got != "abc.def.ghi" {
		t.Fatalf("token = %q", got)
	}
}

func TestExtractTokenPrefersCookie(t *testing.T) {
	c, _ := testContext()
	c.Request.Header.Set("Authorization", "Bearer from-header")
	c.Request.AddCookie(&http.Cookie{Name: "access_token", Value: "from-cookie"})
	if got := ExtractToken(c); got != "from-cookie" {
		t.Fatalf("token = %q, want cookie value", got)
	}
}

func TestExtractTokenMissing(t *testing.T) {
	c, _ := testContext()
	if got := ExtractToken(c); got != "" {
		t.Fatalf("token = %q, want empty", got)
	}
}

func TestParseTokenRoundTrip(t *testing.T) {
	cfg := &config.EnvConfig{}
	cfg.JWT.SecretKey = "test-secret"

	userID := uuid.NewString()
	signed := signedToken(t, "test-secret", jwt.MapClaims{
		"user_id": userID,
		"role":    "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	parsed, err := ParseToken(signed, cfg)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if !parsed.Valid {
		t.Fatal("token should be valid")
	}

	c, _ := testContext()
	claims := parsed.Claims.(jwt.MapClaims)
	if err := InjectClaimsToContext(c, claims); err != nil {
		t.Fatalf("inject claims: %v", err)
	}
	if got := c.GetString("user_id"); got != userID {
		t.Fatalf("user_id = %q, want %q", got, userID)
	}
	if got := c.GetString("role"); got != "admin" {
		t.Fatalf("role = %q, want admin", got)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	cfg := &config.EnvConfig{}
	cfg.JWT.SecretKey = "right-secret"

	signed := signedToken(t, "wrong-secret", jwt.MapClaims{
		"user_id": uuid.NewString(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	if _, err := ParseToken(signed, cfg); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestInjectClaimsRejectsBadUserID(t *testing.T) {
	c, _ := testContext()
	if err := InjectClaimsToContext(c, jwt.MapClaims{"user_id": "not-a-uuid"}); err == nil {
		t.Fatal("expected error for malformed user_id")
	}
	if err := InjectClaimsToContext(c, jwt.MapClaims{}); err == nil {
		t.Fatal("expected error for missing user_id")
	}
}
