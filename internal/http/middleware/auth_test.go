package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/unifind-backend/internal/platform/logger"
)

func signed(t *testing.T, secret, sub string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	owner := uuid.New()
	am := NewAuthMiddleware(logger.Nop(), "s3cret")

	r := gin.New()
	r.Use(am.RequireAuth())
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, OwnerID(c).String())
	})

	hour := time.Now().Add(time.Hour)
	cases := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"bearer", "Bearer " + signed(t, "s3cret", owner.String(), hour), "", http.StatusOK},
		{"query token", "", signed(t, "s3cret", owner.String(), hour), http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signed(t, "other", owner.String(), hour), "", http.StatusUnauthorized},
		{"expired", "Bearer " + signed(t, "s3cret", owner.String(), time.Now().Add(-time.Minute)), "", http.StatusUnauthorized},
		{"bad subject", "Bearer " + signed(t, "s3cret", "not-a-uuid", hour), "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := "/whoami"
			if tc.query != "" {
				target += "?token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
			if tc.status == http.StatusOK && rec.Body.String() != owner.String() {
				t.Fatalf("owner = %q", rec.Body.String())
			}
		})
	}
}

func TestRequireAuthWithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewAuthMiddleware(logger.Nop(), "").RequireAuth())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, "anything", uuid.NewString(), time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("an unconfigured secret must reject every token, got %d", rec.Code)
	}
}
