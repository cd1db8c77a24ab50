package websocket

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestHandleWebSocket_RejectsBadTokens(t *testing.T) {
	h := NewHub(nil, "test-secret")

	claims := jwt.MapClaims{
		"user_id": uuid.New().String(),
		"role":    "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	unsignedStr, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("Signing alg=none token: %v", err)
	}

	wrongSecret := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	wrongSecretStr, _ := wrongSecret.SignedString([]byte("other-secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"garbage token", "not-a-jwt"},
		{"unsigned alg=none token", unsignedStr},
		{"wrong secret", wrongSecretStr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/ws?token="+tt.token, nil)
			rr := httptest.NewRecorder()

			h.HandleWebSocket(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", rr.Code)
			}
		})
	}
}
