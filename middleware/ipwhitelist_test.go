package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIPWhitelist(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		client  string
		want    int
	}{
		{"empty list allows all", nil, "1.2.3.4", http.StatusOK},
		{"exact match", []string{"192.168.1.1"}, "192.168.1.1", http.StatusOK},
		{"not listed", []string{"10.0.0.1"}, "1.2.3.4", http.StatusForbidden},
		{"second of several", []string{"10.0.0.1", " 10.0.0.2 "}, "10.0.0.2", http.StatusOK},
		{"neighbour of listed ip", []string{"10.0.0.1", "10.0.0.2"}, "10.0.0.3", http.StatusForbidden},
		{"inside cidr", []string{"10.20.0.0/16", "not-an-ip"}, "10.20.5.9", http.StatusOK},
		{"outside cidr", []string{"10.20.0.0/16"}, "10.21.0.1", http.StatusForbidden},
		{"ipv6 address", []string{"::1"}, "::1", http.StatusOK},
		{"only bad entries deny all", []string{"garbage"}, "1.2.3.4", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(IPWhitelist(tt.entries, zap.NewNop()))
			r.GET("/api/admin/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/api/admin/metrics", nil)
			req.Header.Set("X-Real-IP", tt.client)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
