package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/analytics"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/models"
)

func TestQueryDays(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected int
	}{
		{"absent uses default", "/analytics/charts", analytics.DefaultWindowDays},
		{"explicit zero stays zero", "/analytics/charts?days=0", 0},
		{"negative passes through", "/analytics/charts?days=-3", -3},
		{"numeric", "/analytics/charts?days=30", 30},
		{"garbage uses default", "/analytics/charts?days=abc", analytics.DefaultWindowDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.url, nil)
			assert.Equal(t, tt.expected, queryDays(req))
		})
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{"empty", "", ""},
		{"short key fully masked", "gsk_ab", "******"},
		{"exactly eight fully masked", "gsk_abcd", "********"},
		{"long key keeps edges", "gsk_1234567890abcdef", "gsk_************cdef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskKey(tt.key))
		})
	}
}

func TestMaskKeyNeverLeaksMiddle(t *testing.T) {
	key := "gsk_secret_middle_part_abcd"
	masked := MaskKey(key)
	assert.NotContains(t, masked, "secret_middle_part")
	assert.Len(t, masked, len(key))
}

func TestTruncateForExport(t *testing.T) {
	assert.Equal(t, "short", truncateForExport("short"))

	long := strings.Repeat("x", 600)
	got := truncateForExport(long)
	assert.Len(t, got, exportTextLimit)

	exact := strings.Repeat("y", exportTextLimit)
	assert.Equal(t, exact, truncateForExport(exact))
}

func TestExportRow(t *testing.T) {
	errMsg := "boom"
	trace := &models.Trace{
		ID:           42,
		Timestamp:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ModelName:    "llama-3.1-8b-instant",
		Prompt:       "hello",
		Response:     "world",
		InputTokens:  10,
		OutputTokens: 20,
		TotalTokens:  30,
		LatencyMs:    123.456,
		CostUSD:      decimal.RequireFromString("0.000090"),
		Status:       models.TraceStatusError,
		ErrorMessage: &errMsg,
	}

	row := exportRow(trace)
	require.Len(t, row, len(exportHeader))
	assert.Equal(t, "42", row[0])
	assert.Equal(t, "2026-01-02T03:04:05Z", row[1])
	assert.Equal(t, "llama-3.1-8b-instant", row[2])
	assert.Equal(t, "error", row[3])
	assert.Equal(t, "123.46", row[7])
	assert.Equal(t, "0.000090", row[8])
	assert.Equal(t, "boom", row[11])
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		v, def, max int
		expected    int
	}{
		{0, 10, 50, 10},
		{-3, 10, 50, 1},
		{1, 10, 50, 1},
		{50, 10, 50, 50},
		{51, 10, 50, 50},
		{200, 25, 100, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, clampLimit(tt.v, tt.def, tt.max), "v=%d", tt.v)
	}
}

func TestCreateTraceRequestValidation(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		req := createTraceRequest{ModelName: "m", Status: "success"}
		assert.Nil(t, req.validate())
	})

	t.Run("missing model", func(t *testing.T) {
		req := createTraceRequest{}
		fields := req.validate()
		require.NotNil(t, fields)
		assert.Contains(t, fields, "model_name")
	})

	t.Run("bad status and negative tokens", func(t *testing.T) {
		req := createTraceRequest{ModelName: "m", Status: "pending", InputTokens: -1}
		fields := req.validate()
		require.NotNil(t, fields)
		assert.Contains(t, fields, "status")
		assert.Contains(t, fields, "input_tokens")
	})
}

func signToken(t *testing.T, secret string, claims identityClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestIdentityMiddleware(t *testing.T) {
	const secret = "test-jwt-secret"
	m := NewMiddleware(secret, nil, 100, zap.NewNop())

	var seen *models.Identity
	handler := m.Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("no header is anonymous", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest("GET", "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, seen)
	})

	t.Run("valid token resolves identity", func(t *testing.T) {
		seen = nil
		token := signToken(t, secret, identityClaims{
			Username:  "alice",
			Superuser: true,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "7",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, int64(7), seen.ID)
		assert.Equal(t, "alice", seen.Username)
		assert.True(t, seen.Superuser)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		seen = nil
		token := signToken(t, "other-secret", identityClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "7",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, seen)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		seen = nil
		token := signToken(t, secret, identityClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "7",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		})

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAuth(t *testing.T) {
	m := NewMiddleware("secret", nil, 100, zap.NewNop())
	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("DELETE", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	m := NewMiddleware("secret", nil, 100, zap.NewNop())

	t.Run("assigns one", func(t *testing.T) {
		var got string
		handler := m.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = RequestIDFrom(r.Context())
		}))
		req := httptest.NewRequest("GET", "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.NotEmpty(t, got)
		assert.Equal(t, got, rec.Header().Get("X-Request-ID"))
	})

	t.Run("honors incoming header", func(t *testing.T) {
		var got string
		handler := m.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = RequestIDFrom(r.Context())
		}))
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Request-ID", "req-abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "req-abc", got)
	})
}
