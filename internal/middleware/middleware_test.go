package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Omvpatil/RealEstate/internal/access"
	"github.com/Omvpatil/RealEstate/internal/config"
	"github.com/Omvpatil/RealEstate/internal/logging"
	"github.com/Omvpatil/RealEstate/internal/model"
)

type profiles struct{}

func (profiles) BuilderByUser(_ context.Context, userID uint64) (model.Builder, error) {
	if userID == 1 {
		return model.Builder{ID: 11, UserID: 1}, nil
	}
	return model.Builder{}, sql.ErrNoRows
}

func (profiles) CustomerByUser(_ context.Context, userID uint64) (model.Customer, error) {
	if userID == 2 {
		return model.Customer{ID: 22, UserID: 2}, nil
	}
	return model.Customer{}, sql.ErrNoRows
}

func newEcho(gate *access.Gate) *echo.Echo {
	e := echo.New()
	e.GET("/builder", func(c echo.Context) error {
		a, ok := ActorFrom(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, echo.Map{"builder_id": a.BuilderID, "user": currentUserID(c)})
	}, Authenticate(gate), RequireRole(model.RoleBuilder))
	return e
}

func bearer(t *testing.T, gate *access.Gate, userID uint64, role model.Role) string {
	t.Helper()
	tok, err := gate.IssueAccessToken(userID, role)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func TestAuthenticateAndRequireRole(t *testing.T) {
	gate := access.NewGate(config.AuthConfig{JWTSecret: "k", AccessTTLMin: 5}, profiles{})
	e := newEcho(gate)

	tests := []struct {
		name   string
		auth   string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"builder", bearer(t, gate, 1, model.RoleBuilder), http.StatusOK},
		{"customer on builder route", bearer(t, gate, 2, model.RoleCustomer), http.StatusForbidden},
		{"builder without profile", bearer(t, gate, 9, model.RoleBuilder), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/builder", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"builder_id":11,"user":"1"}`, rec.Body.String())
			}
		})
	}
}

func TestMiddlewaresPassThroughWithoutRedis(t *testing.T) {
	e := echo.New()
	calls := 0
	e.GET("/p", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "ok")
	}, NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil),
		NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, logging.Discard()))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/p", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 3, calls)
}

func TestCachePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}, "X-Total": {"3"}}
	payload, err := encodePayload(http.StatusOK, hdr, []byte(`{"items":[]}`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(payload)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, gotHdr)
	assert.Equal(t, `{"items":[]}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
	_, _, _, ok = decodePayload(append(payload[:4:4], 0xff, 0xff, 0xff, 0xff))
	assert.False(t, ok)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings/5/payments", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings/:id/payments")
	c.Set(ctxUserID, uint64(7))

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}
	assert.Equal(t, "rl:user:7:route:POST /v1/bookings/:id/payments", buildRateKey(cfg, c))
	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:10.0.0.1", buildRateKey(cfg, c))
}
