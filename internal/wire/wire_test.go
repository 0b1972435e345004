package wire

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"companion-booking/internal/data/repository"
	"companion-booking/pkg/middleware"
	"companion-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type bookingBody struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Version int64  `json:"version"`
}

type testServer struct {
	t      *testing.T
	router http.Handler
	tokens *middleware.TokenVerifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	config := &utils.Config{
		JWT:     utils.JWTConfig{Secret: "test-secret", Issuer: "companion-auth"},
		Payment: utils.PaymentConfig{Driver: "simulated", FailTokens: []string{"tokn_fail"}},
	}
	deps, err := NewDependencies(config, nil, zap.NewNop())
	require.NoError(t, err)

	app := Wiring(repository.NewMemoryRepository(), deps, config, zap.NewNop())
	return &testServer{
		t:      t,
		router: app.Router,
		tokens: middleware.NewTokenVerifier("test-secret", "companion-auth"),
	}
}

func (s *testServer) token(id uuid.UUID, role string) string {
	s.t.Helper()
	tok, err := s.tokens.Issue(id, role, time.Hour)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decodeBooking(t *testing.T, raw json.RawMessage) bookingBody {
	t.Helper()
	var b bookingBody
	require.NoError(t, json.Unmarshal(raw, &b))
	return b
}

func TestBookingFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	clientID, professionalID := uuid.New(), uuid.New()
	client := s.token(clientID, "client")
	professional := s.token(professionalID, "professional")

	rec, env := s.do(http.MethodPost, "/api/bookings", client, map[string]any{
		"professional_id":     professionalID.String(),
		"scheduled_start":     time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		"duration_hours":      2,
		"total_amount":        90,
		"platform_fee_amount": 9,
		"session_amount":      81,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBooking(t, env.Data)
	assert.Equal(t, "requested", created.Status)
	path := "/api/bookings/" + created.ID

	rec, _ = s.do(http.MethodGet, path, s.token(uuid.New(), "client"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = s.do(http.MethodPost, path+"/transitions", professional, map[string]any{
		"action": "accept", "expected_version": 5,
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	current := decodeBooking(t, env.Data)
	assert.Equal(t, int64(1), current.Version)

	rec, _ = s.do(http.MethodPost, path+"/transitions", professional, map[string]any{
		"action": "accept", "expected_version": current.Version,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = s.do(http.MethodPost, path+"/transitions", client, map[string]any{
		"action": "pay", "expected_version": 2, "payment_token": "tokn_fail",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec, env = s.do(http.MethodPost, path+"/transitions", client, map[string]any{
		"action": "pay", "expected_version": 3, "payment_token": "tokn_ok",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var paid struct {
		Booking bookingBody `json:"booking"`
		Changed bool        `json:"changed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &paid))
	assert.Equal(t, "confirmed", paid.Booking.Status)
	assert.True(t, paid.Changed)

	rec, env = s.do(http.MethodGet, path+"/refund-preview", client, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var preview struct {
		Amount  int64 `json:"amount"`
		Percent int64 `json:"percent"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &preview))
	assert.Equal(t, int64(90), preview.Amount)
	assert.Equal(t, int64(100), preview.Percent)

	rec, env = s.do(http.MethodGet, path+"/events", professional, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &events))
	assert.Len(t, events, 3)

	rec, _ = s.do(http.MethodPost, path+"/reviews", client, map[string]any{
		"rating": 4, "aspects": map[string]int{"punctuality": 4, "respectfulness": 4, "communication": 4, "overall": 4},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/bookings?page=1&per_page=5", professional, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestValidationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	client := s.token(uuid.New(), "client")

	rec, _ := s.do(http.MethodPost, "/api/bookings", client, map[string]any{"duration_hours": 2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/bookings/not-a-uuid/transitions", client, map[string]any{
		"action": "cancel", "expected_version": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/bookings/"+uuid.NewString(), client, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthenticationOverHTTP(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(http.MethodGet, "/api/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/bookings", s.token(uuid.New(), "admin"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(utils.BookingConfig{})
	assert.Equal(t, 48*time.Hour, p.RequestExpiry)
	assert.Equal(t, int64(50), p.PartialRefundPercent)
	assert.False(t, p.AutoStartSession)

	lead := 6 * time.Hour
	p = PolicyFromConfig(utils.BookingConfig{
		CancellationLeadTime: &lead,
		PartialRefundPercent: 30,
		AutoStartSession:     true,
	})
	assert.Equal(t, 6*time.Hour, p.CancellationLeadTime)
	assert.Equal(t, int64(30), p.PartialRefundPercent)
	assert.True(t, p.AutoStartSession)
}

func TestPolicyFromConfigZeroLead(t *testing.T) {
	assert.Equal(t, 24*time.Hour, PolicyFromConfig(utils.BookingConfig{}).CancellationLeadTime)

	var zero time.Duration
	p := PolicyFromConfig(utils.BookingConfig{CancellationLeadTime: &zero})
	start := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	assert.Zero(t, p.CancellationLeadTime)
	assert.Equal(t, start, p.CancellationDeadline(start))
}

func TestNewDependenciesRejectsUnknownDriver(t *testing.T) {
	_, err := NewDependencies(&utils.Config{Payment: utils.PaymentConfig{Driver: "paypal"}}, nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewDependencies(&utils.Config{Identity: utils.IdentityConfig{Driver: "http"}}, nil, zap.NewNop())
	assert.Error(t, err)
}
