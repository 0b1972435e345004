package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/omise/omise-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSimulatedCaptureAndRefund(t *testing.T) {
	g := NewSimulatedGateway([]string{"tokn_fail"}, zap.NewNop())
	ctx := context.Background()
	bookingID := uuid.New()

	res, err := g.Capture(ctx, CaptureRequest{BookingID: bookingID, Amount: 90, Currency: "thb", Token: "tokn_ok"})
	require.NoError(t, err)
	require.True(t, res.Paid)
	assert.NotEmpty(t, res.Reference)

	refund, err := g.Refund(ctx, RefundRequest{BookingID: bookingID, ChargeID: res.Reference, Amount: 45})
	require.NoError(t, err)
	assert.True(t, refund.Refunded)
	assert.Equal(t, int64(45), refund.Amount)

	// only 45 left on the charge
	over, err := g.Refund(ctx, RefundRequest{BookingID: bookingID, ChargeID: res.Reference, Amount: 90})
	require.NoError(t, err)
	assert.False(t, over.Refunded)
	assert.Equal(t, int64(45), g.Refunded(res.Reference))
}

func TestSimulatedCaptureDeclinesFailTokens(t *testing.T) {
	g := NewSimulatedGateway([]string{"tokn_fail"}, zap.NewNop())

	res, err := g.Capture(context.Background(), CaptureRequest{Amount: 90, Currency: "thb", Token: "tokn_fail"})
	require.NoError(t, err)
	assert.False(t, res.Paid)
	assert.Equal(t, "card_declined", res.Reason)
}

func TestSimulatedRefundUnknownCharge(t *testing.T) {
	g := NewSimulatedGateway(nil, zap.NewNop())

	res, err := g.Refund(context.Background(), RefundRequest{ChargeID: "chrg_missing", Amount: 1})
	require.NoError(t, err)
	assert.False(t, res.Refunded)
}

func TestCaptureResultFromOmiseCharge(t *testing.T) {
	code, msg := "insufficient_fund", "insufficient funds in the account"

	tests := []struct {
		name   string
		charge *omise.Charge
		want   CaptureResult
	}{
		{
			name:   "successful",
			charge: &omise.Charge{Base: omise.Base{ID: "chrg_1"}, Status: "successful"},
			want:   CaptureResult{Paid: true, Reference: "chrg_1"},
		},
		{
			name:   "failed with code",
			charge: &omise.Charge{Base: omise.Base{ID: "chrg_2"}, Status: "failed", FailureCode: &code, FailureMessage: &msg},
			want:   CaptureResult{Reference: "chrg_2", Reason: "insufficient_fund: insufficient funds in the account"},
		},
		{
			name:   "pending is not paid",
			charge: &omise.Charge{Base: omise.Base{ID: "chrg_3"}, Status: "pending"},
			want:   CaptureResult{Reference: "chrg_3", Reason: "pending"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, captureResult(tt.charge))
		})
	}
}

func TestHTTPIdentityVerifier(t *testing.T) {
	var got IdentityRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/verifications", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(IdentityResult{ClientVerified: true, ProfessionalVerified: false})
	}))
	defer srv.Close()

	v := NewHTTPIdentityVerifier(srv.URL+"/", time.Second, zap.NewNop())
	req := IdentityRequest{BookingID: uuid.New(), ClientID: uuid.New(), ProfessionalID: uuid.New()}

	res, err := v.Verify(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req, got)
	assert.True(t, res.ClientVerified)
	assert.False(t, res.ProfessionalVerified)
}

func TestHTTPIdentityVerifierProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	v := NewHTTPIdentityVerifier(srv.URL, time.Second, zap.NewNop())

	_, err := v.Verify(context.Background(), IdentityRequest{BookingID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestStaticVerifier(t *testing.T) {
	blocked := uuid.New()
	v := StaticVerifier{Unverified: map[uuid.UUID]bool{blocked: true}}

	res, err := v.Verify(context.Background(), IdentityRequest{ClientID: uuid.New(), ProfessionalID: blocked})
	require.NoError(t, err)
	assert.True(t, res.ClientVerified)
	assert.False(t, res.ProfessionalVerified)
}
