package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IdentityVerifier checks that both participants passed identity
// verification with the external provider.
type IdentityVerifier interface {
	Verify(ctx context.Context, req IdentityRequest) (IdentityResult, error)
}

type IdentityRequest struct {
	BookingID      uuid.UUID `json:"booking_id"`
	ClientID       uuid.UUID `json:"client_id"`
	ProfessionalID uuid.UUID `json:"professional_id"`
}

type IdentityResult struct {
	ClientVerified       bool `json:"client_verified"`
	ProfessionalVerified bool `json:"professional_verified"`
}

type httpIdentityVerifier struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewHTTPIdentityVerifier posts verification requests to baseURL/verifications.
func NewHTTPIdentityVerifier(baseURL string, timeout time.Duration, log *zap.Logger) IdentityVerifier {
	return &httpIdentityVerifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log.With(zap.String("gateway", "identity")),
	}
}

func (v *httpIdentityVerifier) Verify(ctx context.Context, req IdentityRequest) (IdentityResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return IdentityResult{}, fmt.Errorf("encode identity request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/verifications", bytes.NewReader(body))
	if err != nil {
		return IdentityResult{}, fmt.Errorf("build identity request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := v.client.Do(httpReq)
	if err != nil {
		v.log.Error("Identity provider unreachable", zap.Error(err), zap.String("booking_id", req.BookingID.String()))
		return IdentityResult{}, fmt.Errorf("verify identity for booking %s: %w", req.BookingID, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		v.log.Error("Identity provider error",
			zap.Int("status", res.StatusCode),
			zap.String("body", string(msg)),
			zap.String("booking_id", req.BookingID.String()),
		)
		return IdentityResult{}, fmt.Errorf("verify identity for booking %s: provider returned %d", req.BookingID, res.StatusCode)
	}

	var result IdentityResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return IdentityResult{}, fmt.Errorf("decode identity response: %w", err)
	}
	return result, nil
}

// StaticVerifier verifies everyone except the listed users. Used for local
// runs and tests.
type StaticVerifier struct {
	Unverified map[uuid.UUID]bool
}

func (s StaticVerifier) Verify(_ context.Context, req IdentityRequest) (IdentityResult, error) {
	return IdentityResult{
		ClientVerified:       !s.Unverified[req.ClientID],
		ProfessionalVerified: !s.Unverified[req.ProfessionalID],
	}, nil
}
