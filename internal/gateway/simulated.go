package gateway

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SimulatedGateway approves every capture except the configured fail
// tokens, and remembers captured amounts so refunds can be checked.
type SimulatedGateway struct {
	mu         sync.Mutex
	failTokens map[string]bool
	captured   map[string]int64
	refunded   map[string]int64
	log        *zap.Logger
}

func NewSimulatedGateway(failTokens []string, log *zap.Logger) *SimulatedGateway {
	fail := make(map[string]bool, len(failTokens))
	for _, t := range failTokens {
		fail[t] = true
	}
	return &SimulatedGateway{
		failTokens: fail,
		captured:   make(map[string]int64),
		refunded:   make(map[string]int64),
		log:        log.With(zap.String("gateway", "simulated")),
	}
}

func (g *SimulatedGateway) Capture(_ context.Context, req CaptureRequest) (CaptureResult, error) {
	if g.failTokens[req.Token] || req.Token == "" {
		g.log.Info("Simulated charge declined", zap.String("booking_id", req.BookingID.String()))
		return CaptureResult{Reason: "card_declined"}, nil
	}

	ref := "chrg_sim_" + uuid.NewString()
	g.mu.Lock()
	g.captured[ref] = req.Amount
	g.mu.Unlock()

	return CaptureResult{Paid: true, Reference: ref}, nil
}

// Refund fails when more than the captured amount would be returned.
func (g *SimulatedGateway) Refund(_ context.Context, req RefundRequest) (RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	captured, ok := g.captured[req.ChargeID]
	if !ok || g.refunded[req.ChargeID]+req.Amount > captured {
		g.log.Warn("Simulated refund rejected",
			zap.String("charge_id", req.ChargeID),
			zap.Int64("amount", req.Amount),
		)
		return RefundResult{}, nil
	}
	g.refunded[req.ChargeID] += req.Amount

	return RefundResult{Refunded: true, Amount: req.Amount, Reference: "rfnd_sim_" + uuid.NewString()}, nil
}

// Refunded returns the total refunded against a charge.
func (g *SimulatedGateway) Refunded(chargeID string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refunded[chargeID]
}
