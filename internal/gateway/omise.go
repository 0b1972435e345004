package gateway

import (
	"context"
	"fmt"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
	"go.uber.org/zap"
)

type omiseGateway struct {
	client *omise.Client
	log    *zap.Logger
}

func NewOmiseGateway(publicKey, secretKey string, log *zap.Logger) (PaymentGateway, error) {
	client, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("omise client: %w", err)
	}

	return &omiseGateway{
		client: client,
		log:    log.With(zap.String("gateway", "omise")),
	}, nil
}

func (g *omiseGateway) Capture(_ context.Context, req CaptureRequest) (CaptureResult, error) {
	if req.Amount <= 0 || req.Token == "" || req.Currency == "" {
		return CaptureResult{Reason: "invalid_params"}, nil
	}

	charge := &omise.Charge{}
	op := &operations.CreateCharge{
		Amount:   req.Amount,
		Currency: req.Currency,
		Card:     req.Token,
		Metadata: map[string]any{"booking_id": req.BookingID.String()},
	}
	if err := g.client.Do(charge, op); err != nil {
		g.log.Error("Failed to create charge", zap.Error(err), zap.String("booking_id", req.BookingID.String()))
		return CaptureResult{}, fmt.Errorf("create charge for booking %s: %w", req.BookingID, err)
	}

	result := captureResult(charge)
	g.log.Info("Charge created",
		zap.String("booking_id", req.BookingID.String()),
		zap.String("charge_id", charge.ID),
		zap.String("status", string(charge.Status)),
	)
	return result, nil
}

// captureResult maps an Omise charge to a capture outcome. Anything other
// than "successful" (pending, awaiting_authorize, failed) is not paid.
func captureResult(charge *omise.Charge) CaptureResult {
	if string(charge.Status) == "successful" {
		return CaptureResult{Paid: true, Reference: charge.ID}
	}

	reason := string(charge.Status)
	if charge.FailureCode != nil {
		reason = *charge.FailureCode
	}
	if charge.FailureMessage != nil {
		reason += ": " + *charge.FailureMessage
	}
	return CaptureResult{Reference: charge.ID, Reason: reason}
}

func (g *omiseGateway) Refund(_ context.Context, req RefundRequest) (RefundResult, error) {
	refund := &omise.Refund{}
	op := &operations.CreateRefund{
		ChargeID: req.ChargeID,
		Amount:   req.Amount,
	}
	if err := g.client.Do(refund, op); err != nil {
		g.log.Error("Failed to create refund",
			zap.Error(err),
			zap.String("booking_id", req.BookingID.String()),
			zap.String("charge_id", req.ChargeID),
		)
		return RefundResult{}, fmt.Errorf("refund charge %s: %w", req.ChargeID, err)
	}

	return RefundResult{Refunded: true, Amount: refund.Amount, Reference: refund.ID}, nil
}
