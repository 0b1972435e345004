package wire

import (
	"fmt"

	"companion-booking/internal/gateway"
	"companion-booking/internal/lifecycle"
	"companion-booking/internal/notifier"
	"companion-booking/internal/usecase"
	"companion-booking/pkg/clock"
	"companion-booking/pkg/utils"

	"go.uber.org/zap"
)

// PolicyFromConfig fills a lifecycle policy from config, keeping the
// defaults for anything unset.
func PolicyFromConfig(config utils.BookingConfig) lifecycle.Policy {
	p := lifecycle.DefaultPolicy()
	if lead := config.CancellationLeadTime; lead != nil && *lead >= 0 {
		p.CancellationLeadTime = *lead
	}
	if config.RequestExpiry > 0 {
		p.RequestExpiry = config.RequestExpiry
	}
	if config.FullRefundThreshold > 0 {
		p.FullRefundThreshold = config.FullRefundThreshold
	}
	if config.PartialRefundPercent > 0 && config.PartialRefundPercent <= 100 {
		p.PartialRefundPercent = config.PartialRefundPercent
	}
	if config.ReviewWindow > 0 {
		p.ReviewWindow = config.ReviewWindow
	}
	p.AutoStartSession = config.AutoStartSession
	return p
}

// NewDependencies picks the payment and identity drivers named in config.
// sink receives every committed booking event.
func NewDependencies(config *utils.Config, sink notifier.Sink, log *zap.Logger) (usecase.Dependencies, error) {
	var payments gateway.PaymentGateway
	switch config.Payment.Driver {
	case "omise":
		g, err := gateway.NewOmiseGateway(config.Payment.PublicKey, config.Payment.SecretKey, log)
		if err != nil {
			return usecase.Dependencies{}, err
		}
		payments = g
	case "simulated", "":
		payments = gateway.NewSimulatedGateway(config.Payment.FailTokens, log)
	default:
		return usecase.Dependencies{}, fmt.Errorf("unknown payment driver %q", config.Payment.Driver)
	}

	var identity gateway.IdentityVerifier
	switch config.Identity.Driver {
	case "http":
		if config.Identity.BaseURL == "" {
			return usecase.Dependencies{}, fmt.Errorf("identity driver http needs IDENTITY_BASE_URL")
		}
		identity = gateway.NewHTTPIdentityVerifier(config.Identity.BaseURL, config.Identity.Timeout, log)
	case "static", "":
		identity = gateway.StaticVerifier{}
	default:
		return usecase.Dependencies{}, fmt.Errorf("unknown identity driver %q", config.Identity.Driver)
	}

	var emitter *notifier.Emitter
	if sink != nil {
		emitter = notifier.NewEmitter(sink, log)
	}

	return usecase.Dependencies{
		Policy:     PolicyFromConfig(config.Booking),
		Clock:      clock.Real(),
		Payments:   payments,
		Identity:   identity,
		Emitter:    emitter,
		Currency:   config.Booking.Currency,
		SweepBatch: config.Sweep.BatchSize,
	}, nil
}
