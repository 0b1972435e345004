package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	require.NoError(t, flags.Parse([]string{"--config", filepath.Join(t.TempDir(), "missing.env")}))

	cfg, err := LoadConfig(flags)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "postgres", cfg.App.StorageDriver)
	require.NotNil(t, cfg.Booking.CancellationLeadTime)
	assert.Equal(t, 24*time.Hour, *cfg.Booking.CancellationLeadTime)
	assert.Equal(t, 48*time.Hour, cfg.Booking.RequestExpiry)
	assert.Equal(t, 12*time.Hour, cfg.Booking.FullRefundThreshold)
	assert.Equal(t, int64(50), cfg.Booking.PartialRefundPercent)
	assert.Equal(t, 24*time.Hour, cfg.Booking.ReviewWindow)
	assert.False(t, cfg.Booking.AutoStartSession)
	assert.Equal(t, "simulated", cfg.Payment.Driver)
	assert.Equal(t, []string{"tokn_fail"}, cfg.Payment.FailTokens)
	assert.Equal(t, time.Minute, cfg.Sweep.Interval)
}

func TestLoadConfigFileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "APP_NAME=booking-test\nPORT=9000\nBOOKING_REVIEW_WINDOW=36h\nSTORAGE_DRIVER=postgres\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("BOOKING_AUTO_START_SESSION", "true")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	require.NoError(t, flags.Parse([]string{"--config", path, "--storage", "memory"}))

	cfg, err := LoadConfig(flags)
	require.NoError(t, err)

	assert.Equal(t, "booking-test", cfg.App.Name)
	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "memory", cfg.App.StorageDriver)
	assert.Equal(t, 36*time.Hour, cfg.Booking.ReviewWindow)
	assert.True(t, cfg.Booking.AutoStartSession)
}

func TestLoadConfigZeroCancellationLead(t *testing.T) {
	t.Setenv("BOOKING_CANCELLATION_LEAD", "0s")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	require.NoError(t, flags.Parse([]string{"--config", filepath.Join(t.TempDir(), "missing.env")}))

	cfg, err := LoadConfig(flags)
	require.NoError(t, err)

	require.NotNil(t, cfg.Booking.CancellationLeadTime)
	assert.Zero(t, *cfg.Booking.CancellationLeadTime)
}
