package obs

import (
	"context"
	"testing"

	"companion-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracerWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), utils.TelemetryConfig{}, utils.AppConfig{Name: "test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
