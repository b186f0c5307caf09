package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{ServiceName: "devtracker"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_WithEndpoint(t *testing.T) {
	// Exporters connect lazily, so an unreachable collector does not fail Init.
	shutdown, err := Init(context.Background(), Options{
		Endpoint:    "127.0.0.1:4318",
		Insecure:    true,
		ServiceName: "devtracker",
		Version:     "test",
	})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
