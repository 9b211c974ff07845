// internal/common/camunda/client_test.go
package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banking-assistant/internal/common/config"
	apperrors "banking-assistant/internal/common/errors"
)

func createTestClient() *Client {
	return &Client{config: &ClientConfig{
		RetryConfig: &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	}}
}

func TestExecuteWithRetry_RetriesTransientErrors(t *testing.T) {
	c := createTestClient()
	calls := 0

	result, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return "ok", nil
	}, "deploy")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_MapsErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
		wantCode  apperrors.ErrorCode
	}{
		{"unavailable", errors.New("connection refused"), 3, apperrors.ErrCodeUpstreamUnavailable},
		{"timeout", errors.New("context deadline exceeded"), 3, apperrors.ErrCodeUpstreamTimeout},
		{"permanent", errors.New("permission denied"), 1, apperrors.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := createTestClient()
			calls := 0
			_, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
				calls++
				return nil, tt.err
			}, "publish")

			require.Error(t, err)
			assert.Equal(t, tt.wantCalls, calls)
			assert.True(t, apperrors.HasCode(err, tt.wantCode), err.Error())
		})
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", RequestTimeout: 30000})

	assert.Equal(t, "zeebe:26500", cfg.GatewayAddress)
	assert.True(t, cfg.UsePlaintextConnection)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, DefaultRetryConfig, cfg.RetryConfig)
}
