// internal/common/errors/errors_test.go
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUpstreamStatusError_Classification(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{403, ErrCodeUpstreamBlocked, true},
		{408, ErrCodeUpstreamUnavailable, true},
		{429, ErrCodeUpstreamUnavailable, true},
		{500, ErrCodeUpstreamUnavailable, true},
		{503, ErrCodeUpstreamUnavailable, true},
		{404, ErrCodeUpstreamRejected, false},
		{400, ErrCodeUpstreamRejected, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := NewUpstreamStatusError("bank_branches", tt.status)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Equal(t, tt.status, StatusCode(err))
		})
	}
}

func TestIsRetryable_ThroughWrapping(t *testing.T) {
	base := NewUpstreamTimeoutError("rates_xml", context.DeadlineExceeded)
	wrapped := fmt.Errorf("attempt 2: %w", base)

	assert.True(t, IsRetryable(wrapped))
	assert.True(t, HasCode(wrapped, ErrCodeUpstreamTimeout))
	assert.True(t, stderrors.Is(wrapped, context.DeadlineExceeded))

	assert.False(t, IsRetryable(stderrors.New("plain")))
	assert.False(t, IsRetryable(NewUpstreamPayloadError("rates_xml", "bad xml")))
	assert.Equal(t, 0, StatusCode(stderrors.New("plain")))
}

func TestConvertToBPMNError(t *testing.T) {
	bpmn := ConvertToBPMNError(NewGenerationTimeoutError(context.DeadlineExceeded))
	assert.Equal(t, "GENERATION_TIMEOUT", bpmn.Code)
	assert.Equal(t, 1, bpmn.Retries)
	assert.Equal(t, "GENERATION_TIMEOUT", bpmn.ToErrorVariables()["originalErrorCode"])

	bpmn = ConvertToBPMNError(NewInvalidJobInputError("question is required"))
	assert.Equal(t, 0, bpmn.Retries)
	assert.False(t, bpmn.Retryable)
	assert.Equal(t, "question is required", bpmn.ToErrorVariables()["errorDetails"])
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "UPSTREAM", GetErrorCategory(ErrCodeUpstreamBlocked))
	assert.Equal(t, "GENERATION", GetErrorCategory(ErrCodeGenerationFailed))
	assert.Equal(t, "PERSISTENCE", GetErrorCategory(ErrCodeInteractionRecordFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidQuery))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}
