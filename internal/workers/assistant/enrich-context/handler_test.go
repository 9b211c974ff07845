// internal/workers/assistant/enrich-context/handler_test.go
package enrichcontext

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banking-assistant/internal/models"
	"banking-assistant/pkg/registry"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t *testing.T
}

func NewTestLogger(t *testing.T) *TestLogger { return &TestLogger{t: t} }

func (l *TestLogger) Info(msg string, fields map[string]interface{})  { l.t.Logf("INFO: %s %v", msg, fields) }
func (l *TestLogger) Warn(msg string, fields map[string]interface{})  { l.t.Logf("WARN: %s %v", msg, fields) }
func (l *TestLogger) Error(msg string, fields map[string]interface{}) { l.t.Logf("ERROR: %s %v", msg, fields) }
func (l *TestLogger) With(fields map[string]interface{}) Logger       { return l }

// ==========================
// Test Helper Functions
// ==========================

type fakeEnricher struct {
	result *models.RetrievalResult
	got    []models.Intent
}

func (f *fakeEnricher) Enrich(_ context.Context, intent models.Intent) *models.RetrievalResult {
	f.got = append(f.got, intent)
	return f.result
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func loadTestRegistry(t *testing.T) *registry.ActivityRegistry {
	t.Helper()
	reg, err := registry.LoadRegistry("../../../../configs/activity-registry.json")
	require.NoError(t, err)
	return reg
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	d := 1.2
	en := &fakeEnricher{result: &models.RetrievalResult{
		Locations:      []models.Location{{ID: "b1", Name: "Main branch", DistanceKm: &d}},
		TotalLocations: 1,
		DataSources:    []string{"bank_api"},
		ReferenceKind:  models.ReferenceLandmark,
	}}
	h := NewHandler(createTestConfig(), en, loadTestRegistry(t), NewTestLogger(t))

	intent := models.Intent{Kind: models.IntentLocation, Language: models.LanguageEnglish}
	output, err := h.Execute(context.Background(), &Input{Intent: intent})

	require.NoError(t, err)
	assert.Equal(t, []string{"bank_api"}, output.DataSources)
	require.Len(t, output.Retrieval.Locations, 1)
	require.Len(t, en.got, 1)
	assert.Equal(t, models.IntentLocation, en.got[0].Kind)
}

func TestHandler_Execute_NilResultBecomesEmpty(t *testing.T) {
	h := NewHandler(createTestConfig(), &fakeEnricher{}, nil, NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{Intent: models.Intent{Kind: models.IntentGeneral}})

	require.NoError(t, err)
	require.NotNil(t, output.Retrieval)
	assert.Equal(t, models.ReferenceNone, output.Retrieval.ReferenceKind)
	assert.Empty(t, output.DataSources)
}

// ==========================
// Input Validation Tests
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		wantErr   bool
	}{
		{"valid", `{"intent": {"kind": "location", "language": "en", "confidence": 1}}`, false},
		{"missing intent", `{}`, true},
		{"missing kind", `{"intent": {"language": "en"}}`, true},
		{"unknown kind", `{"intent": {"kind": "weather"}}`, true},
		{"unknown language", `{"intent": {"kind": "currency", "language": "de"}}`, true},
	}

	h := NewHandler(createTestConfig(), &fakeEnricher{}, loadTestRegistry(t), NewTestLogger(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := h.ParseInput(tt.variables)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.IntentLocation, input.Intent.Kind)
		})
	}
}
