// internal/workers/assistant/analyze-query/handler_test.go
package analyzequery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banking-assistant/internal/analyzer"
	"banking-assistant/internal/models"
	"banking-assistant/internal/pipeline"
	"banking-assistant/pkg/registry"
)

// ==========================
// Test Logger Implementation
// ==========================

// TestLogger implements the Logger interface for testing
type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t, fields: make(map[string]interface{})}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{t: l.t, fields: merged}
}

// BenchmarkLogger is a minimal logger for benchmarks
type BenchmarkLogger struct{}

func (b *BenchmarkLogger) Info(msg string, fields map[string]interface{})  {}
func (b *BenchmarkLogger) Warn(msg string, fields map[string]interface{})  {}
func (b *BenchmarkLogger) Error(msg string, fields map[string]interface{}) {}
func (b *BenchmarkLogger) With(fields map[string]interface{}) Logger       { return b }

// ==========================
// Test Helper Functions
// ==========================

type serviceAnalyzer struct {
	a *analyzer.Analyzer
}

func (s serviceAnalyzer) Analyze(question string, loc *models.Coordinates) (models.Intent, error) {
	q, err := pipeline.ValidateQuestion(question)
	if err != nil {
		return models.Intent{}, err
	}
	var qctx *analyzer.QueryContext
	if loc != nil {
		qctx = &analyzer.QueryContext{UserLocation: loc}
	}
	return s.a.Analyze(q, qctx), nil
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

func createTestHandler(t *testing.T) *Handler {
	return NewHandler(createTestConfig(), serviceAnalyzer{a: analyzer.New()}, loadTestRegistry(t), NewTestLogger(t))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		name         string
		input        *Input
		wantKind     models.IntentKind
		wantLanguage models.Language
		wantSubtype  string
		wantUserLoc  bool
	}{
		{
			name:         "english atm with location",
			input:        &Input{Question: "Where is the nearest ATM?", UserLocation: &models.Coordinates{Latitude: 40.38, Longitude: 49.85}},
			wantKind:     models.IntentLocation,
			wantLanguage: models.LanguageEnglish,
			wantSubtype:  models.SubtypeATM,
			wantUserLoc:  true,
		},
		{
			name:         "russian branch",
			input:        &Input{Question: "Где ближайший филиал?"},
			wantKind:     models.IntentLocation,
			wantLanguage: models.LanguageRussian,
			wantSubtype:  models.SubtypeBranch,
		},
		{
			name:         "currency",
			input:        &Input{Question: "What is the USD exchange rate?"},
			wantKind:     models.IntentCurrency,
			wantLanguage: models.LanguageEnglish,
		},
	}

	h := createTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := h.Execute(context.Background(), tt.input)

			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, output.Intent.Kind)
			assert.Equal(t, tt.wantLanguage, output.Intent.Language)
			assert.Equal(t, tt.wantSubtype, output.Intent.Entities.Subtype)
			assert.Equal(t, tt.wantUserLoc, output.Intent.Entities.UserLocation != nil)
		})
	}
}

func TestHandler_Execute_InvalidQuestion(t *testing.T) {
	h := createTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{Question: "   "})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
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
		{"valid", `{"question": "Where is the nearest ATM?"}`, false},
		{"valid with location", `{"question": "ATM", "userLocation": {"latitude": 40.4, "longitude": 49.8}}`, false},
		{"missing question", `{"userLocation": {"latitude": 40.4, "longitude": 49.8}}`, true},
		{"empty question", `{"question": ""}`, true},
		{"latitude out of range", `{"question": "ATM", "userLocation": {"latitude": 140, "longitude": 49.8}}`, true},
		{"malformed json", `{"question":`, true},
	}

	h := createTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := h.ParseInput(tt.variables)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, input.Question)
		})
	}
}

func TestHandler_ParseInput_NoRegistry(t *testing.T) {
	h := NewHandler(createTestConfig(), serviceAnalyzer{a: analyzer.New()}, nil, NewTestLogger(t))

	input, err := h.ParseInput(`{"question": ""}`)

	require.NoError(t, err, "without a registry only decoding is checked")
	assert.Equal(t, "", input.Question)
}

func TestToStandardError(t *testing.T) {
	err := toStandardError(ErrInvalidInput)
	assert.Contains(t, err.Error(), "INVALID_JOB_INPUT")

	other := errors.New("boom")
	assert.Equal(t, other, toStandardError(other))
}

// ==========================
// Benchmarks
// ==========================

func BenchmarkHandler_Execute(b *testing.B) {
	handler := NewHandler(createTestConfig(), serviceAnalyzer{a: analyzer.New()}, nil, &BenchmarkLogger{})
	input := &Input{Question: "Ən yaxın bankomat Fəvvarələr meydanı yaxınlığında haradadır?"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = handler.Execute(context.Background(), input)
	}
}

func BenchmarkHandler_ParseInput(b *testing.B) {
	reg, err := registry.LoadRegistry("../../../../configs/activity-registry.json")
	if err != nil {
		b.Fatal(err)
	}
	handler := NewHandler(createTestConfig(), serviceAnalyzer{a: analyzer.New()}, reg, &BenchmarkLogger{})
	variables := `{"question": "Where is the nearest ATM?", "userLocation": {"latitude": 40.37, "longitude": 49.84}}`

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = handler.ParseInput(variables)
	}
}
