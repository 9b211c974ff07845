// pkg/registry/registry_test.go
package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistry_ShippedFile(t *testing.T) {
	reg, err := LoadRegistry("../../configs/activity-registry.json")
	require.NoError(t, err)

	assert.Empty(t, reg.Validate())
	for _, taskType := range []string{"analyze-query", "enrich-context", "answer-query"} {
		_, ok := reg.Find(taskType)
		assert.True(t, ok, taskType)
	}
}

func TestValidate_ReportsProblems(t *testing.T) {
	reg, err := Parse([]byte(`{"activities": [
		{"id": "a", "taskType": "analyze-query", "timeout": "5s"},
		{"id": "b", "taskType": "analyze-query", "timeout": "soon"},
		{"id": "c", "taskType": "Bad_Type", "inputSchema": {"type": 12}}
	]}`))
	require.NoError(t, err)

	errs := reg.Validate()
	assert.Len(t, errs, 4)
}

func TestValidateInput(t *testing.T) {
	reg, err := LoadRegistry("../../configs/activity-registry.json")
	require.NoError(t, err)

	result, err := reg.ValidateInput("analyze-query", map[string]interface{}{"question": "Where is the nearest ATM?"})
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = reg.ValidateInput("analyze-query", map[string]interface{}{"question": ""})
	require.NoError(t, err)
	assert.False(t, result.Valid)

	result, err = reg.ValidateInput("unknown-task", map[string]interface{}{})
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{`))
	assert.Error(t, err)
}

func TestUpdateAndSave(t *testing.T) {
	reg, err := Parse([]byte(`{"version": "1.0.0", "activities": [
		{"id": "analyze-query", "taskType": "analyze-query", "timeout": "5s", "retries": 3}
	]}`))
	require.NoError(t, err)

	require.NoError(t, reg.Update("analyze-query", "status", "verified"))
	require.NoError(t, reg.Update("analyze-query", "retries", "5"))
	require.NoError(t, reg.Update("analyze-query", "timeout", "10s"))
	assert.NotEmpty(t, reg.LastUpdated)

	assert.Error(t, reg.Update("analyze-query", "retries", "many"))
	assert.Error(t, reg.Update("analyze-query", "timeout", "soon"))
	assert.Error(t, reg.Update("analyze-query", "owner", "x"))
	assert.Error(t, reg.Update("missing", "status", "x"))

	path := filepath.Join(t.TempDir(), "nested", "registry.json")
	require.NoError(t, reg.Save(path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	a, ok := loaded.Find("analyze-query")
	require.True(t, ok)
	assert.Equal(t, "verified", a.ImplementationStatus)
	assert.Equal(t, 5, a.Retries)
	assert.Equal(t, "10s", a.Timeout)
}
