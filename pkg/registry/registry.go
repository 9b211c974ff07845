// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"banking-assistant/internal/common/validation"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes registry JSON.
func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("invalid registry: %w", err)
	}
	return &reg, nil
}

// Find returns the activity registered for taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// Validate checks every activity: task type naming, unique task types,
// compilable schemas and a parseable timeout.
func (r *ActivityRegistry) Validate() []error {
	var errs []error
	seen := make(map[string]bool)
	for _, a := range r.Activities {
		if err := validation.ValidateTaskType(a.TaskType); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.ID, err))
		}
		if seen[a.TaskType] {
			errs = append(errs, fmt.Errorf("%s: duplicate task type %q", a.ID, a.TaskType))
		}
		seen[a.TaskType] = true

		if len(a.InputSchema) > 0 {
			if err := validation.CompileSchema(a.InputSchema); err != nil {
				errs = append(errs, fmt.Errorf("%s: input %w", a.ID, err))
			}
		}
		if len(a.OutputSchema) > 0 {
			if err := validation.CompileSchema(a.OutputSchema); err != nil {
				errs = append(errs, fmt.Errorf("%s: output %w", a.ID, err))
			}
		}
		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid timeout %q", a.ID, a.Timeout))
			}
		}
	}
	return errs
}

// ValidateInput checks job variables against the input schema of taskType.
// Unknown task types pass.
func (r *ActivityRegistry) ValidateInput(taskType string, variables map[string]interface{}) (*validation.ValidationResult, error) {
	a, ok := r.Find(taskType)
	if !ok {
		return &validation.ValidationResult{Valid: true}, nil
	}
	return validation.ValidateDocument(a.InputSchema, variables)
}

// Update sets one field of the activity with the given ID and stamps
// LastUpdated.
func (r *ActivityRegistry) Update(id, field, value string) error {
	var activity *Activity
	for i := range r.Activities {
		if r.Activities[i].ID == id {
			activity = &r.Activities[i]
			break
		}
	}
	if activity == nil {
		return fmt.Errorf("activity with ID %s not found", id)
	}

	switch field {
	case "status":
		activity.ImplementationStatus = value
	case "version":
		activity.Version = value
	case "displayName":
		activity.DisplayName = value
	case "description":
		activity.Description = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		activity.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		activity.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return nil
}

// Save writes the registry as indented JSON.
func (r *ActivityRegistry) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}
