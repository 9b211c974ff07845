// internal/workers/assistant/analyze-query/models.go
package analyzequery

import "banking-assistant/internal/models"

type Input struct {
	Question     string              `json:"question"`
	UserLocation *models.Coordinates `json:"userLocation,omitempty"`
}

type Output struct {
	Intent models.Intent `json:"intent"`
}
