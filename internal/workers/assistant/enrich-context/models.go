// internal/workers/assistant/enrich-context/models.go
package enrichcontext

import "banking-assistant/internal/models"

type Input struct {
	Intent models.Intent `json:"intent"`
}

type Output struct {
	Retrieval   *models.RetrievalResult `json:"retrieval"`
	DataSources []string                `json:"dataSources"`
}
