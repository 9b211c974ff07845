// internal/workers/assistant/answer-query/models.go
package answerquery

import "banking-assistant/internal/models"

type Input struct {
	Question  string                  `json:"question"`
	SessionID string                  `json:"sessionId"`
	Intent    models.Intent           `json:"intent"`
	Retrieval *models.RetrievalResult `json:"retrieval"`
	History   []models.Turn           `json:"history"`
}

type Output struct {
	Response    string   `json:"response"`
	Confidence  float64  `json:"confidence"`
	DataSources []string `json:"dataSources"`
	Degraded    bool     `json:"degraded"`
}
