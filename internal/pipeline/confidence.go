// internal/pipeline/confidence.go
package pipeline

import "math"

const (
	intentWeight     = 0.6
	generationWeight = 0.4
	// noDataPenalty applies when enrichment was expected but no source
	// contributed.
	noDataPenalty = 0.7
)

// Confidence blends the analyzer confidence with the one reported by the
// generation service. A nil generation confidence leaves the intent
// confidence alone.
func Confidence(intentConfidence float64, generationConfidence *float64, enrichmentExpected, dataFound bool) float64 {
	c := intentConfidence
	if generationConfidence != nil {
		c = intentWeight*intentConfidence + generationWeight*clamp(*generationConfidence)
	}
	if enrichmentExpected && !dataFound {
		c *= noDataPenalty
	}
	return round2(clamp(c))
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
