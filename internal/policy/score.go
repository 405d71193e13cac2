package policy

import "github.com/fyrsmithlabs/sentryd/internal/store"

// sensitivityBaseScore maps a sensitivity class to its base risk score.
// Unlisted classes score 0.5.
var sensitivityBaseScore = map[string]float64{
	"public":       0.0,
	"confidential": 0.4,
	"restricted":   0.8,
}

// SensitivityScore estimates a chunk's handling risk in [0, 1]: the base
// score of its sensitivity class plus 0.2 per PII tag, capped at 1.0.
func SensitivityScore(chunk *store.Chunk) float64 {
	base, ok := sensitivityBaseScore[string(chunk.Sensitivity)]
	if !ok {
		base = 0.5
	}

	score := base + 0.2*float64(len(chunk.PIITags))
	if score > 1.0 {
		return 1.0
	}
	return score
}
