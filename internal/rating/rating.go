// Package rating maps a likelihood/impact pair onto the university risk
// matrix: a numeric score and a severity band. The banding thresholds are
// the ones used by the register heatmap and every dashboard aggregation.
package rating

import "errors"

// Likelihood and impact are five-point ordinal scales.
const (
	ScaleMin = 1
	ScaleMax = 5
)

// ErrInvalidAssessment is returned when likelihood or impact falls outside
// the 1..5 scale.
var ErrInvalidAssessment = errors.New("rating: likelihood and impact must be between 1 and 5")

// Band is the severity classification derived from the score.
type Band string

const (
	BandLow      Band = "Low"
	BandMedium   Band = "Medium"
	BandHigh     Band = "High"
	BandCritical Band = "Critical"
)

// Rank orders bands from least to most severe (Low=0 .. Critical=3).
// Unknown bands rank below Low.
func (b Band) Rank() int {
	switch b {
	case BandLow:
		return 0
	case BandMedium:
		return 1
	case BandHigh:
		return 2
	case BandCritical:
		return 3
	default:
		return -1
	}
}

// Assessment is the result of rating a likelihood/impact pair.
type Assessment struct {
	Likelihood int  `json:"likelihood"`
	Impact     int  `json:"impact"`
	Score      int  `json:"score"`
	Band       Band `json:"band"`
}

// Rate computes score = likelihood * impact and classifies it. It is
// deterministic and side-effect free; both inputs must be in [1,5].
func Rate(likelihood, impact int) (Assessment, error) {
	if !ValidScale(likelihood) || !ValidScale(impact) {
		return Assessment{}, ErrInvalidAssessment
	}
	score := likelihood * impact
	return Assessment{
		Likelihood: likelihood,
		Impact:     impact,
		Score:      score,
		Band:       BandForScore(score),
	}, nil
}

// BandForScore applies the canonical threshold policy:
// Low <=4, Medium 5..9, High 10..16, Critical >=17.
func BandForScore(score int) Band {
	switch {
	case score >= 17:
		return BandCritical
	case score >= 10:
		return BandHigh
	case score >= 5:
		return BandMedium
	default:
		return BandLow
	}
}

// ValidScale reports whether v is a legal likelihood or impact value.
func ValidScale(v int) bool {
	return v >= ScaleMin && v <= ScaleMax
}
