// Package divergence compares commenter and viewer attitude distributions.
package divergence

import (
	"fmt"
	"math"

	"github.com/ppiankov/feedlens/internal/model"
)

// Level buckets a divergence value for rendering
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
)

const (
	moderateThreshold    = 10.0
	highThreshold        = 20.0
	significantThreshold = 15.0
)

// Warning messages keyed by level. Renderers and tests match on these.
const (
	WarningHigh     = "⚠️ Strong divergence detected: The visible comments are significantly different from the overall audience views."
	WarningModerate = "⚠️ Moderate divergence: The comments may not fully represent all viewers."
	WarningLow      = "ℹ️ Low divergence: The comments generally align with overall viewer attitudes."
)

// Calculate returns the mean absolute per-category difference between a and b.
// The maximum for valid breakdowns is 200/3, not 100.
func Calculate(a, b model.AttitudeBreakdown) float64 {
	supportDiff := math.Abs(a.Support - b.Support)
	neutralDiff := math.Abs(a.Neutral - b.Neutral)
	opposeDiff := math.Abs(a.Oppose - b.Oppose)

	return (supportDiff + neutralDiff + opposeDiff) / 3
}

// LevelFor classifies d: low below 10, moderate below 20, high otherwise
func LevelFor(d float64) Level {
	if d < moderateThreshold {
		return LevelLow
	}
	if d < highThreshold {
		return LevelModerate
	}
	return LevelHigh
}

// IsSignificant reports whether the divergence exceeds 15 points.
// This threshold is independent of the three-band classification.
func IsSignificant(commenters, viewers model.AttitudeBreakdown) bool {
	return Calculate(commenters, viewers) > significantThreshold
}

// Dominant returns the attitude with the largest share. Support or oppose win
// only when strictly greater than both others; every other case is neutral.
func Dominant(b model.AttitudeBreakdown) model.Attitude {
	if b.Support > b.Neutral && b.Support > b.Oppose {
		return model.AttitudeSupport
	}
	if b.Oppose > b.Neutral && b.Oppose > b.Support {
		return model.AttitudeOppose
	}
	return model.AttitudeNeutral
}

// Comparison holds the dominant attitude on each side
type Comparison struct {
	Commenters   model.Attitude `json:"commenters"`
	Viewers      model.Attitude `json:"viewers"`
	AreDifferent bool           `json:"areDifferent"`
}

// Compare classifies both breakdowns and reports whether they disagree
func Compare(commenters, viewers model.AttitudeBreakdown) Comparison {
	c := Dominant(commenters)
	v := Dominant(viewers)

	return Comparison{
		Commenters:   c,
		Viewers:      v,
		AreDifferent: c != v,
	}
}

// WarningMessage returns the canonical banner text for d
func WarningMessage(d float64) string {
	switch LevelFor(d) {
	case LevelHigh:
		return WarningHigh
	case LevelModerate:
		return WarningModerate
	default:
		return WarningLow
	}
}

// Report is the render-ready result of comparing commenters with viewers
type Report struct {
	Divergence  float64    `json:"divergence"`
	Percent     int        `json:"percent"` // Divergence rounded for display
	Level       Level      `json:"level"`
	Significant bool       `json:"significant"`
	Comparison  Comparison `json:"comparison"`
	Warning     string     `json:"warning"`
	LeanNote    string     `json:"leanNote,omitempty"` // Only when dominant attitudes differ
}

// Analyze builds the full comparison report for a pair of breakdowns
func Analyze(commenters, viewers model.AttitudeBreakdown) Report {
	d := Calculate(commenters, viewers)
	cmp := Compare(commenters, viewers)

	report := Report{
		Divergence:  d,
		Percent:     int(math.Round(d)),
		Level:       LevelFor(d),
		Significant: d > significantThreshold,
		Comparison:  cmp,
		Warning:     WarningMessage(d),
	}

	if cmp.AreDifferent {
		report.LeanNote = fmt.Sprintf("Commenters lean %s, viewers lean %s", cmp.Commenters, cmp.Viewers)
	}

	return report
}
