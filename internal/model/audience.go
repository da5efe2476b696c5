package model

import (
	"math"
	"time"
)

// Attitude is a stance category in an AttitudeBreakdown
type Attitude string

const (
	AttitudeSupport Attitude = "support"
	AttitudeNeutral Attitude = "neutral"
	AttitudeOppose  Attitude = "oppose"
)

// BreakdownTolerance is the allowed drift from 100 for a valid breakdown
const BreakdownTolerance = 0.01

// Breakdown is any three-way percentage split
type Breakdown interface {
	Values() []float64
}

// AttitudeBreakdown splits an audience by stance on the post topic (percentages)
type AttitudeBreakdown struct {
	Support float64 `json:"support"`
	Neutral float64 `json:"neutral"`
	Oppose  float64 `json:"oppose"`
}

// Values returns support, neutral and oppose in that order
func (a AttitudeBreakdown) Values() []float64 {
	return []float64{a.Support, a.Neutral, a.Oppose}
}

// PoliticalBreakdown splits an audience by political leaning (percentages)
type PoliticalBreakdown struct {
	Liberal      float64 `json:"liberal"`
	Moderate     float64 `json:"moderate"`
	Conservative float64 `json:"conservative"`
}

// Values returns liberal, moderate and conservative in that order
func (p PoliticalBreakdown) Values() []float64 {
	return []float64{p.Liberal, p.Moderate, p.Conservative}
}

// AudienceStatistics is the aggregate shown by the treatment and comparison arms.
// Instances are created once per subject and never mutated afterwards.
type AudienceStatistics struct {
	ViewerCount        int                `json:"viewerCount"`        // 100-500
	Political          PoliticalBreakdown `json:"political"`          // All viewers
	Attitudes          AttitudeBreakdown  `json:"attitudes"`          // All viewers
	CommenterAttitudes AttitudeBreakdown  `json:"commenterAttitudes"` // Only those who commented
	LastUpdated        time.Time          `json:"lastUpdated"`
}

// ValidBreakdown reports whether the categories of b sum to 100 within BreakdownTolerance
func ValidBreakdown(b Breakdown) bool {
	sum := 0.0
	for _, v := range b.Values() {
		sum += v
	}
	return math.Abs(sum-100) < BreakdownTolerance
}
