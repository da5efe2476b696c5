// Package audience produces synthetic audience statistics for posts.
//
// The generator output only has to honour the data contract: every breakdown
// sums to exactly 100 with a per-category floor, and commenter attitudes drift
// away from the full-audience attitudes so the comparison arm has something to show.
package audience

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ppiankov/feedlens/internal/model"
)

const (
	minViewers   = 100
	viewerSpread = 400

	politicalFloor = 10
	attitudeFloor  = 8

	commenterFloor = 5.0
	commenterCap   = 90.0
	commenterDrift = 40.0 // Total width of the +/-20 point perturbation
)

// Generator builds randomized AudienceStatistics. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// GeneratorOption configures a Generator
type GeneratorOption func(*Generator)

// WithRand sets the random source (tests use a seeded PCG)
func WithRand(r *rand.Rand) GeneratorOption {
	return func(g *Generator) { g.rnd = r }
}

// WithClock sets the timestamp source for LastUpdated
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a generator seeded from the runtime's random source
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RandomBreakdown splits 100 into categories integer percentages, each at
// least minPercentage. categories*minPercentage must not exceed 100.
func (g *Generator) RandomBreakdown(categories, minPercentage int) ([]int, error) {
	if categories < 1 {
		return nil, fmt.Errorf("categories must be positive, got %d", categories)
	}
	if minPercentage < 0 || categories*minPercentage > 100 {
		return nil, fmt.Errorf("floor %d impossible for %d categories", minPercentage, categories)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.randomBreakdown(categories, minPercentage), nil
}

// randomBreakdown expects g.mu to be held
func (g *Generator) randomBreakdown(categories, minPercentage int) []int {
	raw := make([]float64, categories)
	sum := 0.0
	for i := range raw {
		raw[i] = g.rnd.Float64() + 0.1
		sum += raw[i]
	}

	percentages := make([]int, categories)
	total := 0
	for i, r := range raw {
		p := int(math.Round(r / sum * 100))
		if p < minPercentage {
			p = minPercentage
		}
		percentages[i] = p
		total += p
	}

	// A shortfall goes entirely to the first largest category
	if total < 100 {
		percentages[largestIndex(percentages, 0)] += 100 - total
	}

	// An excess is taken from the largest categories without crossing the floor
	for excess := total - 100; excess > 0; {
		i := largestIndex(percentages, minPercentage)
		take := min(excess, percentages[i]-minPercentage)
		percentages[i] -= take
		excess -= take
	}

	return percentages
}

// largestIndex returns the first index holding the largest value above floor.
// It returns 0 when every value is at or below floor.
func largestIndex(percentages []int, floor int) int {
	best := 0
	for i, p := range percentages {
		if p > floor && (percentages[best] <= floor || p > percentages[best]) {
			best = i
		}
	}
	return best
}

// PoliticalBreakdown returns a liberal/moderate/conservative split with a floor of 10
func (g *Generator) PoliticalBreakdown() model.PoliticalBreakdown {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.politicalBreakdown()
}

func (g *Generator) politicalBreakdown() model.PoliticalBreakdown {
	p := g.randomBreakdown(3, politicalFloor)
	return model.PoliticalBreakdown{
		Liberal:      float64(p[0]),
		Moderate:     float64(p[1]),
		Conservative: float64(p[2]),
	}
}

// AttitudeBreakdown returns a support/neutral/oppose split with a floor of 8
func (g *Generator) AttitudeBreakdown() model.AttitudeBreakdown {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attitudeBreakdown()
}

func (g *Generator) attitudeBreakdown() model.AttitudeBreakdown {
	a := g.randomBreakdown(3, attitudeFloor)
	return model.AttitudeBreakdown{
		Support: float64(a[0]),
		Neutral: float64(a[1]),
		Oppose:  float64(a[2]),
	}
}

// CommenterAttitudes derives a commenter breakdown that diverges from viewers
func (g *Generator) CommenterAttitudes(viewers model.AttitudeBreakdown) model.AttitudeBreakdown {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.commenterAttitudes(viewers)
}

func (g *Generator) commenterAttitudes(viewers model.AttitudeBreakdown) model.AttitudeBreakdown {
	drift := func() float64 { return (g.rnd.Float64() - 0.5) * commenterDrift }

	support := clamp(viewers.Support+drift(), commenterFloor, commenterCap)
	oppose := clamp(viewers.Oppose+drift(), commenterFloor, commenterCap)
	neutral := 100 - support - oppose

	if neutral < commenterFloor {
		deficit := commenterFloor - neutral
		neutral = commenterFloor
		if support > oppose {
			support -= deficit
		} else {
			oppose -= deficit
		}
	}

	support = math.Round(support)
	oppose = math.Round(oppose)
	neutral = math.Round(neutral)

	if sum := support + neutral + oppose; sum != 100 {
		neutral += 100 - sum
	}

	return model.AttitudeBreakdown{Support: support, Neutral: neutral, Oppose: oppose}
}

// Generate composes a full AudienceStatistics value. The subject does not seed
// the randomness: stability across calls is the cache's job.
func (g *Generator) Generate(subjectID string) model.AudienceStatistics {
	g.mu.Lock()
	defer g.mu.Unlock()

	viewerCount := g.rnd.IntN(viewerSpread) + minViewers
	political := g.politicalBreakdown()
	attitudes := g.attitudeBreakdown()
	commenters := g.commenterAttitudes(attitudes)

	return model.AudienceStatistics{
		ViewerCount:        viewerCount,
		Political:          political,
		Attitudes:          attitudes,
		CommenterAttitudes: commenters,
		LastUpdated:        g.now().UTC(),
	}
}

// ValidateBreakdown reports whether b sums to 100 within tolerance
func ValidateBreakdown(b model.Breakdown) bool {
	return model.ValidBreakdown(b)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
