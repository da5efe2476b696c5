package page

import (
	"fmt"

	"github.com/ppiankov/feedlens/internal/divergence"
	"github.com/ppiankov/feedlens/internal/model"
)

// Fixed copy rendered with the audience panels
const (
	PrivacyNote = "Your privacy is protected:\n\n" +
		"• Individual views are never shown\n" +
		"• Data is aggregated and anonymized\n" +
		"• Only statistical summaries are displayed\n" +
		"• No personally identifiable information is revealed"

	AllViewersNote     = "ℹ️ These statistics show ALL viewers, not just those who commented."
	CommentsWarning    = "⚠️ Note: Comments may not represent all viewers. See audience statistics above."
	DifferentViewsNote = "The people commenting on this post have notably different views than those who are just viewing it."
)

// MethodologyNote explains where the numbers come from
func MethodologyNote(viewerCount int) string {
	return fmt.Sprintf("These statistics are based on %d viewers who accessed this post in the last 24 hours.\n\n"+
		"Political affiliations and attitudes are derived from user profile data and engagement patterns.\n\n"+
		"Updated every hour to reflect current audience.", viewerCount)
}

// Bar is one labelled percentage in a bar group
type Bar struct {
	Label      string  `json:"label"`
	Percentage float64 `json:"percentage"`
}

func bar(label string, pct float64) Bar {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return Bar{Label: label, Percentage: pct}
}

func politicalBars(p model.PoliticalBreakdown) []Bar {
	return []Bar{
		bar("Liberal", p.Liberal),
		bar("Moderate", p.Moderate),
		bar("Conservative", p.Conservative),
	}
}

func attitudeBars(a model.AttitudeBreakdown) []Bar {
	return []Bar{
		bar("Support", a.Support),
		bar("Neutral", a.Neutral),
		bar("Oppose", a.Oppose),
	}
}

// AudiencePanel is the treatment arm's statistics panel
type AudiencePanel struct {
	ViewerCount int    `json:"viewerCount"`
	Political   []Bar  `json:"political"`
	Attitudes   []Bar  `json:"attitudes"`
	Methodology string `json:"methodology"`
	Privacy     string `json:"privacy"`
	Note        string `json:"note"`
}

// NewAudiencePanel builds the treatment panel from stats
func NewAudiencePanel(stats model.AudienceStatistics) *AudiencePanel {
	return &AudiencePanel{
		ViewerCount: stats.ViewerCount,
		Political:   politicalBars(stats.Political),
		Attitudes:   attitudeBars(stats.Attitudes),
		Methodology: MethodologyNote(stats.ViewerCount),
		Privacy:     PrivacyNote,
		Note:        AllViewersNote,
	}
}

// ComparisonPanel is the comparison arm's commenters-vs-viewers panel
type ComparisonPanel struct {
	CommenterCount int               `json:"commenterCount"`
	CommenterNoun  string            `json:"commenterNoun"`
	ViewerCount    int               `json:"viewerCount"`
	ViewerNoun     string            `json:"viewerNoun"`
	Commenters     []Bar             `json:"commenters"`
	Viewers        []Bar             `json:"viewers"`
	Report         divergence.Report `json:"report"`
	Note           string            `json:"note,omitempty"`
}

// NewComparisonPanel builds the comparison panel. commenterCount is the
// number of comments actually loaded for the post.
func NewComparisonPanel(stats model.AudienceStatistics, commenterCount int) *ComparisonPanel {
	report := divergence.Analyze(stats.CommenterAttitudes, stats.Attitudes)

	p := &ComparisonPanel{
		CommenterCount: commenterCount,
		CommenterNoun:  people(commenterCount),
		ViewerCount:    stats.ViewerCount,
		ViewerNoun:     people(stats.ViewerCount),
		Commenters:     attitudeBars(stats.CommenterAttitudes),
		Viewers:        attitudeBars(stats.Attitudes),
		Report:         report,
	}
	if report.Comparison.AreDifferent {
		p.Note = DifferentViewsNote
	}
	return p
}

func people(n int) string {
	if n == 1 {
		return "person"
	}
	return "people"
}
