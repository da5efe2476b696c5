package model

import "time"

// EventName is the telemetry event taxonomy
type EventName string

const (
	EventPostViewed      EventName = "post_viewed"
	EventPostEngagement  EventName = "post_engagement"
	EventPostDwellTime   EventName = "post_dwell_time"
	EventPostScrollDepth EventName = "post_scroll_depth"
)

// EngagementKind classifies a viewer interaction on the post detail page
type EngagementKind string

const (
	EngagementLike         EngagementKind = "like"
	EngagementComment      EngagementKind = "comment"
	EngagementShare        EngagementKind = "share"
	EngagementProfileClick EngagementKind = "profile_click"
	EngagementBackButton   EngagementKind = "back_button"
)

// EngagementKinds lists the fixed engagement vocabulary
var EngagementKinds = []EngagementKind{
	EngagementLike,
	EngagementComment,
	EngagementShare,
	EngagementProfileClick,
	EngagementBackButton,
}

// ParseEngagementKind returns the kind named by s
func ParseEngagementKind(s string) (EngagementKind, bool) {
	for _, k := range EngagementKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// IsPositive reports whether the interaction counts as positive engagement.
// Only back_button is negative.
func (k EngagementKind) IsPositive() bool {
	switch k {
	case EngagementLike, EngagementComment, EngagementShare, EngagementProfileClick:
		return true
	default:
		return false
	}
}

// Event is an immutable telemetry record handed to a sink
type Event interface {
	Name() EventName
	Properties() map[string]any
}

// FormatTimestamp renders t the way every event stamps itself (ISO-8601, UTC, millis)
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// PostViewed is sent once per post detail render
type PostViewed struct {
	PostID    string  `json:"post_id"`
	Variant   Variant `json:"variant"`
	Timestamp string  `json:"timestamp"`
}

func (e PostViewed) Name() EventName { return EventPostViewed }

func (e PostViewed) Properties() map[string]any {
	return map[string]any{
		"post_id":   e.PostID,
		"variant":   string(e.Variant),
		"timestamp": e.Timestamp,
	}
}

// PostEngagement records a single interaction
type PostEngagement struct {
	PostID         string         `json:"post_id"`
	Variant        Variant        `json:"variant"`
	EngagementType EngagementKind `json:"engagement_type"`
	IsPositive     bool           `json:"is_positive"` // false only for back_button
	Timestamp      string         `json:"timestamp"`
}

func (e PostEngagement) Name() EventName { return EventPostEngagement }

func (e PostEngagement) Properties() map[string]any {
	return map[string]any{
		"post_id":         e.PostID,
		"variant":         string(e.Variant),
		"engagement_type": string(e.EngagementType),
		"is_positive":     e.IsPositive,
		"timestamp":       e.Timestamp,
	}
}

// PostDwellTime reports how long the page stayed open
type PostDwellTime struct {
	PostID           string  `json:"post_id"`
	Variant          Variant `json:"variant"`
	DwellTimeSeconds int     `json:"dwell_time_seconds"`
	WasVisible       bool    `json:"was_visible"` // Visible for more than half of the dwell time
	Timestamp        string  `json:"timestamp"`
}

func (e PostDwellTime) Name() EventName { return EventPostDwellTime }

func (e PostDwellTime) Properties() map[string]any {
	return map[string]any{
		"post_id":            e.PostID,
		"variant":            string(e.Variant),
		"dwell_time_seconds": e.DwellTimeSeconds,
		"was_visible":        e.WasVisible,
		"timestamp":          e.Timestamp,
	}
}

// PostScrollDepth reports current and maximum scroll position, both 0-100
type PostScrollDepth struct {
	PostID           string  `json:"post_id"`
	Variant          Variant `json:"variant"`
	ScrollPercentage int     `json:"scroll_percentage"`
	MaxScrollReached int     `json:"max_scroll_reached"`
	Timestamp        string  `json:"timestamp"`
}

func (e PostScrollDepth) Name() EventName { return EventPostScrollDepth }

func (e PostScrollDepth) Properties() map[string]any {
	return map[string]any{
		"post_id":            e.PostID,
		"variant":            string(e.Variant),
		"scroll_percentage":  e.ScrollPercentage,
		"max_scroll_reached": e.MaxScrollReached,
		"timestamp":          e.Timestamp,
	}
}
