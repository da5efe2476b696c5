// Package page composes content, audience statistics, variant assignment and
// tracking into render-ready view models for the feed and post detail pages.
package page

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/feedlens/internal/audience"
	"github.com/ppiankov/feedlens/internal/model"
	"github.com/ppiankov/feedlens/internal/tracking"
	"github.com/ppiankov/feedlens/internal/variant"
)

// ErrEmptyComment is returned when a comment has no text
var ErrEmptyComment = errors.New("comment text is empty")

// ContentAPI is the remote content service
type ContentAPI interface {
	FetchFeed(ctx context.Context, cursor string) (model.FeedPage, error)
	FetchPostDetail(ctx context.Context, postID, viewerID string) (model.PostDetail, error)
	LikePost(ctx context.Context, postID, viewerID string) (model.InteractionResult, error)
	SharePost(ctx context.Context, postID, viewerID string) (model.InteractionResult, error)
	CommentPost(ctx context.Context, postID, viewerID, text string) (model.InteractionResult, error)
}

// Warmer pre-populates audience statistics for a batch of subjects
type Warmer interface {
	Warm(ctx context.Context, ids []string) error
}

// Controller drives the pages for one viewer
type Controller struct {
	content  ContentAPI
	resolver *variant.Resolver
	stats    audience.Source
	tracker  *tracking.Tracker
	sessions *tracking.Sessions

	viewerID       string
	showDebug      bool
	scrollInterval time.Duration
	logger         zerolog.Logger

	mu      sync.Mutex
	closed  bool
	warming sync.WaitGroup
}

// Option configures a Controller
type Option func(*Controller)

// WithStats sets the audience statistics source
func WithStats(src audience.Source) Option {
	return func(c *Controller) { c.stats = src }
}

// WithTracker sets the engagement tracker
func WithTracker(t *tracking.Tracker) Option {
	return func(c *Controller) { c.tracker = t }
}

// WithViewerID sets the id sent with content API calls
func WithViewerID(id string) Option {
	return func(c *Controller) { c.viewerID = id }
}

// WithDebugControls exposes the variant toggle in view models
func WithDebugControls(show bool) Option {
	return func(c *Controller) { c.showDebug = show }
}

// WithScrollInterval sets the periodic scroll flush cadence
func WithScrollInterval(d time.Duration) Option {
	return func(c *Controller) { c.scrollInterval = d }
}

// WithLogger attaches a logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a controller
func New(content ContentAPI, resolver *variant.Resolver, opts ...Option) *Controller {
	c := &Controller{
		content:        content,
		resolver:       resolver,
		tracker:        tracking.NewTracker(nil),
		sessions:       tracking.NewSessions(),
		viewerID:       "current-user",
		scrollInterval: tracking.DefaultScrollInterval,
		logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VariantOption is one entry of the debug variant toggle
type VariantOption struct {
	Value       model.Variant `json:"value"`
	DisplayName string        `json:"displayName"`
	Active      bool          `json:"active"`
}

// VariantView describes the active arm
type VariantView struct {
	Variant     model.Variant   `json:"variant"`
	DisplayName string          `json:"displayName"`
	Origin      variant.Origin  `json:"origin"`
	Loading     bool            `json:"loading"`
	Override    *model.Variant  `json:"override,omitempty"`
	Options     []VariantOption `json:"options,omitempty"` // Only with debug controls
}

// Variant returns the active arm and, with debug controls, the toggle options
func (c *Controller) Variant() VariantView {
	state := c.resolver.State()
	view := VariantView{
		Variant:     state.Variant,
		DisplayName: state.Variant.DisplayName(),
		Origin:      state.Origin,
		Loading:     state.Loading,
	}
	if v, ok := c.resolver.Override(); ok {
		view.Override = &v
	}
	if c.showDebug {
		for _, v := range model.Variants {
			view.Options = append(view.Options, VariantOption{
				Value:       v,
				DisplayName: v.DisplayName(),
				Active:      v == state.Variant,
			})
		}
	}
	return view
}

// SetOverride sets or, with nil, clears the manual override
func (c *Controller) SetOverride(v *model.Variant) (VariantView, error) {
	if err := c.resolver.SetManualOverride(v); err != nil {
		return VariantView{}, err
	}
	return c.Variant(), nil
}

// FeedView is one rendered feed page
type FeedView struct {
	Items      []model.Post  `json:"items"`
	NextCursor *string       `json:"next_cursor"`
	Variant    model.Variant `json:"variant"`
}

// Feed loads a feed page. When the active arm shows statistics, the listed
// posts are warmed in the background.
func (c *Controller) Feed(ctx context.Context, cursor string) (FeedView, error) {
	page, err := c.content.FetchFeed(ctx, cursor)
	if err != nil {
		return FeedView{}, fmt.Errorf("load feed: %w", err)
	}
	if page.Items == nil {
		page.Items = []model.Post{}
	}

	v := c.resolver.Resolve()
	if v.NeedsStats() {
		c.warm(ctx, page.Items)
	}

	return FeedView{Items: page.Items, NextCursor: page.NextCursor, Variant: v}, nil
}

func (c *Controller) warm(ctx context.Context, posts []model.Post) {
	w, ok := c.stats.(Warmer)
	if !ok || !c.stats.IsAvailable() || len(posts) == 0 {
		return
	}

	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	ctx = context.WithoutCancel(ctx)
	c.warming.Add(1)
	go func() {
		defer c.warming.Done()
		if err := w.Warm(ctx, ids); err != nil {
			c.logger.Warn().Err(err).Int("posts", len(ids)).Msg("stats warm-up failed")
		}
	}()
}

// PostDetailView is the rendered post detail page
type PostDetailView struct {
	Post               model.Post       `json:"post"`
	Comments           []model.Comment  `json:"comments"`
	LikedByCurrentUser bool             `json:"liked_by_current_user"`
	Variant            VariantView      `json:"variant"`
	Rendered           model.Variant    `json:"rendered"` // Arm actually rendered; control when stats are unavailable
	Audience           *AudiencePanel   `json:"audience,omitempty"`
	CommentsWarning    string           `json:"commentsWarning,omitempty"`
	Comparison         *ComparisonPanel `json:"comparison,omitempty"`
	PageViewID         string           `json:"pageViewId,omitempty"`
}

// PostDetail loads and renders the post detail page and starts dwell and
// scroll tracking for it. visible is the page visibility at mount.
func (c *Controller) PostDetail(ctx context.Context, postID string, visible bool) (PostDetailView, error) {
	detail, err := c.content.FetchPostDetail(ctx, postID, c.viewerID)
	if err != nil {
		return PostDetailView{}, fmt.Errorf("load post %s: %w", postID, err)
	}
	if detail.Comments == nil {
		detail.Comments = []model.Comment{}
	}

	view := PostDetailView{
		Post:               detail.Post,
		Comments:           detail.Comments,
		LikedByCurrentUser: detail.LikedByCurrentUser,
		Variant:            c.Variant(),
		Rendered:           model.VariantControl,
	}

	if !view.Variant.Loading && view.Variant.Variant.NeedsStats() {
		if stats, ok := c.loadStats(ctx, postID); ok {
			view.Rendered = view.Variant.Variant
			switch view.Rendered {
			case model.VariantTreatment:
				view.Audience = NewAudiencePanel(stats)
				view.CommentsWarning = CommentsWarning
			case model.VariantComparison:
				view.Comparison = NewComparisonPanel(stats, len(detail.Comments))
			}
		}
	}

	c.tracker.TrackViewed(ctx, postID, view.Rendered)
	if c.tracker.Enabled() {
		pv := c.sessions.Replace(postID, func() *tracking.PageView {
			return c.tracker.StartPageView(postID, view.Rendered, visible, c.scrollInterval)
		})
		view.PageViewID = pv.ID
	}

	return view, nil
}

func (c *Controller) loadStats(ctx context.Context, postID string) (model.AudienceStatistics, bool) {
	if c.stats == nil || !c.stats.IsAvailable() {
		return model.AudienceStatistics{}, false
	}
	stats, err := c.stats.GetAudienceStats(ctx, postID)
	if err != nil {
		c.logger.Warn().Err(err).Str("post", postID).Msg("audience statistics unavailable, rendering control")
		return model.AudienceStatistics{}, false
	}
	return stats, true
}

// renderedVariant is the arm a live page view was rendered with, falling back
// to the resolved arm when the page is not mounted
func (c *Controller) renderedVariant(postID string) model.Variant {
	if pv, ok := c.sessions.Get(postID); ok {
		return pv.Variant
	}
	return c.resolver.Resolve()
}

// Like likes the post and records the engagement
func (c *Controller) Like(ctx context.Context, postID string) (model.InteractionResult, error) {
	res, err := c.content.LikePost(ctx, postID, c.viewerID)
	if err != nil {
		return model.InteractionResult{}, fmt.Errorf("like %s: %w", postID, err)
	}
	c.tracker.TrackEngagement(ctx, postID, c.renderedVariant(postID), model.EngagementLike)
	return res, nil
}

// Share shares the post and records the engagement
func (c *Controller) Share(ctx context.Context, postID string) (model.InteractionResult, error) {
	res, err := c.content.SharePost(ctx, postID, c.viewerID)
	if err != nil {
		return model.InteractionResult{}, fmt.Errorf("share %s: %w", postID, err)
	}
	c.tracker.TrackEngagement(ctx, postID, c.renderedVariant(postID), model.EngagementShare)
	return res, nil
}

// Comment posts a comment and records the engagement
func (c *Controller) Comment(ctx context.Context, postID, text string) (model.InteractionResult, error) {
	if strings.TrimSpace(text) == "" {
		return model.InteractionResult{}, ErrEmptyComment
	}
	res, err := c.content.CommentPost(ctx, postID, c.viewerID, text)
	if err != nil {
		return model.InteractionResult{}, fmt.Errorf("comment on %s: %w", postID, err)
	}
	c.tracker.TrackEngagement(ctx, postID, c.renderedVariant(postID), model.EngagementComment)
	return res, nil
}

// ProfileClick records a click on the post author's profile
func (c *Controller) ProfileClick(ctx context.Context, postID string) {
	c.tracker.TrackEngagement(ctx, postID, c.renderedVariant(postID), model.EngagementProfileClick)
}

// Back records leaving the post and tears down its tracking
func (c *Controller) Back(ctx context.Context, postID string) {
	c.tracker.TrackEngagement(ctx, postID, c.renderedVariant(postID), model.EngagementBackButton)
	c.sessions.Close(postID)
}

// Visibility forwards a page visibility change; false when the page is not mounted
func (c *Controller) Visibility(postID string, visible bool) bool {
	pv, ok := c.sessions.Get(postID)
	if ok {
		pv.Dwell.SetVisible(visible)
	}
	return ok
}

// Scroll forwards a scroll position; false when the page is not mounted
func (c *Controller) Scroll(postID string, scrollTop, documentHeight, windowHeight float64) bool {
	pv, ok := c.sessions.Get(postID)
	if ok {
		pv.Scroll.Observe(scrollTop, documentHeight, windowHeight)
	}
	return ok
}

// Unload flushes tracking on the page unload signal
func (c *Controller) Unload(ctx context.Context, postID string) bool {
	pv, ok := c.sessions.Get(postID)
	if !ok {
		return false
	}
	pv.Unload(ctx)
	c.sessions.Release(postID, pv)
	return true
}

// Close flushes every mounted page and waits for background warm-ups
func (c *Controller) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.sessions.CloseAll()
	c.warming.Wait()
	return nil
}
