package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/feedlens/internal/content"
	"github.com/ppiankov/feedlens/internal/model"
	"github.com/ppiankov/feedlens/internal/page"
	"github.com/ppiankov/feedlens/internal/variant"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusBadGateway
	code := "CONTENT_UNAVAILABLE"

	var se *content.StatusError
	switch {
	case errors.Is(err, content.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, page.ErrEmptyComment):
		status, code = http.StatusBadRequest, "EMPTY_COMMENT"
	case errors.Is(err, variant.ErrInvalidVariant):
		status, code = http.StatusBadRequest, "INVALID_VARIANT"
	case errors.As(err, &se) && se.Code >= 400 && se.Code < 500:
		status, code = se.Code, "REJECTED"
	}

	if status >= 500 {
		s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func (s *Server) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
}

func (s *Server) handleFeed(c *gin.Context) {
	view, err := s.ctrl.Feed(c.Request.Context(), c.Query("cursor"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handlePostDetail(c *gin.Context) {
	visible := true
	if raw := c.Query("visible"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.badRequest(c, err)
			return
		}
		visible = v
	}

	view, err := s.ctrl.PostDetail(c.Request.Context(), c.Param("id"), visible)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleLike(c *gin.Context) {
	res, err := s.ctrl.Like(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleShare(c *gin.Context) {
	res, err := s.ctrl.Share(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CommentRequest is the body of POST /api/posts/:id/comment
type CommentRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleComment(c *gin.Context) {
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	res, err := s.ctrl.Comment(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleBack(c *gin.Context) {
	s.ctrl.Back(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) handleProfileClick(c *gin.Context) {
	s.ctrl.ProfileClick(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

// VisibilityRequest reports a page visibility change
type VisibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

func (s *Server) handleVisibility(c *gin.Context) {
	var req VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	s.mounted(c, s.ctrl.Visibility(c.Param("id"), *req.Visible))
}

// ScrollRequest reports the scroll position of the post detail page
type ScrollRequest struct {
	ScrollTop      float64 `json:"scroll_top"`
	DocumentHeight float64 `json:"document_height" binding:"required"`
	WindowHeight   float64 `json:"window_height" binding:"required"`
}

func (s *Server) handleScroll(c *gin.Context) {
	var req ScrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	s.mounted(c, s.ctrl.Scroll(c.Param("id"), req.ScrollTop, req.DocumentHeight, req.WindowHeight))
}

func (s *Server) handleUnload(c *gin.Context) {
	s.mounted(c, s.ctrl.Unload(c.Request.Context(), c.Param("id")))
}

// Signals for a page that is not mounted are ignored rather than failed
func (s *Server) mounted(c *gin.Context, ok bool) {
	if !ok {
		c.JSON(http.StatusAccepted, gin.H{"mounted": false})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetVariant(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.Variant())
}

// VariantRequest sets a manual override; an explicit null variant clears it.
// The variant key is required.
type VariantRequest struct {
	Variant *string `json:"variant"`
}

// ErrMissingVariant is returned when a variant request omits the variant key
var ErrMissingVariant = errors.New("variant is required; use null to clear")

type variantBody struct {
	Variant json.RawMessage `json:"variant"`
}

func (s *Server) handleSetVariant(c *gin.Context) {
	var req variantBody
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	if len(req.Variant) == 0 {
		s.badRequest(c, ErrMissingVariant)
		return
	}

	var v *model.Variant
	if !bytes.Equal(bytes.TrimSpace(req.Variant), []byte("null")) {
		var name string
		if err := json.Unmarshal(req.Variant, &name); err != nil {
			s.badRequest(c, err)
			return
		}
		parsed := model.Variant(name)
		v = &parsed
	}

	view, err := s.ctrl.SetOverride(v)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleClearVariant(c *gin.Context) {
	view, err := s.ctrl.SetOverride(nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
