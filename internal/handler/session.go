package handler

import (
	"errors"
	"net/http"

	"listingfilter/internal/model"
	"listingfilter/internal/service"

	"github.com/gin-gonic/gin"
)

// SessionHandler exposes display sessions over HTTP
type SessionHandler struct {
	store *service.SessionStore
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(store *service.SessionStore) *SessionHandler {
	return &SessionHandler{store: store}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	s := h.store.Create()
	c.JSON(http.StatusCreated, s.State())
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.View())
}

// SubmitQuery handles POST /api/v1/sessions/:id/query.
// The dispatch runs in the background; poll Get for the result.
func (h *SessionHandler) SubmitQuery(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req model.SubmitQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	s.SubmitQuery(req.Query)
	c.JSON(http.StatusAccepted, s.State())
}

// ClearQuery handles DELETE /api/v1/sessions/:id/query
func (h *SessionHandler) ClearQuery(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.ClearQuery()
	c.JSON(http.StatusOK, s.State())
}

// Delete handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Param("id")); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) session(c *gin.Context) (*service.Session, bool) {
	s, err := h.store.Get(c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) abort(c *gin.Context, err error) {
	if errors.Is(err, service.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
