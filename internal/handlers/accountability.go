package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/teampulse-io/teampulse/backend/internal/services"
	"github.com/teampulse-io/teampulse/backend/pkg/response"
	"gorm.io/gorm"
)

// AccountabilityHandler exposes flags, status history and weekly
// patterns to operators.
type AccountabilityHandler struct {
	store *services.GormStore
}

func NewAccountabilityHandler(store *services.GormStore) *AccountabilityHandler {
	return &AccountabilityHandler{store: store}
}

// ListFlags returns flags filtered by status and member
// GET /api/accountability/flags
func (h *AccountabilityHandler) ListFlags(c *gin.Context) {
	memberID, _ := strconv.ParseUint(c.Query("member_id"), 10, 32)

	flags, err := h.store.ListFlags(c.Query("status"), uint(memberID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, flags)
}

// ResolveFlag marks an active flag resolved
// POST /api/accountability/flags/:id/resolve
func (h *AccountabilityHandler) ResolveFlag(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid flag id")
		return
	}

	if err := h.store.ResolveFlag(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "no active flag with that id")
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"resolved": true})
}

// ListTransitions returns ticket status history, newest first
// GET /api/accountability/transitions
func (h *AccountabilityHandler) ListTransitions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	transitions, err := h.store.ListTransitions(c.Query("jira_key"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, transitions)
}

// ListPatterns returns weekly rollups, newest weeks first
// GET /api/accountability/patterns
func (h *AccountabilityHandler) ListPatterns(c *gin.Context) {
	memberID, _ := strconv.ParseUint(c.Query("member_id"), 10, 32)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "12"))

	patterns, err := h.store.ListPatterns(uint(memberID), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, patterns)
}
