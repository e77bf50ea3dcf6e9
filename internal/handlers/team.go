package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/teampulse-io/teampulse/backend/internal/models"
	"github.com/teampulse-io/teampulse/backend/internal/services"
	"github.com/teampulse-io/teampulse/backend/pkg/response"
	"gorm.io/gorm"
)

// TeamHandler manages the members and tickets the checks run against.
type TeamHandler struct {
	db    *gorm.DB
	store *services.GormStore
}

func NewTeamHandler(db *gorm.DB, store *services.GormStore) *TeamHandler {
	return &TeamHandler{db: db, store: store}
}

// ListMembers returns active team members
// GET /api/team/members
func (h *TeamHandler) ListMembers(c *gin.Context) {
	members, err := h.store.ListTeamMembers()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, members)
}

type memberRequest struct {
	Name   string `json:"name" binding:"required"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Skills string `json:"skills"`
}

// CreateMember registers a team member
// POST /api/team/members
func (h *TeamHandler) CreateMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member := models.TeamMember{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		Skills:   req.Skills,
		IsActive: true,
	}
	if err := h.db.Create(&member).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Created(c, member)
}

// UpdateMember patches a member
// PUT /api/team/members/:id
func (h *TeamHandler) UpdateMember(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid member id")
		return
	}

	var member models.TeamMember
	if err := h.db.First(&member, id).Error; err != nil {
		response.NotFound(c, "member not found")
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Email    *string `json:"email"`
		Role     *string `json:"role"`
		Skills   *string `json:"skills"`
		IsActive *bool   `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if req.Name != nil {
		member.Name = *req.Name
	}
	if req.Email != nil {
		member.Email = *req.Email
	}
	if req.Role != nil {
		member.Role = *req.Role
	}
	if req.Skills != nil {
		member.Skills = *req.Skills
	}
	if req.IsActive != nil {
		member.IsActive = *req.IsActive
	}

	if err := h.db.Save(&member).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, member)
}

// ListTickets returns tickets, optionally filtered by status or assignee
// GET /api/team/tickets
func (h *TeamHandler) ListTickets(c *gin.Context) {
	filter := services.TicketFilter{Status: c.Query("status")}
	if raw := c.Query("assignee_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			response.BadRequest(c, "invalid assignee id")
			return
		}
		assigneeID := uint(id)
		filter.AssigneeID = &assigneeID
	}

	tickets, err := h.store.ListTickets(filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tickets)
}

type ticketRequest struct {
	JiraKey     string `json:"jira_key"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Status      string `json:"status"`
	AssigneeID  *uint  `json:"assignee_id"`
	Epic        string `json:"epic"`
	StoryPoints int    `json:"story_points"`
}

// CreateTicket registers a work item
// POST /api/team/tickets
func (h *TeamHandler) CreateTicket(c *gin.Context) {
	var req ticketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	status := req.Status
	if status == "" {
		status = models.TicketStatusBacklog
	}

	ticket := models.Ticket{
		JiraKey:     req.JiraKey,
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		AssigneeID:  req.AssigneeID,
		Epic:        req.Epic,
		StoryPoints: req.StoryPoints,
	}
	if err := h.db.Create(&ticket).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Created(c, ticket)
}

// UpdateTicket patches a ticket. Moving into in_progress stamps
// started_at on the first move; moving into done stamps completed_at.
// PUT /api/team/tickets/:id
func (h *TeamHandler) UpdateTicket(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid ticket id")
		return
	}

	var ticket models.Ticket
	if err := h.db.First(&ticket, id).Error; err != nil {
		response.NotFound(c, "ticket not found")
		return
	}

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
		AssigneeID  *uint   `json:"assignee_id"`
		Epic        *string `json:"epic"`
		StoryPoints *int    `json:"story_points"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if req.Title != nil {
		ticket.Title = *req.Title
	}
	if req.Description != nil {
		ticket.Description = *req.Description
	}
	if req.Status != nil && *req.Status != ticket.Status {
		ticket.Status = *req.Status
		services.StampTicketStatus(&ticket)
	}
	if req.AssigneeID != nil {
		ticket.AssigneeID = req.AssigneeID
	}
	if req.Epic != nil {
		ticket.Epic = *req.Epic
	}
	if req.StoryPoints != nil {
		ticket.StoryPoints = *req.StoryPoints
	}

	if err := h.db.Save(&ticket).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, ticket)
}
