package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/teampulse-io/teampulse/backend/internal/models"
	"github.com/teampulse-io/teampulse/backend/pkg/response"
	"gorm.io/gorm"
)

type IMBotHandler struct {
	db *gorm.DB
}

func NewIMBotHandler(db *gorm.DB) *IMBotHandler {
	return &IMBotHandler{db: db}
}

// List returns all configured bots
// GET /api/bots
func (h *IMBotHandler) List(c *gin.Context) {
	var bots []models.IMBot
	if err := h.db.Order("id ASC").Find(&bots).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, bots)
}

type imBotRequest struct {
	Name    string `json:"name" binding:"required"`
	Type    string `json:"type" binding:"required"`
	Webhook string `json:"webhook" binding:"required"`
	Secret  string `json:"secret"`
}

// Create registers a notification bot
// POST /api/bots
func (h *IMBotHandler) Create(c *gin.Context) {
	var req imBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	bot := models.IMBot{
		Name:     req.Name,
		Type:     req.Type,
		Webhook:  req.Webhook,
		Secret:   req.Secret,
		IsActive: true,
	}
	if err := h.db.Create(&bot).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Created(c, bot)
}

// Update patches a bot
// PUT /api/bots/:id
func (h *IMBotHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid bot id")
		return
	}

	var bot models.IMBot
	if err := h.db.First(&bot, id).Error; err != nil {
		response.NotFound(c, "bot not found")
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Type     *string `json:"type"`
		Webhook  *string `json:"webhook"`
		Secret   *string `json:"secret"`
		IsActive *bool   `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if req.Name != nil {
		bot.Name = *req.Name
	}
	if req.Type != nil {
		bot.Type = *req.Type
	}
	if req.Webhook != nil {
		bot.Webhook = *req.Webhook
	}
	if req.Secret != nil {
		bot.Secret = *req.Secret
	}
	if req.IsActive != nil {
		bot.IsActive = *req.IsActive
	}

	if err := h.db.Save(&bot).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, bot)
}

// Delete removes a bot
// DELETE /api/bots/:id
func (h *IMBotHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid bot id")
		return
	}

	if err := h.db.Delete(&models.IMBot{}, id).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
