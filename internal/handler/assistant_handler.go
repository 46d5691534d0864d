package handler

import (
	"net/http"
	"strconv"

	"edumate-go/internal/repository"
	"edumate-go/internal/service"
	"edumate-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AssistantHandler 负责处理助手相关的 API 请求。
type AssistantHandler struct {
	assistantService service.AssistantService
}

// NewAssistantHandler 创建一个新的 AssistantHandler 实例。
func NewAssistantHandler(assistantService service.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistantService: assistantService}
}

// Create 处理创建助手的请求。
func (h *AssistantHandler) Create(c *gin.Context) {
	user := currentUser(c)
	var req service.CreateAssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：name、subject、topic 不能为空")
		return
	}

	assistant, err := h.assistantService.Create(user.ID, req)
	if err != nil {
		log.Warnf("CreateAssistant: 创建失败, error: %v", err)
		respondServiceError(c, err)
		return
	}
	respondCreated(c, assistant)
}

// List 返回助手列表。
// 默认返回已发布的助手（按评分排序，支持过滤）；mine=true 时返回当前用户自己的助手。
func (h *AssistantHandler) List(c *gin.Context) {
	user := currentUser(c)

	if c.Query("mine") == "true" {
		assistants, err := h.assistantService.ListMine(user.ID)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		respondOK(c, assistants)
		return
	}

	filter := repository.AssistantFilter{
		Keyword: c.Query("keyword"),
		Subject: c.Query("subject"),
		Topic:   c.Query("topic"),
	}
	if v := c.Query("minRating"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinRating = f
		}
	}
	if v := c.Query("maxRating"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxRating = f
		}
	}

	assistants, err := h.assistantService.ListPublished(filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, assistants)
}

// Get 返回单个助手的信息。
func (h *AssistantHandler) Get(c *gin.Context) {
	assistant, err := h.assistantService.Get(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, assistant)
}

// Update 处理更新助手的请求。
func (h *AssistantHandler) Update(c *gin.Context) {
	user := currentUser(c)
	var req service.UpdateAssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载")
		return
	}

	assistant, err := h.assistantService.Update(user.ID, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, assistant)
}

// Delete 处理删除助手的请求。
func (h *AssistantHandler) Delete(c *gin.Context) {
	user := currentUser(c)
	if err := h.assistantService.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"message": "助手已删除"})
}

// RatingRequest 定义了提交评分的请求体结构。
type RatingRequest struct {
	Score int `json:"score" binding:"required"`
}

// SubmitRating 处理提交评分的请求。
func (h *AssistantHandler) SubmitRating(c *gin.Context) {
	user := currentUser(c)
	var req RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：score 不能为空")
		return
	}

	assistant, err := h.assistantService.SubmitRating(user.ID, c.Param("id"), req.Score)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{
		"averageRating": assistant.AverageRating,
		"totalReviews":  assistant.TotalReviews,
	})
}
