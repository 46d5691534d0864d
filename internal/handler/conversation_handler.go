package handler

import (
	"strconv"

	"edumate-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 负责处理对话记录相关的 API 请求。
type ConversationHandler struct {
	conversationService service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler 实例。
func NewConversationHandler(conversationService service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// List 返回当前用户的对话线程列表，支持按助手过滤。
func (h *ConversationHandler) List(c *gin.Context) {
	user := currentUser(c)
	summaries, err := h.conversationService.ListConversations(user.ID, c.Query("assistant_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, summaries)
}

// Turns 按时间倒序返回一个对话的问答记录。
func (h *ConversationHandler) Turns(c *gin.Context) {
	user := currentUser(c)

	limit := 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	turns, err := h.conversationService.GetTurns(user.ID, c.Param("id"), limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, turns)
}
