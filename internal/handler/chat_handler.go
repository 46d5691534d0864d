package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"edumate-go/internal/workflow"
	"edumate-go/pkg/log"
	"edumate-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 负责处理 SSE 与 WebSocket 聊天请求。
type ChatHandler struct {
	engine     *workflow.Engine
	jwtManager *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(engine *workflow.Engine, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{
		engine:     engine,
		jwtManager: jwtManager,
	}
}

// ChatQueryRequest 定义了聊天请求的请求体结构。
type ChatQueryRequest struct {
	Prompt         string `json:"prompt" binding:"required"`
	AssistantID    string `json:"assistant_id" binding:"required"`
	ConversationID string `json:"conversation_id"`
}

// Query 以 SSE 流式返回助手回答。
// 校验失败时返回单个 JSON 错误信封，不进入流式模式。
func (h *ChatHandler) Query(c *gin.Context) {
	user := currentUser(c)

	var req ChatQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：prompt 和 assistant_id 不能为空")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Flush()

	emitter := &sseEmitter{c: c}
	_, err := h.engine.Run(c.Request.Context(), user.ID, req.AssistantID, req.ConversationID, req.Prompt, emitter)
	if err != nil {
		log.Errorf("ChatQuery: 工作流执行失败, error: %v", err)
		emitter.emitError("AI服务暂时不可用，请稍后重试")
	}
	emitter.emitDone()
}

// GetWebsocketToken 为当前用户签发一个用于建立 WebSocket 连接的短期 token。
func (h *ChatHandler) GetWebsocketToken(c *gin.Context) {
	user := currentUser(c)
	wsToken, err := h.jwtManager.GenerateToken(user.ID, user.Username)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "签发 WebSocket token 失败")
		return
	}
	respondOK(c, gin.H{"token": wsToken})
}

// WebsocketMessage 定义了 WebSocket 聊天消息的结构。
type WebsocketMessage struct {
	Prompt         string `json:"prompt"`
	AssistantID    string `json:"assistant_id"`
	ConversationID string `json:"conversation_id"`
}

// HandleWebsocket 处理一个传入的 WebSocket 连接，每条消息跑一轮工作流。
func (h *ChatHandler) HandleWebsocket(c *gin.Context) {
	tokenString := c.Param("token")
	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "无效的 token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，用户: %s", claims.Username)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		var req WebsocketMessage
		if err := json.Unmarshal(message, &req); err != nil || req.Prompt == "" || req.AssistantID == "" {
			errResp, _ := json.Marshal(gin.H{"success": false, "error": "无效的消息格式", "status": http.StatusBadRequest})
			_ = conn.WriteMessage(websocket.TextMessage, errResp)
			continue
		}

		emitter := &wsEmitter{conn: conn}
		_, err = h.engine.Run(c.Request.Context(), claims.UserID, req.AssistantID, req.ConversationID, req.Prompt, emitter)
		if err != nil {
			log.Errorf("处理 WebSocket 聊天失败: %v", err)
			errResp, _ := json.Marshal(gin.H{"success": false, "error": "AI服务暂时不可用，请稍后重试", "status": http.StatusInternalServerError})
			_ = conn.WriteMessage(websocket.TextMessage, errResp)
		}
		sendCompletion(conn)
	}
}

// sseEmitter 将工作流输出写成 SSE 事件。
type sseEmitter struct {
	c *gin.Context
}

func (e *sseEmitter) EmitFragment(text string) error {
	payload, _ := json.Marshal(gin.H{"chunk": text})
	if _, err := fmt.Fprintf(e.c.Writer, "data: %s\n\n", payload); err != nil {
		return err
	}
	e.c.Writer.Flush()
	return nil
}

// EmitMessage 在 SSE 模式下为空操作，完整内容已经按片段下发。
func (e *sseEmitter) EmitMessage(text string) error {
	return nil
}

func (e *sseEmitter) emitError(message string) {
	payload, _ := json.Marshal(gin.H{"success": false, "error": message, "status": http.StatusInternalServerError})
	fmt.Fprintf(e.c.Writer, "data: %s\n\n", payload)
	e.c.Writer.Flush()
}

func (e *sseEmitter) emitDone() {
	fmt.Fprint(e.c.Writer, "data: [DONE]\n\n")
	e.c.Writer.Flush()
}

// wsEmitter 将工作流输出写入 WebSocket 连接。
type wsEmitter struct {
	conn *websocket.Conn
}

func (e *wsEmitter) EmitFragment(text string) error {
	payload, _ := json.Marshal(gin.H{"chunk": text})
	return e.conn.WriteMessage(websocket.TextMessage, payload)
}

// EmitMessage 下发一条完整消息事件。
func (e *wsEmitter) EmitMessage(text string) error {
	payload, _ := json.Marshal(gin.H{"type": "message", "content": text})
	return e.conn.WriteMessage(websocket.TextMessage, payload)
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(conn *websocket.Conn) {
	notif := gin.H{
		"type":      "completion",
		"status":    "finished",
		"message":   "响应已完成",
		"timestamp": time.Now().UnixMilli(),
		"date":      time.Now().Format("2006-01-02T15:04:05"),
	}
	b, _ := json.Marshal(notif)
	_ = conn.WriteMessage(websocket.TextMessage, b)
}
