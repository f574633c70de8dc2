package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"ragchat-backend/service"
	"ragchat-backend/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatHandler handles HTTP requests for the chat pipeline and the
// conversation history.
type ChatHandler struct {
	chatService *service.ChatService
	store       store.ConversationStore
	logger      *zap.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chatService *service.ChatService, cs store.ConversationStore, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{chatService: chatService, store: cs, logger: logger}
}

// ChatRequest is the chat endpoint body. Message accepts either a plain
// string or an object carrying the text under text/content/value.
type ChatRequest struct {
	Message          json.RawMessage `json:"message"`
	ConversationID   string          `json:"conversation_id"`
	EnableEvaluation bool            `json:"enable_evaluation"`
}

// messageText normalizes the polymorphic message field.
func (r *ChatRequest) messageText() string {
	if len(r.Message) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Message, &s); err == nil {
		return s
	}
	var obj struct {
		Text    string `json:"text"`
		Content string `json:"content"`
		Value   string `json:"value"`
	}
	if err := json.Unmarshal(r.Message, &obj); err == nil {
		if obj.Text != "" {
			return obj.Text
		}
		if obj.Content != "" {
			return obj.Content
		}
		return obj.Value
	}
	return ""
}

// Chat handles POST /chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", "请求体不是有效的JSON")
		return
	}

	message := req.messageText()
	if message == "" {
		errorResponse(c, http.StatusBadRequest, "EMPTY_MESSAGE", "消息不能为空，或 message 不是字符串")
		return
	}

	result, err := h.chatService.Chat(c.Request.Context(), service.ChatRequest{
		Message:          message,
		ConversationID:   req.ConversationID,
		EnableEvaluation: req.EnableEvaluation,
	})
	if err != nil {
		h.writeChatError(c, err)
		return
	}

	resp := gin.H{
		"response":        result.Response,
		"citations":       result.Citations,
		"conversation_id": result.ConversationID,
	}
	if result.Evaluation != nil {
		resp["evaluation"] = result.Evaluation
	}
	c.JSON(http.StatusOK, resp)
}

// writeChatError maps pipeline errors to HTTP statuses: 400 for validation
// rejections, 403 for the intent gate, 500 for everything else. Internal
// error detail is never echoed to the caller.
func (h *ChatHandler) writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		errorResponse(c, http.StatusBadRequest, "INPUT_REJECTED", "您的输入包含敏感内容或过长，请修改后重试")
	case errors.Is(err, service.ErrUnsafePrompt):
		errorResponse(c, http.StatusBadRequest, "PROMPT_REJECTED", "生成的提示词存在安全风险")
	case errors.Is(err, service.ErrUnsafeOutput):
		errorResponse(c, http.StatusBadRequest, "OUTPUT_REJECTED", "生成的回答存在安全风险，已被拦截")
	case errors.Is(err, service.ErrIntentRejected):
		errorResponse(c, http.StatusForbidden, "INTENT_REJECTED", "您的请求被判定为恶意请求，已被拒绝")
	default:
		h.logger.Error("chat request failed", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, "PROCESSING_FAILED", "处理请求失败，请稍后重试")
	}
}

// ListHistory handles GET /history.
func (h *ChatHandler) ListHistory(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list conversations", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, "LIST_FAILED", "获取对话列表失败")
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetHistory handles GET /history/:id.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	conv, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrConversationNotFound) {
		errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Conversation not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load conversation", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, "LOAD_FAILED", "获取对话失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": conv.Turns})
}

// ClearHistory handles POST /clear.
func (h *ChatHandler) ClearHistory(c *gin.Context) {
	if err := h.store.Clear(c.Request.Context()); err != nil {
		h.logger.Error("failed to clear conversations", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, "CLEAR_FAILED", "清空对话失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "All conversations cleared"})
}

// RegisterRoutes attaches the chat routes to a Gin engine.
func (h *ChatHandler) RegisterRoutes(r *gin.Engine) {
	r.POST("/chat", h.Chat)
	r.GET("/history", h.ListHistory)
	r.GET("/history/:id", h.GetHistory)
	r.POST("/clear", h.ClearHistory)
}

func errorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
