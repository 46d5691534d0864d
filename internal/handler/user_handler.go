package handler

import (
	"net/http"
	"strings"

	"edumate-go/internal/service"
	"edumate-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// UserHandler 负责处理用户相关的 API 请求。
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRequest 定义了注册 API 的请求体结构。
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email"`
}

// LoginRequest 定义了登录 API 的请求体结构。
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register 处理用户注册请求。
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：用户名和密码不能为空，密码至少 6 位")
		return
	}

	user, err := h.userService.Register(req.Username, req.Password, req.Email)
	if err != nil {
		log.Warnf("Register: 注册失败, username: %s, error: %v", req.Username, err)
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	respondCreated(c, user)
}

// Login 处理用户登录请求。
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：用户名和密码不能为空")
		return
	}

	accessToken, refreshToken, err := h.userService.Login(req.Username, req.Password)
	if err != nil {
		log.Warnf("Login: 登录失败, username: %s, error: %v", req.Username, err)
		respondError(c, http.StatusUnauthorized, "用户名或密码错误")
		return
	}

	respondOK(c, gin.H{
		"token":        accessToken,
		"refreshToken": refreshToken,
	})
}

// Me 返回当前登录用户的信息。
func (h *UserHandler) Me(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		respondError(c, http.StatusUnauthorized, "未认证")
		return
	}
	respondOK(c, user)
}

// Logout 处理用户登出请求，将当前 token 加入黑名单。
func (h *UserHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == "" {
		respondError(c, http.StatusBadRequest, "缺少 token")
		return
	}

	if err := h.userService.Logout(tokenString); err != nil {
		log.Warnf("Logout: 登出失败, error: %v", err)
		respondError(c, http.StatusInternalServerError, "登出失败")
		return
	}
	respondOK(c, gin.H{"message": "已登出"})
}
