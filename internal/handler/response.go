// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"edumate-go/internal/model"
	"edumate-go/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// respondOK 返回成功响应。
func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// respondCreated 返回创建成功响应。
func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

// respondError 按固定的错误信封返回失败响应。
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message, "status": status})
}

// respondServiceError 将业务层错误映射到 HTTP 状态码。
func respondServiceError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		respondError(c, http.StatusBadRequest, validationErr.Msg)
	case errors.Is(err, service.ErrForbidden):
		respondError(c, http.StatusForbidden, "无权操作该资源")
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondError(c, http.StatusNotFound, "资源不存在")
	default:
		respondError(c, http.StatusInternalServerError, "服务器内部错误")
	}
}

// currentUser 从上下文中取出认证中间件写入的用户。
func currentUser(c *gin.Context) *model.User {
	value, exists := c.Get("user")
	if !exists {
		return nil
	}
	user, ok := value.(*model.User)
	if !ok {
		return nil
	}
	return user
}
