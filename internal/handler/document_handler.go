package handler

import (
	"net/http"
	"strings"

	"edumate-go/internal/service"
	"edumate-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 负责处理知识库文档相关的 API 请求。
type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// AddURLRequest 定义了添加 URL 来源的请求体结构。
type AddURLRequest struct {
	URL   string `json:"url" binding:"required"`
	Title string `json:"title"`
}

// Add 处理向助手知识库添加文档的请求。
// multipart 请求走 PDF 上传，JSON 请求走 URL 来源（网页或 YouTube）。
func (h *DocumentHandler) Add(c *gin.Context) {
	user := currentUser(c)
	assistantID := c.Param("id")

	contentType := c.GetHeader("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			respondError(c, http.StatusBadRequest, "缺少上传文件")
			return
		}
		defer file.Close()

		doc, err := h.documentService.UploadPDF(c.Request.Context(), user.ID, assistantID, file, header, c.PostForm("title"))
		if err != nil {
			log.Warnf("AddDocument: PDF 上传失败, error: %v", err)
			respondServiceError(c, err)
			return
		}
		respondCreated(c, doc)
		return
	}

	var req AddURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：url 不能为空")
		return
	}

	doc, err := h.documentService.AddURL(c.Request.Context(), user.ID, assistantID, req.URL, req.Title)
	if err != nil {
		log.Warnf("AddDocument: URL 来源添加失败, error: %v", err)
		respondServiceError(c, err)
		return
	}
	respondCreated(c, doc)
}

// List 返回助手的文档列表。
func (h *DocumentHandler) List(c *gin.Context) {
	user := currentUser(c)
	docs, err := h.documentService.List(user.ID, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, docs)
}

// Delete 处理删除文档的请求。
func (h *DocumentHandler) Delete(c *gin.Context) {
	user := currentUser(c)
	if err := h.documentService.Delete(c.Request.Context(), user.ID, c.Param("docId")); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"message": "文档已删除"})
}
