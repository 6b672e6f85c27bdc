package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/readmegen/backend/internal/pkg/stream"
	"github.com/readmegen/backend/internal/service"
	"k8s.io/klog/v2"
)

type ReadmeHandler struct {
	service *service.ReadmeService
}

func NewReadmeHandler(service *service.ReadmeService) *ReadmeHandler {
	return &ReadmeHandler{service: service}
}

// Generate 根据 stream 字段或 Accept 头选择流式/非流式
func (h *ReadmeHandler) Generate(c *gin.Context) {
	var req service.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.OwnerKey = c.GetHeader(ClientIDHeader)

	if req.Stream || strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		h.generateStream(c, req)
		return
	}

	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ReadmeHandler) generateStream(c *gin.Context, req service.GenerateRequest) {
	session, err := h.service.OpenStream(c.Request.Context(), req)
	if err != nil {
		// 还没写响应头，可以按普通错误返回
		writeError(c, err)
		return
	}

	stream.SetHeaders(c.Writer.Header())
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()

	stats := session.Relay(stream.NewSSEWriter(c.Writer))
	if stats.Err != nil {
		klog.Warningf("流式响应异常结束: repo=%s, error=%v", req.RepoURL, stats.Err)
	}
}

func (h *ReadmeHandler) RegenerateSection(c *gin.Context) {
	var req service.SectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	content, err := h.service.RegenerateSection(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": content})
}

func (h *ReadmeHandler) Score(c *gin.Context) {
	var req service.ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.OwnerKey = c.GetHeader(ClientIDHeader)

	result, err := h.service.Score(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ReadmeHandler) Improve(c *gin.Context) {
	var req service.ImproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	content, err := h.service.Improve(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": content})
}
