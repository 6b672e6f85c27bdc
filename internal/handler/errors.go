package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/readmegen/backend/internal/pkg/git"
	"github.com/readmegen/backend/internal/pkg/github"
	"github.com/readmegen/backend/internal/pkg/llm"
	"github.com/readmegen/backend/internal/repository"
	"github.com/readmegen/backend/internal/service"
	"k8s.io/klog/v2"
)

// ClientIDHeader 客户端标识，作为历史/品牌/分享的归属 key
const ClientIDHeader = "X-Client-ID"

const (
	msgRepoURLRequired = "Repository URL is required"
	msgInvalidURL      = "Invalid GitHub URL format"
	msgRateLimited     = "Rate limit exceeded. Please try again later."
	msgQuotaExhausted  = "AI credits exhausted. Please add credits to continue."
	msgSectionRequired = "Section and repo info are required"
	msgReadmeRequired  = "README content is required"
	msgClientRequired  = "X-Client-ID header is required"
)

// writeError 把错误映射为状态码和 {"error": ...}
func writeError(c *gin.Context, err error) {
	status, message := mapError(err)
	if status >= http.StatusInternalServerError {
		klog.Errorf("请求处理失败: path=%s, error=%v", c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": message})
}

func mapError(err error) (int, string) {
	var fetchErr *github.UpstreamFetchError
	switch {
	case errors.Is(err, service.ErrRepoURLRequired):
		return http.StatusBadRequest, msgRepoURLRequired
	case errors.Is(err, git.ErrInvalidReference):
		return http.StatusBadRequest, msgInvalidURL
	case errors.Is(err, service.ErrSectionRequired):
		return http.StatusBadRequest, msgSectionRequired
	case errors.Is(err, service.ErrReadmeRequired):
		return http.StatusBadRequest, msgReadmeRequired
	case errors.Is(err, service.ErrOwnerKeyRequired):
		return http.StatusBadRequest, msgClientRequired
	case errors.Is(err, service.ErrInvalidShare):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &fetchErr):
		if fetchErr.StatusCode >= 400 && fetchErr.StatusCode < 600 {
			return fetchErr.StatusCode, fetchErr.Error()
		}
		return http.StatusBadGateway, fetchErr.Error()
	case errors.Is(err, llm.ErrRateLimited):
		return http.StatusTooManyRequests, msgRateLimited
	case errors.Is(err, llm.ErrQuotaExhausted):
		return http.StatusPaymentRequired, msgQuotaExhausted
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not found"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
