package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github-repo-analyzer/internal/common"
	"github-repo-analyzer/internal/domain"
	"github-repo-analyzer/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const msgMissingURL = "Repository URL is missing"

// Analyzer 是 HTTP 层依赖的分析服务 (service.AnalysisService 实现)
type Analyzer interface {
	Analyze(ctx context.Context, rawURL string) <-chan domain.Event
	ScoreOnly(ctx context.Context, rawURL string) (*domain.ScoreResult, error)
	History(ctx context.Context, rawURL string, limit int) ([]*domain.AnalysisRecord, error)
	Search(ctx context.Context, query string) ([]*domain.AnalysisRecord, error)
	HasNarrator() bool
	HasStore() bool
}

type Handler struct {
	analyzer Analyzer
	logger   *logrus.Logger
}

func NewHandler(analyzer Analyzer, logger *logrus.Logger) *Handler {
	return &Handler{analyzer: analyzer, logger: logger}
}

type analyzeRequest struct {
	RepoURL string `json:"repoUrl"`
}

// Analyze POST /api/analyze
// 响应体每行一个 JSON 事件，客户端断开会取消分析
func (h *Handler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RepoURL == "" {
		respondWithError(c, http.StatusBadRequest, msgMissingURL)
		return
	}
	if !h.analyzer.HasNarrator() {
		respondWithError(c, http.StatusInternalServerError, service.MsgNoNarrator)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	events := h.analyzer.Analyze(c.Request.Context(), req.RepoURL)
	for ev := range events {
		line, err := json.Marshal(ev)
		if err != nil {
			h.logger.Errorf("❌ 事件序列化失败: %v", err)
			continue
		}
		if _, err := c.Writer.Write(append(line, '\n')); err != nil {
			h.logger.Warnf("⚠️ 写入事件流失败: %v", err)
			// 继续读完 channel，让后台 goroutine 正常退出
			continue
		}
		c.Writer.Flush()
	}
}

// Score GET /api/repos/:owner/:repo/score
func (h *Handler) Score(c *gin.Context) {
	res, err := h.analyzer.ScoreOnly(c.Request.Context(), repoURL(c))
	if err != nil {
		h.logger.Errorf("Failed to score repository: %v", err)
		respondWithError(c, statusFor(err), common.MessageOf(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// History GET /api/repos/:owner/:repo/history?limit=N
func (h *Handler) History(c *gin.Context) {
	if !h.analyzer.HasStore() {
		respondWithError(c, http.StatusServiceUnavailable, service.MsgNoStore)
		return
	}

	limit, err := getIntQueryParam(c, "limit", 10)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid limit parameter")
		return
	}

	records, err := h.analyzer.History(c.Request.Context(), repoURL(c), limit)
	if err != nil {
		h.logger.Errorf("Failed to load history: %v", err)
		respondWithError(c, statusFor(err), common.MessageOf(err))
		return
	}
	if records == nil {
		records = []*domain.AnalysisRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// Search GET /api/search?q=keyword
func (h *Handler) Search(c *gin.Context) {
	if !h.analyzer.HasStore() {
		respondWithError(c, http.StatusServiceUnavailable, service.MsgNoStore)
		return
	}

	records, err := h.analyzer.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.logger.Errorf("Failed to search records: %v", err)
		respondWithError(c, statusFor(err), common.MessageOf(err))
		return
	}
	if records == nil {
		records = []*domain.AnalysisRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// Health GET /healthz
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusFor 把错误码映射成 HTTP 状态码
func statusFor(err error) int {
	switch common.CodeOf(err) {
	case common.ErrCodeInvalidURL, common.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case common.ErrCodeNotFound:
		return http.StatusNotFound
	case common.ErrCodeRateLimit:
		return http.StatusTooManyRequests
	case common.ErrCodeConfig:
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func repoURL(c *gin.Context) string {
	return "https://github.com/" + c.Param("owner") + "/" + c.Param("repo")
}

func respondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

func getIntQueryParam(c *gin.Context, param string, defaultValue int) (int, error) {
	value := c.Query(param)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}
