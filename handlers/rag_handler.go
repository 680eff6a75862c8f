package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"officialqa-backend/models"
	"officialqa-backend/repository"
	"officialqa-backend/service"

	"github.com/gin-gonic/gin"
)

// RAG is the question answering and indexing surface used by the handler
type RAG interface {
	Ask(ctx context.Context, question, entityName string) (models.AnswerResult, error)
	Ingest(ctx context.Context, entityID int64) (models.IngestResult, error)
	IngestAll(ctx context.Context) (models.BatchIngestResult, error)
	Status(ctx context.Context) (models.IndexStatus, error)
	Purge(ctx context.Context, entityID int64) (int, error)
	Initialize(ctx context.Context) error
}

// RAGHandler handles HTTP requests for the officials Q&A index
type RAGHandler struct {
	rag RAG
}

// NewRAGHandler creates a new RAG handler
func NewRAGHandler(rag RAG) *RAGHandler {
	return &RAGHandler{rag: rag}
}

// RegisterRoutes mounts the RAG endpoints. Indexing endpoints go through admin.
func (h *RAGHandler) RegisterRoutes(rg *gin.RouterGroup, admin gin.HandlerFunc) {
	rg.POST("/query", h.Query)
	rg.GET("/status", h.Status)

	protected := rg.Group("", admin)
	{
		protected.POST("/ingest", h.Ingest)
		protected.POST("/ingest/:id", h.Ingest)
		protected.POST("/ingest-all", h.IngestAll)
		protected.POST("/initialize", h.Initialize)
		protected.DELETE("/officials/:id/embeddings", h.Purge)
	}
}

// QueryRequest represents the request body for a question
type QueryRequest struct {
	Question     string `json:"question"`
	OfficialName string `json:"officialName"`
}

// IngestRequest represents the request body for indexing one official
type IngestRequest struct {
	OfficialID int64 `json:"officialId"`
}

// Query handles POST /api/rag/query
func (h *RAGHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.rag.Ask(c.Request.Context(), req.Question, req.OfficialName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyQuestion):
			respondError(c, http.StatusBadRequest, "EMPTY_QUESTION", "Question is required")
		case errors.Is(err, service.ErrRetrievalFailed):
			log.Printf("Warning: query failed: %v", err)
			respondError(c, http.StatusServiceUnavailable, "RETRIEVAL_FAILED", err.Error())
		default:
			log.Printf("Warning: query failed: %v", err)
			respondError(c, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// Ingest handles POST /api/rag/ingest and POST /api/rag/ingest/:id
func (h *RAGHandler) Ingest(c *gin.Context) {
	var id int64
	if c.Param("id") != "" {
		parsed, ok := parseID(c)
		if !ok {
			return
		}
		id = parsed
	} else {
		var req IngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
		id = req.OfficialID
	}

	result, err := h.rag.Ingest(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, "INGEST_FAILED", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// IngestAll handles POST /api/rag/ingest-all. It runs in the foreground and
// returns the batch report when done.
func (h *RAGHandler) IngestAll(c *gin.Context) {
	result, err := h.rag.IngestAll(c.Request.Context())
	if err != nil {
		respondServiceError(c, "INGEST_ALL_FAILED", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// Status handles GET /api/rag/status
func (h *RAGHandler) Status(c *gin.Context) {
	status, err := h.rag.Status(c.Request.Context())
	if err != nil {
		respondServiceError(c, "STATUS_FAILED", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    status,
	})
}

// Initialize handles POST /api/rag/initialize
func (h *RAGHandler) Initialize(c *gin.Context) {
	if err := h.rag.Initialize(c.Request.Context()); err != nil {
		respondServiceError(c, "INITIALIZE_FAILED", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "Index initialized",
		},
	})
}

// Purge handles DELETE /api/rag/officials/:id/embeddings
func (h *RAGHandler) Purge(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	removed, err := h.rag.Purge(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, "PURGE_FAILED", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"official_id": id,
			"removed":     removed,
		},
	})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid official ID format")
		return 0, false
	}
	return id, true
}

func respondServiceError(c *gin.Context, code string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEntityID):
		respondError(c, http.StatusBadRequest, "INVALID_ID", err.Error())
	case errors.Is(err, repository.ErrOfficialNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Official not found")
	default:
		log.Printf("Warning: %s: %v", code, err)
		respondError(c, http.StatusInternalServerError, code, err.Error())
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
