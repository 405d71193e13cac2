package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sentryd/internal/identity"
	"github.com/fyrsmithlabs/sentryd/internal/retrieval"
)

// IngestRequest is the request body for POST /api/v1/ingest.
type IngestRequest struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Sensitivity string   `json:"sensitivity"`
	ACLRoles    []string `json:"acl_roles"`
	PIITags     []string `json:"pii_tags"`
}

// IngestResponse is the response body for POST /api/v1/ingest.
type IngestResponse struct {
	DocID         string   `json:"doc_id"`
	ChunksCreated int      `json:"chunks_created"`
	ChunkIDs      []string `json:"chunk_ids"`
}

// QueryRequest is the request body for POST /api/v1/query.
type QueryRequest struct {
	Query     string `json:"query"`
	Purpose   string `json:"purpose"`
	MaxChunks int    `json:"max_chunks"`
}

// Citation is one allowed chunk reference in a query response.
type Citation struct {
	ChunkID  string  `json:"chunk_id"`
	DocID    string  `json:"doc_id"`
	Text     string  `json:"text"`
	Distance float32 `json:"distance"`
}

// QueryResponse is the response body for POST /api/v1/query. An empty
// citations list with HTTP 200 means the query ran and nothing was
// returnable; a guard rejection is HTTP 400 with code "injection_rejected".
type QueryResponse struct {
	QueryID   string     `json:"query_id"`
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleIngest(c echo.Context) error {
	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "invalid_input",
			Message: "invalid request body",
		})
	}

	res, err := s.service.Ingest(c.Request().Context(), retrieval.IngestRequest{
		Title:       req.Title,
		Content:     req.Content,
		Sensitivity: identity.Sensitivity(req.Sensitivity),
		ACLRoles:    req.ACLRoles,
		PIITags:     req.PIITags,
	})
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, IngestResponse{
		DocID:         res.DocID,
		ChunksCreated: res.ChunksCreated,
		ChunkIDs:      res.ChunkIDs,
	})
}

func (s *Server) handleQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "invalid_input",
			Message: "invalid request body",
		})
	}

	res, err := s.service.Query(c.Request().Context(), retrieval.QueryRequest{
		Query:     req.Query,
		Purpose:   req.Purpose,
		MaxChunks: req.MaxChunks,
	})
	if err != nil {
		return s.writeError(c, err)
	}

	citations := make([]Citation, len(res.Citations))
	for i, cit := range res.Citations {
		citations[i] = Citation{
			ChunkID:  cit.ChunkID,
			DocID:    cit.DocID,
			Text:     cit.Text,
			Distance: cit.Distance,
		}
	}
	return c.JSON(http.StatusOK, QueryResponse{
		QueryID:   res.QueryID,
		Answer:    res.Answer,
		Citations: citations,
	})
}

// writeError maps classified pipeline failures onto distinct HTTP shapes so
// clients can tell a rejected query from an unhealthy service.
func (s *Server) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, retrieval.ErrInjectionRejected):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "injection_rejected",
			Message: "query rejected by injection guard",
		})
	case errors.Is(err, retrieval.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "invalid_input",
			Message: err.Error(),
		})
	case errors.Is(err, retrieval.ErrEmbeddingFailure):
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Code:    "embedding_failure",
			Message: "embedding provider unavailable",
		})
	case errors.Is(err, retrieval.ErrIndexUnavailable):
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Code:    "index_unavailable",
			Message: "vector index unavailable",
		})
	case errors.Is(err, retrieval.ErrStorageFailure):
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Code:    "storage_failure",
			Message: "chunk storage unavailable",
		})
	case errors.Is(err, retrieval.ErrAuditFailure):
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Code:    "audit_failure",
			Message: "audit log unavailable",
		})
	default:
		s.logger.Error(c.Request().Context(), "unclassified pipeline error", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "internal_error",
			Message: "internal error",
		})
	}
}
