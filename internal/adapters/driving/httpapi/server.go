// Package httpapi exposes the retrieval engine over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/levelshelf/levelshelf/internal/core/domain"
	"github.com/levelshelf/levelshelf/internal/core/ports/driven"
	"github.com/levelshelf/levelshelf/internal/core/ports/driving"
	"github.com/levelshelf/levelshelf/internal/logger"
)

const defaultListLimit = 20

// Server routes HTTP requests to the search and ingest services.
type Server struct {
	router   *gin.Engine
	searcher driving.Searcher
	ingestor driving.Ingestor
	provider driven.EmbeddingProvider
	version  string
}

// NewServer creates the API server and registers its routes.
func NewServer(searcher driving.Searcher, ingestor driving.Ingestor, provider driven.EmbeddingProvider, version string) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:   gin.New(),
		searcher: searcher,
		ingestor: ingestor,
		provider: provider,
		version:  version,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())

	s.router.GET("/health", s.handleHealth)
	s.router.GET("/texts", s.handleListTexts)
	s.router.GET("/texts/:id", s.handleGetText)
	s.router.POST("/texts/search", s.handleMetadataSearch)
	s.router.POST("/texts/ingest", s.handleIngest)
	s.router.POST("/rag/search", s.handleSimilaritySearch)
}

// Run starts the server on the given address.
func (s *Server) Run(addr string) error {
	logger.Info("http: listening on %s", addr)
	return s.router.Run(addr)
}

// Handler exposes the router for tests and custom http.Server setups.
func (s *Server) Handler() http.Handler {
	return s.router
}

// corsMiddleware adds CORS headers.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// textResponse is the wire form of a record. Embeddings never leave the
// server.
type textResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"text"`
	Lexile       int       `json:"lexile"`
	GradeBand    string    `json:"grade_band,omitempty"`
	PhonicsFocus string    `json:"phonics_focus,omitempty"`
	Theme        string    `json:"theme,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type scoredTextResponse struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Body      string  `json:"text"`
	Lexile    int     `json:"lexile"`
	GradeBand string  `json:"grade_band,omitempty"`
	Score     float64 `json:"score"`
}

func toTextResponse(r domain.TextRecord) textResponse {
	return textResponse{
		ID:           r.ID,
		Title:        r.Title,
		Body:         r.Body,
		Lexile:       r.Lexile,
		GradeBand:    r.GradeBand,
		PhonicsFocus: r.PhonicsFocus,
		Theme:        r.Theme,
		UpdatedAt:    r.UpdatedAt,
	}
}

// handleHealth reports service and provider status.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	providerStatus := "ok"
	if err := s.provider.Ping(ctx); err != nil {
		providerStatus = "unreachable"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"version":  s.version,
		"model":    s.provider.ModelName(),
		"provider": providerStatus,
	})
}

// handleListTexts returns stored records in insertion order.
func (s *Server) handleListTexts(c *gin.Context) {
	limit := defaultListLimit
	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := s.searcher.List(c.Request.Context(), domain.Filter{}, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}

	results := make([]textResponse, 0, len(records))
	for _, r := range records {
		results = append(results, toTextResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// handleGetText returns a single record by id.
func (s *Server) handleGetText(c *gin.Context) {
	record, err := s.searcher.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTextResponse(*record))
}

// metadataSearchRequest mirrors the corpus filter vocabulary.
type metadataSearchRequest struct {
	LexileMin    *int   `json:"lexile_min"`
	LexileMax    *int   `json:"lexile_max"`
	GradeBand    string `json:"grade_band"`
	PhonicsFocus string `json:"phonics_focus"`
	Theme        string `json:"theme"`
	Limit        int    `json:"limit"`
}

func (r *metadataSearchRequest) filter() domain.Filter {
	return domain.Filter{
		LexileMin:    r.LexileMin,
		LexileMax:    r.LexileMax,
		GradeBand:    r.GradeBand,
		PhonicsFocus: r.PhonicsFocus,
		Theme:        r.Theme,
	}
}

// handleMetadataSearch filters records without similarity ranking.
func (s *Server) handleMetadataSearch(c *gin.Context) {
	var req metadataSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	records, err := s.searcher.List(c.Request.Context(), req.filter(), req.Limit)
	if err != nil {
		s.writeError(c, err)
		return
	}

	results := make([]textResponse, 0, len(records))
	for _, r := range records {
		results = append(results, toTextResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// similaritySearchRequest is a ranked retrieval query. K is a pointer so
// an explicit non-positive value is rejected rather than defaulted.
type similaritySearchRequest struct {
	Query    string                `json:"query" binding:"required"`
	K        *int                  `json:"k"`
	Filters  metadataSearchRequest `json:"filters"`
	MinScore float64               `json:"min_score"`
}

// handleSimilaritySearch embeds the query and returns ranked matches.
func (s *Server) handleSimilaritySearch(c *gin.Context) {
	var req similaritySearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	k := 5
	if req.K != nil {
		k = *req.K
	}

	opts := domain.SearchOptions{
		K:        k,
		Filter:   req.Filters.filter(),
		MinScore: req.MinScore,
	}

	results, err := s.searcher.Search(c.Request.Context(), req.Query, opts)
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]scoredTextResponse, 0, len(results))
	for _, res := range results {
		out = append(out, scoredTextResponse{
			ID:        res.Record.ID,
			Title:     res.Record.Title,
			Body:      res.Record.Body,
			Lexile:    res.Record.Lexile,
			GradeBand: res.Record.GradeBand,
			Score:     res.Score,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

// ingestRequest is a corpus batch submitted over HTTP.
type ingestRequest struct {
	Texts []domain.IngestEntry `json:"texts" binding:"required"`
}

// handleIngest runs a batch through the ingestion pipeline.
func (s *Server) handleIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := s.ingestor.Ingest(c.Request.Context(), req.Texts)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDependencyUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		logger.Warn("http: %v", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
