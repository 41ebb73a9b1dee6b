// Package handlers implements the rerank HTTP API on top of the scoring
// service.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	reranker "github.com/soundprediction/go-reranker"
	"github.com/soundprediction/go-reranker/pkg/backend"
	"github.com/soundprediction/go-reranker/pkg/server/dto"
)

// RerankHandler handles scoring requests.
type RerankHandler struct {
	svc    *reranker.Service
	logger *slog.Logger
}

// NewRerankHandler creates a rerank handler.
func NewRerankHandler(svc *reranker.Service, logger *slog.Logger) *RerankHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RerankHandler{svc: svc, logger: logger}
}

// RerankSingle handles POST /rerank.
func (h *RerankHandler) RerankSingle(c *gin.Context) {
	var req dto.SingleRerankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	opts := &reranker.ScoreOptions{Normalize: req.Normalize}
	result, err := h.svc.ScoreOne(c.Request.Context(), req.Query, req.Passage, opts)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SingleRerankResponse{
		Score:         result.Score(),
		Normalized:    result.NormalizedScore != nil,
		QueryLength:   utf8.RuneCountInString(req.Query),
		PassageLength: utf8.RuneCountInString(req.Passage),
	})
}

// RerankBatch handles POST /rerank/batch.
func (h *RerankHandler) RerankBatch(c *gin.Context) {
	var req dto.BatchRerankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	pairs := make([]reranker.TextPair, len(req.Pairs))
	for i, p := range req.Pairs {
		pairs[i] = reranker.TextPair{Query: p.Query, Passage: p.Passage}
	}

	opts := &reranker.ScoreOptions{Normalize: req.Normalize}
	results, err := h.svc.ScoreBatchPairs(c.Request.Context(), pairs, opts)
	if err != nil {
		h.writeError(c, err)
		return
	}

	scores := make([]float64, len(results))
	normalized := false
	for i, r := range results {
		scores[i] = r.Score()
		normalized = r.NormalizedScore != nil
	}

	c.JSON(http.StatusOK, dto.BatchRerankResponse{
		Scores:     scores,
		Normalized: normalized,
		PairsCount: len(results),
	})
}

// RerankQuery handles POST /rerank/query.
func (h *RerankHandler) RerankQuery(c *gin.Context) {
	var req dto.QueryRerankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	opts := &reranker.ScoreOptions{Normalize: req.Normalize}
	ranked, err := h.svc.RankPassages(c.Request.Context(), req.Query, req.Passages, opts)
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]dto.RankedPassage, len(ranked))
	for i, r := range ranked {
		out[i] = dto.RankedPassage{Passage: r.Passage, Score: r.Score}
	}
	c.JSON(http.StatusOK, dto.QueryRerankResponse{ReRanked: out})
}

func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "invalid_request",
		Message: err.Error(),
	})
}

func (h *RerankHandler) writeError(c *gin.Context, err error) {
	var verr *reranker.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: verr.Error(),
		})
		return
	}

	status := http.StatusInternalServerError
	code := "internal_error"
	switch backend.KindOf(err) {
	case backend.KindUnavailable:
		status = http.StatusServiceUnavailable
		code = "backend_unavailable"
	case backend.KindTimeout:
		status = http.StatusGatewayTimeout
		code = "timeout"
	case backend.KindInference:
		code = "inference_failure"
	}

	h.logger.Error("scoring request failed", "status", status, "error", err)
	c.JSON(status, dto.ErrorResponse{Error: code, Message: err.Error()})
}
