package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"tradepulse/internal/analysis"
	apierrors "tradepulse/internal/errors"
	"tradepulse/internal/infrastructure"
	"tradepulse/internal/middleware"
)

// AnalysisServiceInterface is what the handler needs from the service layer
type AnalysisServiceInterface interface {
	RunAnalysis(ctx context.Context, req analysis.Request) analysis.Result
}

var validate = validator.New()

// AnalysisRequest is the transport-level request body. Primitive-type
// validation happens here; business validation (symbol existence)
// happens in the orchestrator and is reported inside the envelope.
type AnalysisRequest struct {
	analysis.Request
}

// Bind implements the render.Binder interface
func (r *AnalysisRequest) Bind(req *http.Request) error {
	if err := validate.Struct(r.Request); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errors.New(bindMessage(verrs[0]))
		}
		return err
	}
	return nil
}

func bindMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "datetime":
		return fe.Field() + " must be formatted as YYYY-MM-DD"
	case "oneof":
		return fe.Field() + " contains an unknown analyst role"
	default:
		return fe.Field() + " is invalid"
	}
}

// AnalysisHandler handles analysis-related HTTP requests
type AnalysisHandler struct {
	service AnalysisServiceInterface
	logger  *slog.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, logger *slog.Logger) *AnalysisHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "analysis")),
	}
}

// Routes returns a chi router for analysis endpoints
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.StartAnalysis)
	return r
}

// StartAnalysis handles POST /api/analysis.
//
// Business outcomes, including validation rejections and engine
// failures, are always HTTP 200 with the envelope's success flag set;
// only malformed requests produce a transport-level error status.
func (h *AnalysisHandler) StartAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	data := &AnalysisRequest{}
	if err := render.Bind(r, data); err != nil {
		h.logger.WarnContext(ctx, "invalid analysis request",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		render.Render(w, r, apierrors.InvalidRequestWithError(err).
			WithTraceID(infrastructure.GetTraceID(ctx)))
		return
	}

	h.logger.InfoContext(ctx, "analysis request accepted",
		slog.String("stock_code", data.StockCode),
		slog.Int("research_depth", data.ResearchDepth),
		slog.String("request_id", reqID))

	result := h.service.RunAnalysis(ctx, data.Request)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, result)
}
