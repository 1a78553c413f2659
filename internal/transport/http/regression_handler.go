package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "factorlens/internal/errors"
	"factorlens/pkg/contracts/domain"
)

// RegressionHandler handles regression run and chart-series requests
type RegressionHandler struct {
	service      RegressionService
	errorHandler *apierrors.ErrorHandler
	validate     *validator.Validate
	logger       *slog.Logger
}

// NewRegressionHandler creates a new regression handler
func NewRegressionHandler(service RegressionService, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *RegressionHandler {
	return &RegressionHandler{
		service:      service,
		errorHandler: errorHandler,
		validate:     validator.New(),
		logger:       logger.With(slog.String("handler", "regression")),
	}
}

// Routes sets up the regression routes
func (h *RegressionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/run", h.Run)
	r.Get("/run/latest", h.LatestRun)
	r.Get("/rsquared", h.RSquaredSeries)
	r.Get("/coefficients/{name}", h.CoefficientSeries)
	return r
}

// runRequest is the POST body for a regression run. Every field is optional;
// unset fields fall back to the configured defaults.
type runRequest struct {
	Tickers    []string           `json:"tickers" validate:"omitempty,min=1,dive,required"`
	Weights    map[string]float64 `json:"weights"`
	Factors    []string           `json:"factors" validate:"omitempty,dive,required"`
	WindowSize int                `json:"window_size" validate:"omitempty,min=3"`
	From       string             `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To         string             `json:"to" validate:"omitempty,datetime=2006-01-02"`
}

func (req *runRequest) toParams() domain.RunParams {
	params := domain.RunParams{
		Tickers:    req.Tickers,
		Weights:    req.Weights,
		Factors:    req.Factors,
		WindowSize: req.WindowSize,
	}
	// Dates already validated against the layout
	if req.From != "" {
		params.From, _ = time.Parse("2006-01-02", req.From)
	}
	if req.To != "" {
		params.To, _ = time.Parse("2006-01-02", req.To)
	}
	return params
}

// Run handles POST /api/regression/run
func (h *RegressionHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	// An absent body (io.EOF) means "run with configured defaults". Chunked
	// requests report ContentLength -1, so presence is decided by decoding,
	// not by the header.
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest, "INVALID_REQUEST", "Request body is not valid JSON", err.Error()))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", err.Error()))
		return
	}

	run, err := h.service.Run(r.Context(), req.toParams())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "regression run served",
		slog.String("run_id", run.ID),
		slog.Int("windows", len(run.Results)))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, run)
}

// LatestRun handles GET /api/regression/run/latest
func (h *RegressionHandler) LatestRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.service.LatestRun()
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.ErrRunNotFound)
		return
	}
	render.JSON(w, r, run)
}

// seriesResponse wraps a chart series with its name
type seriesResponse struct {
	Name   string        `json:"name"`
	Series domain.Series `json:"series"`
}

// RSquaredSeries handles GET /api/regression/rsquared
func (h *RegressionHandler) RSquaredSeries(w http.ResponseWriter, r *http.Request) {
	series, err := h.service.RSquaredSeries()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, seriesResponse{Name: "r_squared", Series: series})
}

// CoefficientSeries handles GET /api/regression/coefficients/{name}
func (h *RegressionHandler) CoefficientSeries(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	series, err := h.service.CoefficientSeries(name)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, seriesResponse{Name: name, Series: series})
}
