package handlers

import (
	"net/http"

	"github.com/turtacn/FormulaInfer/internal/application/inference"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FormulaInfer/pkg/errors"
	ftypes "github.com/turtacn/FormulaInfer/pkg/types/formula"
)

// JobAccepted is the response to an asynchronous inference submission.
type JobAccepted struct {
	JobID       string `json:"job_id"`
	ResultTopic string `json:"result_topic"`
}

// InferenceHandlerConfig configures an InferenceHandler.
type InferenceHandlerConfig struct {
	MaxBodySize int64

	// Jobs enables POST /inference/jobs when non-nil.
	Jobs        kafka.Publisher
	JobTopic    string
	ResultTopic string
}

// InferenceHandler serves the synchronous and asynchronous inference endpoints.
type InferenceHandler struct {
	svc    inference.Service
	cfg    InferenceHandlerConfig
	logger logging.Logger
}

// NewInferenceHandler creates an InferenceHandler.
func NewInferenceHandler(svc inference.Service, cfg InferenceHandlerConfig, logger logging.Logger) *InferenceHandler {
	if cfg.JobTopic == "" {
		cfg.JobTopic = kafka.TopicInferenceRequested
	}
	if cfg.ResultTopic == "" {
		cfg.ResultTopic = kafka.TopicInferenceCompleted
	}
	return &InferenceHandler{svc: svc, cfg: cfg, logger: orNop(logger)}
}

// JobsEnabled reports whether asynchronous submission is available.
func (h *InferenceHandler) JobsEnabled() bool { return h.cfg.Jobs != nil }

// Infer handles POST /api/v1/inference.  The mode comes from the body and
// defaults to auto-detection.
func (h *InferenceHandler) Infer(w http.ResponseWriter, r *http.Request) {
	h.infer(w, r, "")
}

// Unknown handles POST /api/v1/inference/unknown.
func (h *InferenceHandler) Unknown(w http.ResponseWriter, r *http.Request) {
	h.infer(w, r, ftypes.ModeUnknown)
}

// BruteForce handles POST /api/v1/inference/brute-force.
func (h *InferenceHandler) BruteForce(w http.ResponseWriter, r *http.Request) {
	h.infer(w, r, ftypes.ModeGeneral)
}

func (h *InferenceHandler) infer(w http.ResponseWriter, r *http.Request, force ftypes.Mode) {
	var req ftypes.InferenceRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodySize, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if force != "" {
		req.Mode = force
	}

	resp, err := h.svc.Infer(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SubmitJob handles POST /api/v1/inference/jobs.  The request is queued
// as-is; validation happens in the worker and failures are reported on the
// result topic.
func (h *InferenceHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Jobs == nil {
		writeError(w, h.logger, errors.New(errors.ErrCodeServiceUnavailable, "asynchronous inference is not configured"))
		return
	}

	var req ftypes.InferenceRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodySize, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	id, err := inference.SubmitJob(r.Context(), h.cfg.Jobs, h.cfg.JobTopic, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("inference job submitted", logging.String("job_id", id))
	writeJSON(w, http.StatusAccepted, JobAccepted{JobID: id, ResultTopic: h.cfg.ResultTopic})
}
