package handlers

import (
	"net/http"
	"strconv"

	"github.com/turtacn/FormulaInfer/internal/application/inference"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FormulaInfer/pkg/errors"
)

// ElementHandler exposes the periodic-table catalog and mass matcher.
type ElementHandler struct {
	svc    inference.Service
	logger logging.Logger
}

func NewElementHandler(svc inference.Service, logger logging.Logger) *ElementHandler {
	return &ElementHandler{svc: svc, logger: orNop(logger)}
}

// List handles GET /api/v1/elements?category=.
func (h *ElementHandler) List(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Elements(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Match handles GET /api/v1/elements/match?mass=&tolerance=&category=.
func (h *ElementHandler) Match(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mass, err := queryFloat(q.Get("mass"), "mass", true)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	tolerance, err := queryFloat(q.Get("tolerance"), "tolerance", false)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.svc.Match(r.Context(), mass, tolerance, q.Get("category"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func queryFloat(raw, name string, required bool) (float64, error) {
	if raw == "" {
		if required {
			return 0, errors.Newf(errors.ErrCodeBadRequest, "query parameter %q is required", name)
		}
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Newf(errors.ErrCodeBadRequest, "query parameter %q must be a number", name)
	}
	return v, nil
}
