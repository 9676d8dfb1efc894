package handlers

import (
	"net/http"

	"github.com/turtacn/FormulaInfer/internal/application/inference"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/monitoring/logging"
	ftypes "github.com/turtacn/FormulaInfer/pkg/types/formula"
)

// FormulaHandler exposes the formula parser.
type FormulaHandler struct {
	svc         inference.Service
	maxBodySize int64
	logger      logging.Logger
}

func NewFormulaHandler(svc inference.Service, maxBodySize int64, logger logging.Logger) *FormulaHandler {
	return &FormulaHandler{svc: svc, maxBodySize: maxBodySize, logger: orNop(logger)}
}

// Parse handles POST /api/v1/formulas/parse.
func (h *FormulaHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req ftypes.ParseRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp, err := h.svc.Parse(r.Context(), req.Formula)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
