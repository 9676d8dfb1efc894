package cli

import (
	"context"
	stderrors "errors"

	"github.com/turtacn/FormulaInfer/internal/application/inference"
	"github.com/turtacn/FormulaInfer/pkg/client"
	ftypes "github.com/turtacn/FormulaInfer/pkg/types/formula"
)

// remoteService satisfies inference.Service by calling a FormulaInfer API
// server through the Go SDK, so every command runs unchanged against either
// backend.
type remoteService struct {
	c *client.Client
}

var _ inference.Service = (*remoteService)(nil)

// NewRemoteService adapts an SDK client to inference.Service.
func NewRemoteService(c *client.Client) inference.Service {
	return &remoteService{c: c}
}

func (r *remoteService) Infer(ctx context.Context, req *ftypes.InferenceRequest) (*ftypes.InferenceResponse, error) {
	return r.c.Inference().Infer(ctx, req)
}

func (r *remoteService) Parse(ctx context.Context, text string) (*ftypes.ParseResponse, error) {
	return r.c.Formulas().Parse(ctx, text)
}

func (r *remoteService) Elements(ctx context.Context, category string) (*ftypes.ElementList, error) {
	return r.c.Elements().List(ctx, category)
}

func (r *remoteService) Match(ctx context.Context, mass, tolerance float64, category string) (*ftypes.MatchResponse, error) {
	return r.c.Elements().Match(ctx, mass, tolerance, category)
}

func asAPIError(err error, target **client.APIError) bool {
	return stderrors.As(err, target)
}
