package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	ftypes "github.com/turtacn/FormulaInfer/pkg/types/formula"
)

// JobAccepted acknowledges an asynchronous inference submission.
type JobAccepted struct {
	JobID       string `json:"job_id"`
	ResultTopic string `json:"result_topic"`
}

// InferenceClient runs formula inferences.
type InferenceClient struct {
	client *Client
}

// Infer lets the server choose the mode: unknown-element when a component
// is the "?" placeholder, general otherwise (unless req.Mode is set).
func (ic *InferenceClient) Infer(ctx context.Context, req *ftypes.InferenceRequest) (*ftypes.InferenceResponse, error) {
	return ic.run(ctx, "/api/v1/inference", req)
}

// Unknown forces the single-unknown-element search.
func (ic *InferenceClient) Unknown(ctx context.Context, req *ftypes.InferenceRequest) (*ftypes.InferenceResponse, error) {
	return ic.run(ctx, "/api/v1/inference/unknown", req)
}

// BruteForce forces the general multiplicity enumeration.
func (ic *InferenceClient) BruteForce(ctx context.Context, req *ftypes.InferenceRequest) (*ftypes.InferenceResponse, error) {
	return ic.run(ctx, "/api/v1/inference/brute-force", req)
}

// Submit queues req for asynchronous processing.
func (ic *InferenceClient) Submit(ctx context.Context, req *ftypes.InferenceRequest) (*JobAccepted, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is nil", ErrInvalidConfig)
	}
	var out JobAccepted
	if err := ic.client.post(ctx, "/api/v1/inference/jobs", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (ic *InferenceClient) run(ctx context.Context, path string, req *ftypes.InferenceRequest) (*ftypes.InferenceResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is nil", ErrInvalidConfig)
	}
	var out ftypes.InferenceResponse
	if err := ic.client.post(ctx, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ElementsClient queries the periodic-table catalog.
type ElementsClient struct {
	client *Client
}

// List returns the catalog; category is "", "all", "metal" or "nonmetal".
func (ec *ElementsClient) List(ctx context.Context, category string) (*ftypes.ElementList, error) {
	path := "/api/v1/elements"
	if category != "" {
		path += "?" + url.Values{"category": {category}}.Encode()
	}
	var out ftypes.ElementList
	if err := ec.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Match finds the element whose atomic mass is closest to mass within
// tolerance.  A zero tolerance uses the server default.
func (ec *ElementsClient) Match(ctx context.Context, mass, tolerance float64, category string) (*ftypes.MatchResponse, error) {
	q := url.Values{"mass": {strconv.FormatFloat(mass, 'g', -1, 64)}}
	if tolerance != 0 {
		q.Set("tolerance", strconv.FormatFloat(tolerance, 'g', -1, 64))
	}
	if category != "" {
		q.Set("category", category)
	}
	var out ftypes.MatchResponse
	if err := ec.client.get(ctx, "/api/v1/elements/match?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FormulasClient parses formulas server-side.
type FormulasClient struct {
	client *Client
}

func (fc *FormulasClient) Parse(ctx context.Context, formula string) (*ftypes.ParseResponse, error) {
	var out ftypes.ParseResponse
	if err := fc.client.post(ctx, "/api/v1/formulas/parse", ftypes.ParseRequest{Formula: formula}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
