package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FormulaInfer/internal/application/inference"
	"github.com/turtacn/FormulaInfer/internal/config"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/messaging/kafka"
	apihttp "github.com/turtacn/FormulaInfer/internal/interfaces/http"
	"github.com/turtacn/FormulaInfer/internal/interfaces/http/handlers"
	ftypes "github.com/turtacn/FormulaInfer/pkg/types/formula"
)

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, *kafka.ProducerMessage) error { return nil }

func newAPIClient(t *testing.T, jobs kafka.Publisher) *Client {
	t.Helper()
	svc := inference.NewService(config.InferenceConfig{Workers: 2}, nil)
	router := apihttp.NewRouter(apihttp.RouterConfig{
		InferenceHandler: handlers.NewInferenceHandler(svc, handlers.InferenceHandlerConfig{Jobs: jobs}, nil),
		FormulaHandler:   handlers.NewFormulaHandler(svc, 0, nil),
		ElementHandler:   handlers.NewElementHandler(svc, nil),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, WithRetryMax(0))
	require.NoError(t, err)
	return c
}

func TestInferenceClient_Infer(t *testing.T) {
	c := newAPIClient(t, nil)

	resp, err := c.Inference().Infer(context.Background(), &ftypes.InferenceRequest{
		Components:        []ftypes.Component{{Symbol: "C"}, {Symbol: "O"}},
		Fractions:         map[string]float64{"C": 27.27},
		MaxCount:          3,
		FractionTolerance: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, ftypes.ModeGeneral, resp.Mode)
	require.Len(t, resp.Solutions, 1)
	assert.Equal(t, map[string]int{"C": 1, "O": 2}, resp.Solutions[0].Formula)
}

func TestInferenceClient_Unknown(t *testing.T) {
	c := newAPIClient(t, nil)

	resp, err := c.Inference().Unknown(context.Background(), &ftypes.InferenceRequest{
		Components: []ftypes.Component{{Symbol: "?"}, {Symbol: "Cl"}},
		Fractions:  map[string]float64{"Cl": 60.66},
		MaxCount:   2,
		Filter:     "metal",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Solutions)
	assert.Equal(t, "Na", resp.Solutions[0].Element)
}

func TestInferenceClient_BruteForceRejectsPlaceholder(t *testing.T) {
	c := newAPIClient(t, nil)

	_, err := c.Inference().BruteForce(context.Background(), &ftypes.InferenceRequest{
		Components: []ftypes.Component{{Symbol: "?"}, {Symbol: "O"}},
		Fractions:  map[string]float64{"O": 50},
	})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsInvalidRequest())
	assert.Equal(t, "FRM_004", apiErr.Code)
}

func TestInferenceClient_NilRequest(t *testing.T) {
	c := newAPIClient(t, nil)
	_, err := c.Inference().Infer(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = c.Inference().Submit(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestInferenceClient_Submit(t *testing.T) {
	_, err := newAPIClient(t, nil).Inference().Submit(context.Background(), &ftypes.InferenceRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())

	acc, err := newAPIClient(t, discardPublisher{}).Inference().Submit(context.Background(), &ftypes.InferenceRequest{
		Components: []ftypes.Component{{Symbol: "C"}, {Symbol: "O"}},
		Fractions:  map[string]float64{"C": 27.27},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, acc.JobID)
	assert.Equal(t, kafka.TopicInferenceCompleted, acc.ResultTopic)
}

func TestElementsClient(t *testing.T) {
	c := newAPIClient(t, nil)
	ctx := context.Background()

	all, err := c.Elements().List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "H", all.Elements[0].Symbol)

	metals, err := c.Elements().List(ctx, "metal")
	require.NoError(t, err)
	assert.Less(t, metals.Count, all.Count)

	m, err := c.Elements().Match(ctx, 22.98, 0.1, "metal")
	require.NoError(t, err)
	require.True(t, m.Found)
	assert.Equal(t, "Na", m.Element.Symbol)

	m, err = c.Elements().Match(ctx, 1.0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultMassTolerance, m.Tolerance)

	_, err = c.Elements().List(ctx, "plasma")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
}

func TestFormulasClient_Parse(t *testing.T) {
	c := newAPIClient(t, nil)

	p, err := c.Formulas().Parse(context.Background(), "C2H3O2")
	require.NoError(t, err)
	assert.InDelta(t, 59.044, p.Mass, 1e-9)

	_, err = c.Formulas().Parse(context.Background(), "C2Xx")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 422, apiErr.StatusCode)
}
