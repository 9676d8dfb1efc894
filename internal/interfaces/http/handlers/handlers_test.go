package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FormulaInfer/internal/application/inference"
	"github.com/turtacn/FormulaInfer/internal/config"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/FormulaInfer/internal/testutil"
	"github.com/turtacn/FormulaInfer/pkg/errors"
	"github.com/turtacn/FormulaInfer/pkg/types/common"
	ftypes "github.com/turtacn/FormulaInfer/pkg/types/formula"
)

const co2Body = `{"components":[{"symbol":"C"},{"symbol":"O"}],"fractions":{"C":27.27},"max_count":3,"fraction_tolerance":1}`

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*kafka.ProducerMessage
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg *kafka.ProducerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func newService() inference.Service {
	return inference.NewService(config.InferenceConfig{Workers: 2}, nil)
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	h(w, r)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) common.ErrorDetail {
	t.Helper()
	var e common.ErrorDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e), w.Body.String())
	return e
}

func TestInferenceHandler_Infer(t *testing.T) {
	h := NewInferenceHandler(newService(), InferenceHandlerConfig{}, nil)

	w := post(h.Infer, co2Body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	var resp ftypes.InferenceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ftypes.ModeGeneral, resp.Mode)
	require.Len(t, resp.Solutions, 1)
	assert.Equal(t, "C O2", resp.Solutions[0].Display)
}

func TestInferenceHandler_ForcedModes(t *testing.T) {
	h := NewInferenceHandler(newService(), InferenceHandlerConfig{}, nil)

	// Brute force refuses the placeholder even when the body asks for auto.
	w := post(h.BruteForce, `{"components":[{"symbol":"?"},{"symbol":"O"}],"fractions":{"O":88.81},"mode":"auto"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(errors.ErrCodeComponentInvalid), decodeError(t, w).Code)

	w = post(h.Unknown, `{"components":[{"symbol":"?"},{"symbol":"O"}],"fractions":{"O":88.81},"max_count":3,"mass_tolerance":0.5,"filter":"nonmetal"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp ftypes.InferenceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ftypes.ModeUnknown, resp.Mode)
	assert.NotEmpty(t, resp.Solutions)
}

func TestInferenceHandler_BadRequests(t *testing.T) {
	h := NewInferenceHandler(newService(), InferenceHandlerConfig{MaxBodySize: 256}, nil)

	tests := []struct {
		name   string
		body   string
		status int
		code   errors.ErrorCode
	}{
		{"empty body", "", http.StatusBadRequest, errors.ErrCodeBadRequest},
		{"malformed", "{", http.StatusBadRequest, errors.ErrCodeBadRequest},
		{"unknown field", `{"components":[],"tolerance":1}`, http.StatusBadRequest, errors.ErrCodeBadRequest},
		{"trailing object", co2Body + co2Body, http.StatusBadRequest, errors.ErrCodeBadRequest},
		{"too large", `{"components":[{"symbol":"` + strings.Repeat("C", 300) + `"}]}`, http.StatusBadRequest, errors.ErrCodeBadRequest},
		{"no fractions", `{"components":[{"symbol":"C"},{"symbol":"O"}]}`, http.StatusBadRequest, errors.ErrCodeInferenceInvalidInput},
		{"unparsable component", `{"components":[{"symbol":"X","formula":"C2(H"}],"fractions":{"C":50}}`, http.StatusUnprocessableEntity, errors.ErrCodeFormulaIllegalChar},
		{"fraction keys equal after trimming", `{"components":[{"symbol":"C"},{"symbol":"O"}],"fractions":{" C":10,"C":20}}`, http.StatusBadRequest, errors.ErrCodeFractionInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(h.Infer, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, string(tt.code), decodeError(t, w).Code)
		})
	}
}

func TestInferenceHandler_ComponentParseErrorKeepsDetail(t *testing.T) {
	h := NewInferenceHandler(newService(), InferenceHandlerConfig{}, nil)

	w := post(h.Infer, `{"components":[{"symbol":"Ac","formula":"C2Xx"}],"fractions":{"C":50}}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	e := decodeError(t, w)
	assert.Equal(t, string(errors.ErrCodeFormulaUnknownElement), e.Code)
	assert.Contains(t, e.Message, `component "Ac"`)
	assert.Equal(t, `formula="C2Xx" position=2`, e.Detail)
}

func TestInferenceHandler_TimeoutIs504(t *testing.T) {
	svc := inference.NewService(config.InferenceConfig{Workers: 1}, nil)
	h := NewInferenceHandler(svc, InferenceHandlerConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(co2Body)).WithContext(ctx)
	h.Infer(w, r)

	require.Equal(t, http.StatusGatewayTimeout, w.Code)
	e := decodeError(t, w)
	assert.Equal(t, string(errors.ErrCodeTimeout), e.Code)
	assert.Equal(t, "inference aborted", e.Message)
}

func TestInferenceHandler_SubmitJob(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h := NewInferenceHandler(newService(), InferenceHandlerConfig{}, nil)
		assert.False(t, h.JobsEnabled())
		w := post(h.SubmitJob, co2Body)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, string(errors.ErrCodeServiceUnavailable), decodeError(t, w).Code)
	})

	t.Run("accepted", func(t *testing.T) {
		pub := &recordingPublisher{}
		log := testutil.NewMockLogger()
		h := NewInferenceHandler(newService(), InferenceHandlerConfig{Jobs: pub}, log)
		require.True(t, h.JobsEnabled())

		w := post(h.SubmitJob, co2Body)
		require.Equal(t, http.StatusAccepted, w.Code)
		var acc JobAccepted
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &acc))
		assert.True(t, strings.HasPrefix(acc.JobID, "job-"))
		assert.Equal(t, kafka.TopicInferenceCompleted, acc.ResultTopic)

		require.Len(t, pub.msgs, 1)
		assert.Equal(t, kafka.TopicInferenceRequested, pub.msgs[0].Topic)
		assert.Equal(t, []byte(acc.JobID), pub.msgs[0].Key)
		assert.True(t, log.HasMessage("info", "inference job submitted"))
	})

	t.Run("broker failure is masked", func(t *testing.T) {
		pub := &recordingPublisher{err: stderrors.New("dial tcp 10.0.0.1:9092: refused")}
		log := testutil.NewMockLogger()
		h := NewInferenceHandler(newService(), InferenceHandlerConfig{Jobs: pub}, log)

		w := post(h.SubmitJob, co2Body)
		require.Equal(t, http.StatusInternalServerError, w.Code)
		e := decodeError(t, w)
		assert.Equal(t, string(errors.ErrCodeInternal), e.Code)
		assert.Equal(t, "internal server error", e.Message)
		assert.True(t, log.HasMessage("error", "request failed"))
	})
}

func TestFormulaHandler_Parse(t *testing.T) {
	h := NewFormulaHandler(newService(), 0, nil)

	w := post(h.Parse, `{"formula":"C2H3O2"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp ftypes.ParseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.InDelta(t, 59.044, resp.Mass, 1e-9)
	assert.Equal(t, map[string]int{"C": 2, "H": 3, "O": 2}, resp.Composition)

	w = post(h.Parse, `{"formula":"C2Xx"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestElementHandler_List(t *testing.T) {
	h := NewElementHandler(newService(), nil)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/v1/elements?category=metal", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list ftypes.ElementList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, "metal", list.Category)
	assert.NotEmpty(t, list.Elements)

	w = httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/v1/elements?category=plasma", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestElementHandler_Match(t *testing.T) {
	h := NewElementHandler(newService(), nil)

	get := func(query string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.Match(w, httptest.NewRequest(http.MethodGet, "/api/v1/elements/match?"+query, nil))
		return w
	}

	w := get("mass=22.98&tolerance=0.1&category=metal")
	require.Equal(t, http.StatusOK, w.Code)
	var resp ftypes.MatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Found)
	assert.Equal(t, "Na", resp.Element.Symbol)

	w = get("mass=22.98&tolerance=0.1&category=nonmetal")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Found)

	for _, q := range []string{"", "mass=abc", "mass=1&tolerance=x", "mass=-1"} {
		w = get(q)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		assert.Equal(t, string(errors.ErrCodeBadRequest), decodeError(t, w).Code, q)
	}
}
