package inference

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FormulaInfer/internal/config"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/database/redis"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/FormulaInfer/internal/testutil"
	"github.com/turtacn/FormulaInfer/pkg/errors"
	ftypes "github.com/turtacn/FormulaInfer/pkg/types/formula"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*kafka.ProducerMessage
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, msg *kafka.ProducerMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakePublisher) results(t *testing.T) []ftypes.InferenceResult {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ftypes.InferenceResult, 0, len(f.msgs))
	for _, m := range f.msgs {
		env, err := kafka.MessageToEventEnvelope(&kafka.Message{Value: m.Value})
		require.NoError(t, err)
		var r ftypes.InferenceResult
		require.NoError(t, env.DecodePayload(&r))
		out = append(out, r)
	}
	return out
}

// stubService lets tests force Infer failures.
type stubService struct {
	Service
	err error
}

func (s stubService) Infer(context.Context, *ftypes.InferenceRequest) (*ftypes.InferenceResponse, error) {
	return nil, s.err
}

func jobMessage(t *testing.T, jobID string, req *ftypes.InferenceRequest) *kafka.Message {
	t.Helper()
	env, err := kafka.NewEventEnvelope(kafka.EventInferenceRequested, "test", ftypes.InferenceJob{
		JobID:   jobID,
		Request: *req,
	})
	require.NoError(t, err)
	env.TraceID = "trace-" + jobID
	pm, err := env.ToMessage(kafka.TopicInferenceRequested, jobID)
	require.NoError(t, err)
	return &kafka.Message{Topic: pm.Topic, Key: pm.Key, Value: pm.Value, Headers: pm.Headers}
}

func TestJobProcessor_Completed(t *testing.T) {
	pub := &fakePublisher{}
	log := testutil.NewMockLogger()
	proc := NewJobProcessor(NewService(config.InferenceConfig{}, nil), pub, nil, JobProcessorConfig{}, nil, log)

	require.NoError(t, proc.Handle(context.Background(), jobMessage(t, "job-1", co2Request())))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, kafka.TopicInferenceCompleted, pub.msgs[0].Topic)
	assert.Equal(t, []byte("job-1"), pub.msgs[0].Key)
	assert.Equal(t, "trace-job-1", pub.msgs[0].Headers["trace_id"])

	results := pub.results(t)
	require.Len(t, results, 1)
	assert.Equal(t, "job-1", results[0].JobID)
	assert.Equal(t, ftypes.JobCompleted, results[0].Status)
	require.NotNil(t, results[0].Response)
	require.Len(t, results[0].Response.Solutions, 1)
	assert.Equal(t, "C O2", results[0].Response.Solutions[0].Display)
	assert.Nil(t, results[0].Error)
	assert.True(t, log.HasMessage("info", "job processed"))
}

func TestJobProcessor_InvalidInputPublishesFailure(t *testing.T) {
	pub := &fakePublisher{}
	proc := NewJobProcessor(NewService(config.InferenceConfig{}, nil), pub, nil, JobProcessorConfig{ResultTopic: "results"}, nil, nil)

	req := co2Request()
	req.Fractions = nil
	require.NoError(t, proc.Handle(context.Background(), jobMessage(t, "job-2", req)))

	results := pub.results(t)
	require.Len(t, results, 1)
	assert.Equal(t, "results", pub.msgs[0].Topic)
	assert.Equal(t, ftypes.JobFailed, results[0].Status)
	require.NotNil(t, results[0].Error)
	assert.Equal(t, string(errors.ErrCodeInferenceInvalidInput), results[0].Error.Code)
	assert.Equal(t, "at least one mass fraction required in general mode", results[0].Error.Message)
}

func TestJobProcessor_ParseErrorPublishesFailure(t *testing.T) {
	pub := &fakePublisher{}
	proc := NewJobProcessor(NewService(config.InferenceConfig{}, nil), pub, nil, JobProcessorConfig{}, nil, nil)

	req := co2Request()
	req.Components = append(req.Components, ftypes.Component{Symbol: "X1", Formula: "C2(H"})
	require.NoError(t, proc.Handle(context.Background(), jobMessage(t, "job-3", req)))

	results := pub.results(t)
	require.Len(t, results, 1)
	assert.Equal(t, ftypes.JobFailed, results[0].Status)
	assert.Equal(t, string(errors.ErrCodeFormulaIllegalChar), results[0].Error.Code)
	assert.Equal(t, "position=2", results[0].Error.Detail)
}

func TestJobProcessor_InternalErrorIsRetried(t *testing.T) {
	pub := &fakePublisher{}
	boom := errors.New(errors.ErrCodeInternal, "boom")
	proc := NewJobProcessor(stubService{err: boom}, pub, nil, JobProcessorConfig{}, nil, nil)

	err := proc.Handle(context.Background(), jobMessage(t, "job-4", co2Request()))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, pub.msgs)
}

func TestJobProcessor_TimeoutIsTerminal(t *testing.T) {
	pub := &fakePublisher{}
	timeout := errors.Wrap(context.DeadlineExceeded, errors.ErrCodeTimeout, "inference aborted")
	proc := NewJobProcessor(stubService{err: timeout}, pub, nil, JobProcessorConfig{}, nil, nil)

	require.NoError(t, proc.Handle(context.Background(), jobMessage(t, "job-5", co2Request())))
	results := pub.results(t)
	require.Len(t, results, 1)
	assert.Equal(t, string(errors.ErrCodeTimeout), results[0].Error.Code)
}

func TestJobProcessor_ShutdownIsRetried(t *testing.T) {
	pub := &fakePublisher{}
	proc := NewJobProcessor(NewService(config.InferenceConfig{}, nil), pub, nil, JobProcessorConfig{}, nil, nil)

	msg := jobMessage(t, "job-6", co2Request())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := proc.Handle(ctx, msg)
	assert.True(t, stderrors.Is(err, context.Canceled))
	assert.Empty(t, pub.msgs)
}

func TestJobProcessor_PublishFailureIsRetried(t *testing.T) {
	pub := &fakePublisher{err: stderrors.New("broker down")}
	proc := NewJobProcessor(NewService(config.InferenceConfig{}, nil), pub, nil, JobProcessorConfig{}, nil, nil)

	assert.Error(t, proc.Handle(context.Background(), jobMessage(t, "job-7", co2Request())))
}

func TestJobProcessor_MalformedMessage(t *testing.T) {
	proc := NewJobProcessor(NewService(config.InferenceConfig{}, nil), &fakePublisher{}, nil, JobProcessorConfig{}, nil, nil)

	assert.Error(t, proc.Handle(context.Background(), &kafka.Message{Value: []byte("{")}))

	env, err := kafka.NewEventEnvelope(kafka.EventInferenceRequested, "test", ftypes.InferenceJob{})
	require.NoError(t, err)
	value, err := json.Marshal(env)
	require.NoError(t, err)
	err = proc.Handle(context.Background(), &kafka.Message{Value: value})
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

func newClaimStore(t *testing.T) (*miniredis.Miniredis, redis.Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(config.RedisConfig{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, redis.NewRedisCache(client, nil)
}

func claimConfig() JobProcessorConfig {
	return JobProcessorConfig{
		InFlightTTL:       time.Minute,
		DoneTTL:           time.Hour,
		ClaimPollInterval: 5 * time.Millisecond,
	}
}

func TestJobProcessor_DuplicateSuppression(t *testing.T) {
	mr, claims := newClaimStore(t)
	pub := &fakePublisher{}
	log := testutil.NewMockLogger()
	proc := NewJobProcessor(NewService(config.InferenceConfig{}, nil), pub, claims, claimConfig(), nil, log)

	msg := jobMessage(t, "job-8", co2Request())
	require.NoError(t, proc.Handle(context.Background(), msg))
	require.NoError(t, proc.Handle(context.Background(), msg))

	assert.Len(t, pub.msgs, 1)
	assert.True(t, log.HasMessage("info", "duplicate job skipped"))
	assert.True(t, mr.Exists("formula:job:done:job-8"))
	assert.False(t, mr.Exists("formula:job:inflight:job-8"))
	assert.Equal(t, time.Hour, mr.TTL("formula:job:done:job-8"))
}

func TestJobProcessor_FailedAttemptReleasesClaim(t *testing.T) {
	mr, claims := newClaimStore(t)
	pub := &fakePublisher{err: stderrors.New("broker down")}
	proc := NewJobProcessor(NewService(config.InferenceConfig{}, nil), pub, claims, claimConfig(), nil, nil)

	msg := jobMessage(t, "job-9", co2Request())
	require.Error(t, proc.Handle(context.Background(), msg))
	assert.False(t, mr.Exists("formula:job:inflight:job-9"))
	assert.False(t, mr.Exists("formula:job:done:job-9"))

	pub.err = nil
	require.NoError(t, proc.Handle(context.Background(), msg))
	assert.Len(t, pub.msgs, 1)
}

func TestJobProcessor_ClaimLeftByDeadWorkerExpires(t *testing.T) {
	mr, claims := newClaimStore(t)
	// A worker claimed the job and died before publishing.
	require.NoError(t, mr.Set("formula:job:inflight:job-10", "1"))
	mr.SetTTL("formula:job:inflight:job-10", time.Minute)

	pub := &fakePublisher{}
	log := testutil.NewMockLogger()
	proc := NewJobProcessor(NewService(config.InferenceConfig{}, nil), pub, claims, claimConfig(), nil, log)

	done := make(chan error, 1)
	go func() { done <- proc.Handle(context.Background(), jobMessage(t, "job-10", co2Request())) }()

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, pub.results(t))
	mr.FastForward(2 * time.Minute)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("redelivered job never ran after the stale claim expired")
	}
	results := pub.results(t)
	require.Len(t, results, 1)
	assert.Equal(t, ftypes.JobCompleted, results[0].Status)
	assert.True(t, log.HasMessage("info", "job in flight elsewhere, waiting for its claim"))
	assert.True(t, mr.Exists("formula:job:done:job-10"))
}

func TestJobProcessor_WaitsForLiveClaimHolder(t *testing.T) {
	mr, claims := newClaimStore(t)
	require.NoError(t, mr.Set("formula:job:inflight:job-11", "1"))
	mr.SetTTL("formula:job:inflight:job-11", time.Minute)

	pub := &fakePublisher{}
	log := testutil.NewMockLogger()
	proc := NewJobProcessor(NewService(config.InferenceConfig{}, nil), pub, claims, claimConfig(), nil, log)

	done := make(chan error, 1)
	go func() { done <- proc.Handle(context.Background(), jobMessage(t, "job-11", co2Request())) }()

	// The holder publishes and marks the job done.
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, claims.Set(context.Background(), "job:done:job-11", time.Now().UTC(), time.Hour))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("waiting delivery never observed the done marker")
	}
	assert.Empty(t, pub.msgs)
	assert.True(t, log.HasMessage("info", "duplicate job skipped"))
}

func TestJobProcessor_WaitingForClaimStopsOnShutdown(t *testing.T) {
	mr, claims := newClaimStore(t)
	require.NoError(t, mr.Set("formula:job:inflight:job-12", "1"))
	mr.SetTTL("formula:job:inflight:job-12", time.Minute)

	proc := NewJobProcessor(NewService(config.InferenceConfig{}, nil), &fakePublisher{}, claims, claimConfig(), nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := proc.Handle(ctx, jobMessage(t, "job-12", co2Request()))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, mr.Exists("formula:job:inflight:job-12"))
}

func TestSubmitJob(t *testing.T) {
	pub := &fakePublisher{}
	id, err := SubmitJob(context.Background(), pub, kafka.TopicInferenceRequested, *co2Request())
	require.NoError(t, err)
	assert.Regexp(t, `^job-[0-9a-f-]{36}$`, id)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, []byte(id), pub.msgs[0].Key)

	env, err := kafka.MessageToEventEnvelope(&kafka.Message{Value: pub.msgs[0].Value})
	require.NoError(t, err)
	assert.Equal(t, kafka.EventInferenceRequested, env.EventType)
	var job ftypes.InferenceJob
	require.NoError(t, env.DecodePayload(&job))
	assert.Equal(t, id, job.JobID)
	assert.Equal(t, map[string]float64{"C": 27.27}, job.Request.Fractions)

	pub.err = stderrors.New("down")
	_, err = SubmitJob(context.Background(), pub, kafka.TopicInferenceRequested, *co2Request())
	assert.Error(t, err)
}
