package inference

import (
	"context"
	"time"

	"github.com/turtacn/FormulaInfer/internal/infrastructure/database/redis"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FormulaInfer/pkg/errors"
	"github.com/turtacn/FormulaInfer/pkg/types/common"
	ftypes "github.com/turtacn/FormulaInfer/pkg/types/formula"
)

// JobSource is the envelope source written by the worker.
const JobSource = "formula-worker"

const defaultClaimPollInterval = time.Second

// JobProcessorConfig configures a JobProcessor.
type JobProcessorConfig struct {
	ResultTopic string
	// InFlightTTL bounds the claim held while a job is solved.  It must
	// exceed the solve timeout; a claim left by a dead worker expires after
	// it.  Zero disables in-flight claims.
	InFlightTTL time.Duration
	// DoneTTL is how long a job whose result was published is remembered
	// for duplicate suppression.  Zero disables done markers.
	DoneTTL time.Duration
	// ClaimPollInterval is how often a delivery blocked by a live in-flight
	// claim checks again.  Defaults to one second.
	ClaimPollInterval time.Duration
}

// JobProcessor turns inference-requested events into inference-completed
// events.  Its Handle method is a kafka.MessageHandler.
type JobProcessor struct {
	svc     Service
	pub     kafka.Publisher
	claims  redis.Cache
	cfg     JobProcessorConfig
	metrics *prometheus.AppMetrics
	logger  logging.Logger
}

// NewJobProcessor wires a processor.  claims and metrics may be nil.
func NewJobProcessor(svc Service, pub kafka.Publisher, claims redis.Cache, cfg JobProcessorConfig,
	metrics *prometheus.AppMetrics, logger logging.Logger) *JobProcessor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopMetrics()
	}
	if cfg.ResultTopic == "" {
		cfg.ResultTopic = kafka.TopicInferenceCompleted
	}
	if cfg.ClaimPollInterval <= 0 {
		cfg.ClaimPollInterval = defaultClaimPollInterval
	}
	return &JobProcessor{
		svc:     svc,
		pub:     pub,
		claims:  claims,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.Named("jobs"),
	}
}

// Handle processes one job message.
//
// Requests the service rejects (invalid input, unparsable formulas, solves
// that exceed their time budget) are answered with a failed result and are
// not retried.  Any other failure is returned so the consumer retries the
// message and eventually dead-letters it.
func (p *JobProcessor) Handle(ctx context.Context, msg *kafka.Message) error {
	start := time.Now()

	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		return err
	}
	var job ftypes.InferenceJob
	if err := env.DecodePayload(&job); err != nil {
		return err
	}
	if job.JobID == "" {
		return errors.New(errors.ErrCodeSerialization, "inference job has no job_id")
	}
	log := p.logger.With(logging.String("job_id", job.JobID))

	run, claimed, err := p.acquire(ctx, log, job.JobID)
	if err != nil {
		return err
	}
	if !run {
		p.metrics.RecordJob("duplicate", time.Since(start))
		return nil
	}
	release := func() {
		if !claimed {
			return
		}
		if err := p.claims.Delete(context.WithoutCancel(ctx), inFlightKey(job.JobID)); err != nil {
			log.Warn("job claim release failed", logging.Err(err))
		}
	}

	result := ftypes.InferenceResult{JobID: job.JobID}
	resp, err := p.svc.Infer(ctx, &job.Request)
	switch {
	case err == nil:
		result.Status = ftypes.JobCompleted
		result.Response = resp
	case ctx.Err() != nil:
		// Worker shutdown: let the message be redelivered.
		release()
		return ctx.Err()
	case terminal(err):
		result.Status = ftypes.JobFailed
		result.Error = &common.ErrorDetail{
			Code:    string(errors.GetCode(err)),
			Message: errors.MessageOf(err),
			Detail:  errors.DetailOf(err),
		}
	default:
		release()
		p.metrics.RecordError("worker", string(errors.GetCode(err)))
		return err
	}
	result.CompletedAt = time.Now().UTC()

	out, err := kafka.NewEventEnvelope(kafka.EventInferenceCompleted, JobSource, result)
	if err != nil {
		release()
		return err
	}
	out.TraceID = env.TraceID
	if err := p.publish(ctx, job.JobID, out); err != nil {
		release()
		return err
	}
	p.markDone(ctx, log, job.JobID, result.CompletedAt)
	release()

	elapsed := time.Since(start)
	p.metrics.RecordJob(string(result.Status), elapsed)
	log.Info("job processed",
		logging.String("status", string(result.Status)),
		logging.Duration("elapsed", elapsed))
	return nil
}

func doneKey(jobID string) string     { return "job:done:" + jobID }
func inFlightKey(jobID string) string { return "job:inflight:" + jobID }

// acquire decides whether this delivery runs the job.  A job with a done
// marker is skipped.  A live in-flight claim held elsewhere is waited out:
// the wait ends when the holder publishes (skip) or its claim expires (run).
// Redis failures fall back to running the job.
func (p *JobProcessor) acquire(ctx context.Context, log logging.Logger, jobID string) (run, claimed bool, err error) {
	if p.claims == nil {
		return true, false, nil
	}
	waiting := false
	for {
		if p.cfg.DoneTTL > 0 {
			var completedAt time.Time
			err := p.claims.Get(ctx, doneKey(jobID), &completedAt)
			switch {
			case err == nil:
				log.Info("duplicate job skipped", logging.String("completed_at", completedAt.Format(time.RFC3339)))
				return false, false, nil
			case !errors.IsCode(err, errors.ErrCodeNotFound):
				log.Warn("job done marker lookup failed, processing anyway", logging.Err(err))
				return true, false, nil
			}
		}
		if p.cfg.InFlightTTL <= 0 {
			return true, false, nil
		}

		ok, err := p.claims.Claim(ctx, inFlightKey(jobID), p.cfg.InFlightTTL)
		if err != nil {
			log.Warn("job claim failed, processing anyway", logging.Err(err))
			return true, false, nil
		}
		if ok {
			return true, true, nil
		}
		if !waiting {
			log.Info("job in flight elsewhere, waiting for its claim")
			waiting = true
		}
		select {
		case <-ctx.Done():
			return false, false, ctx.Err()
		case <-time.After(p.cfg.ClaimPollInterval):
		}
	}
}

func (p *JobProcessor) markDone(ctx context.Context, log logging.Logger, jobID string, at time.Time) {
	if p.claims == nil || p.cfg.DoneTTL <= 0 {
		return
	}
	if err := p.claims.Set(context.WithoutCancel(ctx), doneKey(jobID), at, p.cfg.DoneTTL); err != nil {
		log.Warn("job done marker write failed", logging.Err(err))
	}
}

func (p *JobProcessor) publish(ctx context.Context, key string, env *kafka.EventEnvelope) error {
	msg, err := env.ToMessage(p.cfg.ResultTopic, key)
	if err != nil {
		return err
	}
	return p.pub.Publish(ctx, msg)
}

func terminal(err error) bool {
	return errors.IsInputError(err) || errors.IsParseError(err) || errors.IsCode(err, errors.ErrCodeTimeout)
}

// SubmitJob publishes req as a new inference job and returns its ID.
func SubmitJob(ctx context.Context, pub kafka.Publisher, topic string, req ftypes.InferenceRequest) (string, error) {
	job := ftypes.InferenceJob{
		JobID:       common.GenerateID("job"),
		Request:     req,
		SubmittedAt: time.Now().UTC(),
	}
	env, err := kafka.NewEventEnvelope(kafka.EventInferenceRequested, "formula-api", job)
	if err != nil {
		return "", err
	}
	msg, err := env.ToMessage(topic, job.JobID)
	if err != nil {
		return "", err
	}
	if err := pub.Publish(ctx, msg); err != nil {
		return "", err
	}
	return job.JobID, nil
}
