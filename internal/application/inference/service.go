// Package inference is the application boundary of the formula-inference
// engine.  It validates requests, picks the search mode, enforces the
// configured limits, caches results and records logs and metrics around the
// pure solvers of the domain layer.  HTTP handlers, the Kafka worker and the
// CLI all go through Service.
package inference

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/FormulaInfer/internal/config"
	"github.com/turtacn/FormulaInfer/internal/domain/formula"
	"github.com/turtacn/FormulaInfer/internal/domain/periodic"
	"github.com/turtacn/FormulaInfer/internal/domain/solver"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/database/redis"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FormulaInfer/pkg/errors"
	ftypes "github.com/turtacn/FormulaInfer/pkg/types/formula"
)

// Service defines the formula-inference application operations.
type Service interface {
	// Infer runs one inference.  req.Mode selects the search; ModeAuto picks
	// the single-unknown search when a component is the "?" placeholder.
	Infer(ctx context.Context, req *ftypes.InferenceRequest) (*ftypes.InferenceResponse, error)
	Parse(ctx context.Context, text string) (*ftypes.ParseResponse, error)
	Elements(ctx context.Context, category string) (*ftypes.ElementList, error)
	Match(ctx context.Context, mass, tolerance float64, category string) (*ftypes.MatchResponse, error)
}

// Option configures the service.
type Option func(*serviceImpl)

// WithCache enables result caching.  A nil cache disables it.
func WithCache(c redis.Cache) Option {
	return func(s *serviceImpl) { s.cache = c }
}

// WithMetrics records solve metrics on m.
func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(s *serviceImpl) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTable replaces the element catalog.
func WithTable(t *periodic.Table) Option {
	return func(s *serviceImpl) {
		if t != nil {
			s.table = t
		}
	}
}

type serviceImpl struct {
	cfg     config.InferenceConfig
	table   *periodic.Table
	parser  *formula.Parser
	matcher *periodic.Matcher
	unknown *solver.SingleUnknownSolver
	brute   *solver.BruteForceSolver
	cache   redis.Cache
	metrics *prometheus.AppMetrics
	logger  logging.Logger
}

// NewService builds a Service.  Zero fields of cfg take the package
// defaults from config.
func NewService(cfg config.InferenceConfig, logger logging.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	full := config.Config{Inference: cfg}
	config.ApplyDefaults(&full)

	s := &serviceImpl{
		cfg:     full.Inference,
		table:   periodic.Standard(),
		metrics: prometheus.NewNopMetrics(),
		logger:  logger.Named("inference"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parser = formula.NewParser(s.table)
	s.matcher = periodic.NewMatcher(s.table)
	solverOpts := []solver.Option{solver.WithWorkers(s.cfg.Workers), solver.WithTable(s.table)}
	s.unknown = solver.NewSingleUnknownSolver(solverOpts...)
	s.brute = solver.NewBruteForceSolver(solverOpts...)
	return s
}

// plan is a validated, defaulted request.  Its JSON form is the cache key
// input, so field order and content must be deterministic.
type plan struct {
	Mode        ftypes.Mode            `json:"mode"`
	Components  []formula.RawComponent `json:"components"`
	Targets     formula.Targets        `json:"targets"`
	MaxCount    int                    `json:"max_count"`
	Tolerance   float64                `json:"tolerance"`
	Filter      periodic.Filter        `json:"filter,omitempty"`
	SearchSpace float64                `json:"-"`

	prepared []formula.Component
}

func (p *plan) cacheKey() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return "inference:" + hex.EncodeToString(sum[:]), nil
}

func (s *serviceImpl) Infer(ctx context.Context, req *ftypes.InferenceRequest) (*ftypes.InferenceResponse, error) {
	start := time.Now()

	p, err := s.plan(req)
	if err != nil {
		mode := "unknown"
		if req != nil && req.Mode != "" {
			mode = string(req.Mode)
		}
		s.logger.Warn("inference request rejected", logging.String("mode", mode), logging.Err(err))
		s.metrics.RecordError("inference", string(errors.GetCode(err)))
		return nil, err
	}
	mode := string(p.Mode)

	s.metrics.ActiveSolves.WithLabelValues(mode).Inc()
	defer s.metrics.ActiveSolves.WithLabelValues(mode).Dec()

	var (
		resp *ftypes.InferenceResponse
		hit  bool
	)
	if s.cache != nil {
		resp, hit, err = s.cachedSolve(ctx, p)
	} else {
		resp, err = s.solve(ctx, p)
	}
	elapsed := time.Since(start)

	if err != nil {
		status := "error"
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			status = "cancelled"
			err = errors.Wrap(err, errors.ErrCodeTimeout, "inference aborted")
		}
		s.metrics.RecordSolve(mode, status, elapsed, p.SearchSpace, 0)
		s.metrics.RecordError("inference", string(errors.GetCode(err)))
		s.logger.Error("inference failed",
			logging.String("mode", mode),
			logging.Duration("elapsed", elapsed),
			logging.Err(err))
		return nil, err
	}

	resp.Cached = hit
	resp.DurationMS = float64(elapsed.Microseconds()) / 1000
	s.metrics.RecordSolve(mode, "ok", elapsed, p.SearchSpace, resp.Count)
	s.logger.Info("inference completed",
		logging.String("mode", mode),
		logging.Int("components", len(p.Components)),
		logging.Int("targets", len(p.Targets)),
		logging.Int("max_count", p.MaxCount),
		logging.Int("solutions", resp.Count),
		logging.Bool("cached", hit),
		logging.Duration("elapsed", elapsed))
	return resp, nil
}

func (s *serviceImpl) cachedSolve(ctx context.Context, p *plan) (*ftypes.InferenceResponse, bool, error) {
	key, err := p.cacheKey()
	if err != nil {
		resp, err := s.solve(ctx, p)
		return resp, false, err
	}
	resp := &ftypes.InferenceResponse{}
	hit, err := s.cache.GetOrLoad(ctx, key, resp, s.cfg.CacheTTL, func(ctx context.Context) (interface{}, error) {
		return s.solve(ctx, p)
	})
	if err != nil {
		return nil, false, err
	}
	s.metrics.RecordCacheAccess("inference", hit)
	return resp, hit, nil
}

// solve runs the selected search under the configured timeout.
func (s *serviceImpl) solve(ctx context.Context, p *plan) (*ftypes.InferenceResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SolveTimeout)
	defer cancel()

	resp := &ftypes.InferenceResponse{
		Mode:        p.Mode,
		MaxCount:    p.MaxCount,
		Tolerance:   p.Tolerance,
		Filter:      string(p.Filter),
		SearchSpace: p.SearchSpace,
	}

	switch p.Mode {
	case ftypes.ModeUnknown:
		found, err := s.unknown.Solve(ctx, p.prepared, p.Targets, p.MaxCount, p.Tolerance, p.Filter)
		if err != nil {
			return nil, err
		}
		resp.Solutions = make([]ftypes.Solution, 0, len(found))
		for _, sol := range found {
			final := sol.Resolved()
			resp.Solutions = append(resp.Solutions, ftypes.Solution{
				Formula:       sol.Formula,
				Display:       sol.Formula.String(),
				Element:       sol.Element,
				UnknownMass:   sol.UnknownMass,
				Final:         final,
				FinalDisplay:  final.String(),
				DistinctCount: sol.Formula.DistinctCount(),
				AtomCount:     sol.Formula.AtomCount(),
			})
		}
	default:
		found, err := s.brute.Solve(ctx, p.prepared, p.Targets, p.MaxCount, p.Tolerance)
		if err != nil {
			return nil, err
		}
		resp.Solutions = make([]ftypes.Solution, 0, len(found))
		for _, f := range found {
			resp.Solutions = append(resp.Solutions, ftypes.Solution{
				Formula:       f,
				Display:       f.String(),
				DistinctCount: f.DistinctCount(),
				AtomCount:     f.AtomCount(),
			})
		}
	}
	resp.Count = len(resp.Solutions)
	return resp, nil
}

// plan validates req, applies defaults and selects the mode.
func (s *serviceImpl) plan(req *ftypes.InferenceRequest) (*plan, error) {
	if req == nil {
		return nil, errors.InputError("request body is required")
	}

	mode, ok := ftypes.ParseMode(string(req.Mode))
	if !ok {
		return nil, errors.InputError(fmt.Sprintf("unknown inference mode %q", req.Mode))
	}

	raws := make([]formula.RawComponent, len(req.Components))
	for i, c := range req.Components {
		raws[i] = formula.RawComponent{Symbol: c.Symbol, Formula: c.Formula}
	}
	checked, err := s.parser.CheckComponents(raws)
	if err != nil {
		return nil, err
	}

	targets := make(formula.Targets, len(req.Fractions))
	for sym, v := range req.Fractions {
		sym = strings.TrimSpace(sym)
		if err := formula.CheckFraction(sym, v); err != nil {
			return nil, err
		}
		if _, dup := targets[sym]; dup {
			return nil, errors.New(errors.ErrCodeFractionInvalid,
				fmt.Sprintf("mass fraction for %s given more than once", sym))
		}
		targets[sym] = v
	}

	hasUnknown := formula.HasPlaceholder(checked)
	switch mode {
	case ftypes.ModeAuto:
		mode = ftypes.ModeGeneral
		if hasUnknown {
			mode = ftypes.ModeUnknown
		}
	case ftypes.ModeGeneral:
		if hasUnknown {
			return nil, errors.New(errors.ErrCodeComponentInvalid,
				"the unknown placeholder \"?\" is only valid in unknown_element mode")
		}
	}

	p := &plan{Mode: mode, Components: checked, Targets: targets}

	p.MaxCount = req.MaxCount
	if p.MaxCount == 0 {
		p.MaxCount = s.cfg.DefaultMaxCount
	}
	if p.MaxCount < 1 || p.MaxCount > s.cfg.MaxCountLimit {
		return nil, errors.InputError(fmt.Sprintf("max_count must be within [1, %d], got %d",
			s.cfg.MaxCountLimit, p.MaxCount))
	}

	if mode == ftypes.ModeUnknown {
		if len(targets) == 0 {
			return nil, errors.InputError("at least one known mass fraction required")
		}
		p.Tolerance = req.MassTolerance
		if p.Tolerance == 0 {
			p.Tolerance = s.cfg.DefaultMassTolerance
		}
		filter, err := periodic.ParseFilter(req.Filter)
		if err != nil {
			return nil, errors.InputError(fmt.Sprintf("invalid filter %q: want metal, nonmetal or all", req.Filter))
		}
		p.Filter = filter
	} else {
		if len(targets) == 0 {
			return nil, errors.InputError("at least one mass fraction required in general mode")
		}
		p.Tolerance = req.FractionTolerance
		if p.Tolerance == 0 {
			p.Tolerance = s.cfg.DefaultFractionTolerance
		}
	}
	if !(p.Tolerance > 0) {
		return nil, errors.InputError(fmt.Sprintf("tolerance must be > 0, got %g", p.Tolerance))
	}
	if err := s.parser.CheckTargets(targets); err != nil {
		return nil, err
	}

	p.prepared, err = s.parser.Prepare(checked)
	if err != nil {
		return nil, err
	}

	if mode == ftypes.ModeUnknown {
		p.SearchSpace = solver.UnknownSearchSpace(len(p.prepared), p.MaxCount)
	} else {
		p.SearchSpace = solver.BruteForceSearchSpace(len(p.prepared), p.MaxCount)
	}
	if p.SearchSpace > s.cfg.MaxSearchSpace {
		s.metrics.SearchSpaceRejects.WithLabelValues(string(mode)).Inc()
		return nil, errors.New(errors.ErrCodeSearchSpaceExceeded,
			"search space exceeds configured limit; lower max_count or remove components").
			WithDetail(fmt.Sprintf("estimate=%.0f limit=%.0f", p.SearchSpace, s.cfg.MaxSearchSpace))
	}
	return p, nil
}

func (s *serviceImpl) Parse(_ context.Context, text string) (*ftypes.ParseResponse, error) {
	text = strings.TrimSpace(text)
	mass, comp, err := s.parser.Parse(text)
	if err != nil {
		return nil, err
	}
	return &ftypes.ParseResponse{Formula: text, Mass: mass, Composition: comp}, nil
}

func (s *serviceImpl) Elements(_ context.Context, category string) (*ftypes.ElementList, error) {
	filter, err := periodic.ParseFilter(category)
	if err != nil {
		return nil, errors.New(errors.ErrCodeBadRequest, err.Error())
	}
	elems := s.table.Elements(filter)
	out := &ftypes.ElementList{
		Category: string(filter),
		Count:    len(elems),
		Elements: make([]ftypes.Element, len(elems)),
	}
	for i, e := range elems {
		out.Elements[i] = toElement(e)
	}
	return out, nil
}

func (s *serviceImpl) Match(_ context.Context, mass, tolerance float64, category string) (*ftypes.MatchResponse, error) {
	if !(mass > 0) {
		return nil, errors.New(errors.ErrCodeBadRequest, fmt.Sprintf("mass must be > 0, got %g", mass))
	}
	if tolerance == 0 {
		tolerance = s.cfg.DefaultMassTolerance
	}
	if !(tolerance > 0) {
		return nil, errors.New(errors.ErrCodeBadRequest, fmt.Sprintf("tolerance must be > 0, got %g", tolerance))
	}
	filter, err := periodic.ParseFilter(category)
	if err != nil {
		return nil, errors.New(errors.ErrCodeBadRequest, err.Error())
	}

	resp := &ftypes.MatchResponse{Mass: mass, Tolerance: tolerance, Category: string(filter)}
	if e, ok := s.matcher.Find(mass, tolerance, filter); ok {
		el := toElement(e)
		resp.Found = true
		resp.Element = &el
		resp.Difference = mass - e.Mass
	}
	return resp, nil
}

func toElement(e periodic.Element) ftypes.Element {
	return ftypes.Element{
		Symbol:   e.Symbol,
		Number:   e.Number,
		Mass:     e.Mass,
		Category: string(e.Category),
	}
}
