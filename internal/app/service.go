// Package service runs the prediction pipeline: stats aggregation, feature
// building, normalization, the train/test split, and the classifier.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/crystalball/internal/adapters/repository"
	"github.com/okian/crystalball/internal/domain/classifier"
	"github.com/okian/crystalball/internal/domain/features"
	"github.com/okian/crystalball/internal/domain/match"
	"github.com/okian/crystalball/internal/domain/sampling"
	"github.com/okian/crystalball/internal/domain/stats"
	"github.com/okian/crystalball/internal/domain/teamkey"
	"github.com/okian/crystalball/pkg/logger"
	"github.com/okian/crystalball/pkg/metrics"
)

// Report is the outcome of one training pass.
type Report struct {
	RunID         string    `json:"run_id"`
	Pass          int       `json:"pass"`
	TrainError    float64   `json:"train_error"`
	TrainAccuracy float64   `json:"train_accuracy"`
	TestAccuracy  float64   `json:"test_accuracy"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Prediction is the answer to an ad-hoc query.
type Prediction struct {
	Year   int     `json:"year"`
	Team1  string  `json:"team1"`
	Team2  string  `json:"team2"`
	Winner string  `json:"winner"`
	Label  int     `json:"label"`
	Output float64 `json:"output"`
}

// Status summarizes pipeline progress.
type Status struct {
	RunID         string   `json:"run_id"`
	Matches       int      `json:"matches"`
	StatsRows     int      `json:"stats_rows"`
	EnrichedRows  int      `json:"enriched_rows"`
	TrainSamples  int      `json:"train_samples"`
	TestSamples   int      `json:"test_samples"`
	Passes        int      `json:"passes"`
	InputFeatures []string `json:"input_features"`
	Last          *Report  `json:"last_report,omitempty"`
}

// Predictor owns every pipeline stage. Stages run in order: ReadData,
// ProcessData, then any number of Train calls; Predict needs ProcessData.
type Predictor struct {
	mu sync.RWMutex

	// Configuration
	inputNames    []string
	outputName    string
	recentYears   int
	trainFraction float64
	excludeTies   bool
	duplicate     bool
	hiddenFactor  int
	learningRate  float64
	momentum      float64
	weightDecay   float64
	seed          int64

	inputs []features.Feature
	label  features.Feature
	rng    *rand.Rand
	runID  string
	sink   repository.ReportSink

	// Stage outputs
	table      *match.Table
	snapshot   *stats.Snapshot
	enriched   *features.Table
	normalizer *sampling.Normalizer
	train      []sampling.Sample
	test       []sampling.Sample
	network    *classifier.Network
	trainer    *classifier.Trainer
	reports    []Report

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Predictor.
type Option func(*Predictor)

// WithInputFeatures sets the classifier inputs, in order.
func WithInputFeatures(names []string) Option {
	return func(p *Predictor) {
		if len(names) > 0 {
			p.inputNames = append([]string(nil), names...)
		}
	}
}

// WithOutputFeature sets the label column.
func WithOutputFeature(name string) Option {
	return func(p *Predictor) {
		if name != "" {
			p.outputName = name
		}
	}
}

// WithRecentYears sets the trailing stats window. Values below one are
// rejected by New.
func WithRecentYears(years int) Option {
	return func(p *Predictor) { p.recentYears = years }
}

// WithTrainFraction sets the probability that a sample lands in the train set.
func WithTrainFraction(fraction float64) Option {
	return func(p *Predictor) { p.trainFraction = fraction }
}

// WithExcludeTies toggles dropping tied matches.
func WithExcludeTies(exclude bool) Option {
	return func(p *Predictor) { p.excludeTies = exclude }
}

// WithDuplicateWithReversed toggles mirroring every match.
func WithDuplicateWithReversed(duplicate bool) Option {
	return func(p *Predictor) { p.duplicate = duplicate }
}

// WithHiddenFactor sets the hidden layer multiplier.
func WithHiddenFactor(factor int) Option {
	return func(p *Predictor) { p.hiddenFactor = factor }
}

// WithLearningRate sets the backpropagation step size.
func WithLearningRate(rate float64) Option {
	return func(p *Predictor) { p.learningRate = rate }
}

// WithMomentum sets the backpropagation momentum.
func WithMomentum(momentum float64) Option {
	return func(p *Predictor) { p.momentum = momentum }
}

// WithWeightDecay sets the backpropagation weight decay.
func WithWeightDecay(decay float64) Option {
	return func(p *Predictor) { p.weightDecay = decay }
}

// WithSeed fixes the random source. Zero keeps the time-based default.
func WithSeed(seed int64) Option {
	return func(p *Predictor) {
		if seed != 0 {
			p.seed = seed
		}
	}
}

// WithReportSink exports the stats and enriched tables after ReadData.
func WithReportSink(sink repository.ReportSink) Option {
	return func(p *Predictor) { p.sink = sink }
}

// WithLogger sets a custom logger for the predictor.
func WithLogger(l logger.Logger) Option {
	return func(p *Predictor) {
		if l != nil {
			p.logger = l
		}
	}
}

// New constructs a Predictor and resolves its feature list.
func New(opts ...Option) (*Predictor, error) {
	p := &Predictor{
		inputNames:    append([]string(nil), features.DefaultInputs...),
		outputName:    features.ColumnWinner,
		recentYears:   2,
		trainFraction: sampling.DefaultTrainFraction,
		excludeTies:   true,
		duplicate:     true,
		hiddenFactor:  classifier.DefaultHiddenFactor,
		learningRate:  classifier.DefaultLearningRate,
		momentum:      classifier.DefaultMomentum,
		weightDecay:   classifier.DefaultWeightDecay,
		seed:          time.Now().UnixNano(),
		runID:         uuid.NewString(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.recentYears < 1 {
		return nil, &stats.ConfigError{RecentYears: p.recentYears}
	}
	inputs, err := features.ParseAll(p.inputNames)
	if err != nil {
		return nil, err
	}
	label, err := features.Parse(p.outputName)
	if err != nil {
		return nil, err
	}
	p.inputs, p.label = inputs, label
	p.rng = rand.New(rand.NewSource(p.seed))

	if p.logger == nil {
		p.logger = logger.Named("predictor")
	}
	p.logger = p.logger.With(logger.String("run_id", p.runID))
	return p, nil
}

// RunID identifies this predictor's training run.
func (p *Predictor) RunID() string { return p.runID }

// Seed returns the seed of the random source.
func (p *Predictor) Seed() int64 { return p.seed }

// ReadData aggregates team stats over table and builds the enriched match table.
// It cannot run after ProcessData: the fitted network depends on these stats.
func (p *Predictor) ReadData(ctx context.Context, table *match.Table) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.normalizer != nil {
		return fmt.Errorf("%w: ReadData after ProcessData", ErrAlreadyProcessed)
	}

	p.logger.Info(ctx, "getting team stats", logger.Int("matches", table.Len()), logger.Int("recent_years", p.recentYears))
	agg, err := stats.NewAggregator(p.recentYears)
	if err != nil {
		return err
	}
	start := time.Now()
	snap := agg.Aggregate(table)
	elapsed := time.Since(start)
	metrics.RecordAggregation(float64(elapsed.Microseconds())/1000, snap.Len())

	p.logger.Info(ctx, "getting matches",
		logger.Bool("duplicate_with_reversed", p.duplicate),
		logger.Bool("exclude_ties", p.excludeTies),
	)
	builder, err := features.NewBuilder(features.Options{
		DuplicateWithReversed: p.duplicate,
		ExcludeTies:           p.excludeTies,
		RecentYears:           p.recentYears,
	})
	if err != nil {
		return err
	}
	enriched := builder.Build(table, snap)
	metrics.UpdateEnrichedRows(enriched.Len())

	if p.sink != nil {
		if err := p.sink.SaveStats(ctx, snap); err != nil {
			return fmt.Errorf("export stats: %w", err)
		}
		if err := p.sink.SaveEnriched(ctx, enriched); err != nil {
			return fmt.Errorf("export enriched matches: %w", err)
		}
	}

	p.table, p.snapshot, p.enriched = table, snap, enriched
	p.logger.Info(ctx, "data read",
		logger.Int("stats_rows", snap.Len()),
		logger.Int("enriched_rows", enriched.Len()),
		logger.Duration("aggregation", elapsed),
	)
	return nil
}

// ProcessData extracts samples, fits the normalizer on all of them, splits
// train and test sets, and builds the network and its trainer. It runs once.
func (p *Predictor) ProcessData(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.enriched == nil {
		return fmt.Errorf("%w: ReadData has not run", ErrNotReady)
	}
	if p.normalizer != nil {
		return ErrAlreadyProcessed
	}

	p.logger.Info(ctx, "separating inputs and outputs", logger.Any("inputs", features.Names(p.inputs)), logger.String("output", p.label.Name))
	samples, err := features.ExtractSamples(p.enriched, p.inputs, p.label)
	if err != nil {
		return err
	}

	p.logger.Info(ctx, "normalizing data", logger.Int("samples", len(samples)))
	normalizer := sampling.NewNormalizer()
	normalized, err := normalizer.FitTransform(sampling.Inputs(samples))
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	for i := range samples {
		samples[i].Inputs = normalized[i]
	}

	p.logger.Info(ctx, "separating train and test sets", logger.Float64("train_fraction", p.trainFraction))
	train, test, err := sampling.Split(samples, p.trainFraction, p.rng)
	if err != nil {
		return err
	}
	metrics.UpdateSamples(metrics.SetTrain, len(train))
	metrics.UpdateSamples(metrics.SetTest, len(test))

	p.logger.Info(ctx, "building neural network", logger.Int("inputs", len(p.inputs)), logger.Int("hidden_factor", p.hiddenFactor))
	network, err := classifier.New(len(p.inputs), p.rng, classifier.WithHiddenFactor(p.hiddenFactor))
	if err != nil {
		return err
	}
	trainer, err := classifier.NewTrainer(network, train, p.rng,
		classifier.WithLearningRate(p.learningRate),
		classifier.WithMomentum(p.momentum),
		classifier.WithWeightDecay(p.weightDecay),
	)
	if err != nil {
		return err
	}

	p.normalizer, p.train, p.test = normalizer, train, test
	p.network, p.trainer = network, trainer
	p.logger.Info(ctx, "data processed",
		logger.Int("train_samples", len(train)),
		logger.Int("test_samples", len(test)),
		logger.Any("shape", network.Shape()),
	)
	return nil
}

// Train runs iterations passes and reports accuracies after each. Calling it
// again continues from the current weights. A cancelled ctx stops between passes.
func (p *Predictor) Train(ctx context.Context, iterations int) ([]Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.trainer == nil {
		return nil, fmt.Errorf("%w: ProcessData has not run", ErrNotReady)
	}
	out := make([]Report, 0, iterations)
	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		meanErr := p.trainer.Train()
		trainAcc, testAcc, err := p.accuracies()
		if err != nil {
			return out, err
		}
		r := Report{
			RunID:         p.runID,
			Pass:          p.trainer.Passes(),
			TrainError:    meanErr,
			TrainAccuracy: trainAcc,
			TestAccuracy:  testAcc,
			FinishedAt:    time.Now().UTC(),
		}
		metrics.RecordTrainingPass(meanErr)
		metrics.UpdateAccuracy(metrics.SetTrain, trainAcc)
		metrics.UpdateAccuracy(metrics.SetTest, testAcc)
		p.logger.Info(ctx, "training pass finished",
			logger.Int("pass", r.Pass),
			logger.Float64("train_error", meanErr),
			logger.Float64("train_accuracy", trainAcc),
			logger.Float64("test_accuracy", testAcc),
		)
		p.reports = append(p.reports, r)
		out = append(out, r)
	}
	return out, nil
}

// TestNetwork returns the current train and test accuracy percentages.
func (p *Predictor) TestNetwork(ctx context.Context) (trainAcc, testAcc float64, err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.network == nil {
		return 0, 0, fmt.Errorf("%w: ProcessData has not run", ErrNotReady)
	}
	trainAcc, testAcc, err = p.accuracies()
	if err != nil {
		return 0, 0, err
	}
	p.logger.Debug(ctx, "network tested", logger.Float64("train_accuracy", trainAcc), logger.Float64("test_accuracy", testAcc))
	return trainAcc, testAcc, nil
}

func (p *Predictor) accuracies() (float64, float64, error) {
	trainAcc, err := p.network.Accuracy(p.train)
	if err != nil {
		return 0, 0, err
	}
	testAcc, err := p.network.Accuracy(p.test)
	if err != nil {
		return 0, 0, err
	}
	return trainAcc, testAcc, nil
}

// Predict returns the predicted winner of team1 against team2 in year:
// a team name, "tie", or an unknown-result marker.
func (p *Predictor) Predict(ctx context.Context, year int, team1, team2 string) (string, error) {
	res, err := p.Forecast(ctx, features.Query{Year: year, Team1: team1, Team2: team2})
	if err != nil {
		return "", err
	}
	return res.Winner, nil
}

// Forecast answers q with the network output and decision.
func (p *Predictor) Forecast(ctx context.Context, q features.Query) (Prediction, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	res, err := p.forecast(q)
	if err != nil {
		kind := errorKind(err)
		metrics.RecordPredictionError(kind)
		p.logger.Warn(ctx, "prediction failed", logger.String("kind", kind), logger.Error(err))
		return Prediction{}, err
	}
	metrics.RecordPrediction(outcomeSide(res.Label))
	p.logger.Debug(ctx, "prediction",
		logger.Int("year", q.Year),
		logger.String("team1", q.Team1),
		logger.String("team2", q.Team2),
		logger.String("winner", res.Winner),
		logger.Float64("output", res.Output),
	)
	return res, nil
}

func (p *Predictor) forecast(q features.Query) (Prediction, error) {
	if p.network == nil {
		return Prediction{}, fmt.Errorf("%w: ProcessData has not run", ErrNotReady)
	}
	for _, team := range []string{q.Team1, q.Team2} {
		if strings.TrimSpace(team) == "" || !teamkey.ValidTeam(team) {
			return Prediction{}, fmt.Errorf("%w: team %q", ErrInvalidQuery, team)
		}
		if !p.knownTeam(team) {
			return Prediction{}, fmt.Errorf("%w: %q", ErrUnknownTeam, team)
		}
	}

	x, err := features.QueryVector(p.inputs, p.snapshot, q)
	if err != nil {
		return Prediction{}, err
	}
	x, err = p.normalizer.Transform(x)
	if err != nil {
		return Prediction{}, err
	}
	out, err := p.network.Activate(x)
	if err != nil {
		return Prediction{}, err
	}
	label, err := p.network.Result(x)
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{
		Year:   q.Year,
		Team1:  q.Team1,
		Team2:  q.Team2,
		Winner: classifier.Outcome(label, q.Team1, q.Team2),
		Label:  label,
		Output: out,
	}, nil
}

func (p *Predictor) knownTeam(team string) bool {
	_, ok := p.snapshot.Lookup(team, teamkey.AllTime)
	return ok
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, features.ErrFeatureNotFound):
		return "feature_not_found"
	case errors.Is(err, ErrUnknownTeam):
		return "unknown_team"
	case errors.Is(err, ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	default:
		return "internal"
	}
}

func outcomeSide(label int) string {
	switch label {
	case classifier.Label1:
		return "team1"
	case classifier.Label2:
		return "team2"
	case classifier.LabelTie:
		return "tie"
	default:
		return "unknown"
	}
}

// Run executes ReadData, ProcessData and iterations training passes.
func (p *Predictor) Run(ctx context.Context, table *match.Table, iterations int) ([]Report, error) {
	if err := p.ReadData(ctx, table); err != nil {
		return nil, err
	}
	if err := p.ProcessData(ctx); err != nil {
		return nil, err
	}
	return p.Train(ctx, iterations)
}

// Snapshot returns the stats snapshot, or nil before ReadData.
func (p *Predictor) Snapshot() *stats.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Enriched returns the enriched match table, or nil before ReadData.
func (p *Predictor) Enriched() *features.Table {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enriched
}

// Reports returns every training report so far, oldest first.
func (p *Predictor) Reports() []Report {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Report(nil), p.reports...)
}

// Ready reports whether predictions can be served.
func (p *Predictor) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.network != nil
}

// Status summarizes the pipeline state.
func (p *Predictor) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := Status{
		RunID:         p.runID,
		TrainSamples:  len(p.train),
		TestSamples:   len(p.test),
		InputFeatures: features.Names(p.inputs),
	}
	if p.table != nil {
		s.Matches = p.table.Len()
	}
	if p.snapshot != nil {
		s.StatsRows = p.snapshot.Len()
	}
	if p.enriched != nil {
		s.EnrichedRows = p.enriched.Len()
	}
	if p.trainer != nil {
		s.Passes = p.trainer.Passes()
	}
	if n := len(p.reports); n > 0 {
		last := p.reports[n-1]
		s.Last = &last
	}
	return s
}
