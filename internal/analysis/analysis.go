// Package analysis wires the greeks, exposure, flip zone and bias stages into
// a single engine that turns an option chain snapshot into a positioning signal.
package analysis

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"gex-engine/internal/analysis/bias"
	"gex-engine/internal/analysis/exposure"
	"gex-engine/internal/analysis/flipzone"
	"gex-engine/internal/analysis/greeks"
	apperrors "gex-engine/internal/errors"
	"gex-engine/internal/models"
)

// DefaultBatchLimit bounds concurrent snapshots in AnalyzeBatch.
const DefaultBatchLimit = 4

// EngineConfig holds the engine configuration. GEX thresholds are per unit
// contract multiplier; the engine scales them by Exposure.ContractMultiplier.
type EngineConfig struct {
	Exposure   exposure.Config
	Thresholds bias.Thresholds
	BatchLimit int
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Exposure:   exposure.DefaultConfig(),
		Thresholds: bias.DefaultThresholds(),
		BatchLimit: DefaultBatchLimit,
	}
}

// Result is the full analysis of one snapshot.
type Result struct {
	Symbol     string                 `json:"symbol"`
	Spot       float64                `json:"spot"`
	Profile    models.ExposureProfile `json:"profile"`
	FlipZone   models.FlipZone        `json:"flip_zone"`
	Signal     models.Signal          `json:"signal"`
	Flow       models.FlowMetrics     `json:"flow"`
	Degenerate int                    `json:"degenerate_contracts"`
	Unpaired   int                    `json:"unpaired_strikes"` // strikes quoted on one side only
	Empty      bool                   `json:"empty"`
}

// Engine runs the analysis pipeline. It holds no per-snapshot state and is
// safe for concurrent use.
type Engine struct {
	aggregator *exposure.Aggregator
	analyzer   *bias.Analyzer
	batchLimit int
	logger     zerolog.Logger
}

// NewEngine creates a new Engine.
func NewEngine(cfg EngineConfig, logger zerolog.Logger) (*Engine, error) {
	agg, err := exposure.NewAggregator(cfg.Exposure)
	if err != nil {
		return nil, err
	}
	an, err := bias.NewAnalyzer(cfg.Thresholds.Scaled(cfg.Exposure.ContractMultiplier))
	if err != nil {
		return nil, err
	}
	if cfg.BatchLimit < 0 {
		return nil, apperrors.NewConfigError("batch_limit", cfg.BatchLimit, "must be non-negative")
	}
	limit := cfg.BatchLimit
	if limit == 0 {
		limit = DefaultBatchLimit
	}

	return &Engine{
		aggregator: agg,
		analyzer:   an,
		batchLimit: limit,
		logger:     logger.With().Str("component", "engine").Logger(),
	}, nil
}

// Analyze runs the pipeline over one snapshot. Degenerate contracts are logged
// and counted but never fail the analysis.
func (e *Engine) Analyze(snap *models.OptionChainSnapshot) (Result, error) {
	log := e.logger.With().Str("symbol", snap.Symbol()).Logger()

	res := Result{Symbol: snap.Symbol(), Spot: snap.Spot()}
	for _, k := range snap.Strikes() {
		if !snap.IsPaired(k) {
			res.Unpaired++
		}
	}

	chain := greeks.CalculateChain(snap)
	res.Degenerate = len(chain.Degenerate)
	for _, err := range chain.Degenerate {
		log.Debug().Err(err).Msg("degenerate contract")
	}

	profile, err := e.aggregator.Aggregate(snap, chain.Greeks)
	if err != nil {
		return Result{}, apperrors.Wrap(err, "aggregate exposure")
	}
	res.Profile = profile

	if profile.IsEmpty() {
		res.Empty = true
		res.FlipZone = models.FlipZone{Points: []models.CumulativePoint{}}
		res.Signal = bias.EmptySignal()
		res.Flow = e.analyzer.Flow(nil, snap.Spot())
		log.Warn().Int("contracts", snap.Len()).Msg("no strikes with open interest")
		return res, nil
	}

	res.FlipZone = flipzone.Detect(profile.Strikes)
	res.Signal = e.analyzer.Analyze(profile.Totals.NetGEX, profile.Totals.NetDEX, res.FlipZone, snap.Spot())
	res.Flow = e.analyzer.Flow(profile.Strikes, snap.Spot())

	log.Debug().
		Int("strikes", len(profile.Strikes)).
		Int("degenerate", res.Degenerate).
		Int("unpaired", res.Unpaired).
		Float64("net_gex", profile.Totals.NetGEX).
		Float64("net_dex", profile.Totals.NetDEX).
		Str("bias", string(res.Signal.Bias)).
		Msg("snapshot analyzed")

	return res, nil
}

// AnalyzeBatch analyzes snapshots concurrently. Results are returned in input
// order. The first error cancels the remaining work.
func (e *Engine) AnalyzeBatch(ctx context.Context, snaps []*models.OptionChainSnapshot) ([]Result, error) {
	results := make([]Result, len(snaps))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.batchLimit)

	for i, snap := range snaps {
		i, snap := i, snap
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := e.Analyze(snap)
			if err != nil {
				return apperrors.Wrapf(err, "snapshot %d (%s)", i, snap.Symbol())
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Thresholds returns the bias calibration in use, scaled to profile units.
func (e *Engine) Thresholds() bias.Thresholds {
	return e.analyzer.Thresholds()
}

// ExposureConfig returns the exposure convention in use.
func (e *Engine) ExposureConfig() exposure.Config {
	return e.aggregator.Config()
}
