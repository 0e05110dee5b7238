package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gex-engine/internal/analysis/bias"
	apperrors "gex-engine/internal/errors"
	"gex-engine/internal/models"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultEngineConfig(), zerolog.Nop())
	require.NoError(t, err)
	return e
}

func contract(t *testing.T, strike float64, typ models.OptionType, oi int64, iv float64) models.OptionContract {
	t.Helper()
	c, err := models.NewOptionContract(strike, typ, oi, iv, 100, 0)
	require.NoError(t, err)
	return c
}

func snapshot(t *testing.T, symbol string, spot float64, contracts ...models.OptionContract) *models.OptionChainSnapshot {
	t.Helper()
	snap, err := models.NewOptionChainSnapshot(models.SnapshotParams{
		Symbol:       symbol,
		Spot:         spot,
		RiskFreeRate: 0.07,
		TimeToExpiry: 7.0 / 365.0,
	}, contracts)
	require.NoError(t, err)
	return snap
}

func putHeavyChain(t *testing.T, symbol string, spot float64) *models.OptionChainSnapshot {
	t.Helper()
	var contracts []models.OptionContract
	for k := spot - 300; k <= spot+300; k += 100 {
		contracts = append(contracts,
			contract(t, k, models.OptionTypeCall, 500000, 0.14),
			contract(t, k, models.OptionTypePut, 4000000, 0.16),
		)
	}
	return snapshot(t, symbol, spot, contracts...)
}

func TestNewEngine_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Exposure.ContractMultiplier = 0
	_, err := NewEngine(cfg, zerolog.Nop())
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)

	cfg = DefaultEngineConfig()
	cfg.Thresholds.HighConfidence = 2
	_, err = NewEngine(cfg, zerolog.Nop())
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)

	cfg = DefaultEngineConfig()
	cfg.BatchLimit = -1
	_, err = NewEngine(cfg, zerolog.Nop())
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
}

func TestAnalyze_EmptyChain(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.Analyze(snapshot(t, "NIFTY", 24500))
	require.NoError(t, err)
	assert.True(t, res.Empty)
	assert.Equal(t, models.RuleEmptyChain, res.Signal.Rule)
	assert.Equal(t, models.BiasNeutral, res.Signal.Bias)
	assert.Zero(t, res.Profile.Totals.NetGEX)
	assert.Zero(t, res.Profile.Totals.NetDEX)
	assert.False(t, res.FlipZone.Found)

	out, err := json.Marshal(res.FlipZone)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"points":[]`)
	assert.NotContains(t, string(out), "null")
}

func TestAnalyze_ZeroOpenInterestIsEmpty(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.Analyze(snapshot(t, "NIFTY", 24500,
		contract(t, 24500, models.OptionTypeCall, 0, 0.15),
		contract(t, 24500, models.OptionTypePut, 0, 0.15),
	))
	require.NoError(t, err)
	assert.True(t, res.Empty)
	assert.Empty(t, res.Profile.Strikes)
}

func TestAnalyze_CountsDegenerateContracts(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.Analyze(snapshot(t, "NIFTY", 24500,
		contract(t, 24400, models.OptionTypeCall, 1000, 0.15),
		contract(t, 24500, models.OptionTypeCall, 1000, 0),
		contract(t, 24600, models.OptionTypePut, 1000, -0.2),
	))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Degenerate)
	assert.Equal(t, 3, res.Unpaired)
	assert.False(t, res.Empty)
	require.Len(t, res.Profile.Strikes, 3)
	assert.Zero(t, res.Profile.Strikes[1].CallGEX)
	assert.Zero(t, res.Profile.Strikes[2].PutDEX)
}

func TestAnalyze_CallsOnlyChainHasNoFlip(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.Analyze(snapshot(t, "NIFTY", 24500,
		contract(t, 24400, models.OptionTypeCall, 20000, 0.15),
		contract(t, 24500, models.OptionTypeCall, 30000, 0.15),
		contract(t, 24600, models.OptionTypeCall, 20000, 0.15),
	))
	require.NoError(t, err)

	assert.False(t, res.FlipZone.Found)
	assert.Greater(t, res.Profile.Totals.NetGEX, 0.0)
	assert.Greater(t, res.Profile.Totals.NetDEX, 0.0)
	assert.Contains(t, []models.Bias{models.BiasBullish, models.BiasNeutral}, res.Signal.Bias)
	assert.NotEqual(t, models.RuleFlipProximity, res.Signal.Rule)
}

func TestAnalyze_PutHeavyChain(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.Analyze(putHeavyChain(t, "NIFTY", 24500))
	require.NoError(t, err)

	assert.Less(t, res.Profile.Totals.NetGEX, 0.0)
	assert.Less(t, res.Profile.Totals.NetDEX, 0.0)
	assert.Equal(t, models.BiasBearish, res.Signal.Bias)
	assert.Equal(t, models.RuleShortGammaBearish, res.Signal.Rule)
	require.NotNil(t, res.Profile.ATM)
	assert.Equal(t, 24500.0, res.Profile.ATM.Strike)
	assert.Equal(t, 200.0, res.Profile.ATM.StraddlePremium)
	assert.Equal(t, 7, res.Flow.Strikes)
	assert.Zero(t, res.Unpaired)
}

func TestAnalyze_ThresholdsScaleWithMultiplier(t *testing.T) {
	var contracts []models.OptionContract
	for k := 24200.0; k <= 24800; k += 100 {
		contracts = append(contracts,
			contract(t, k, models.OptionTypeCall, 400000, 0.15),
			contract(t, k, models.OptionTypePut, 300000, 0.15),
		)
	}
	snap := snapshot(t, "NIFTY", 24500, contracts...)

	e := newTestEngine(t)
	res, err := e.Analyze(snap)
	require.NoError(t, err)

	// A few billion per unit multiplier sits well inside the 50B cut.
	assert.Greater(t, res.Profile.Totals.NetGEX, 50e9)
	assert.Less(t, res.Profile.Totals.NetGEX/100, 50e9)
	assert.Equal(t, models.RuleDeltaLean, res.Signal.Rule)
	assert.Equal(t, bias.FlowNeutral, res.Flow.GEXBias)
	assert.Equal(t, 50e9*100, e.Thresholds().StrongPositiveGEX)

	cfg := DefaultEngineConfig()
	cfg.Exposure.ContractMultiplier = 1
	unit, err := NewEngine(cfg, zerolog.Nop())
	require.NoError(t, err)
	resUnit, err := unit.Analyze(snap)
	require.NoError(t, err)
	assert.Equal(t, res.Signal.Rule, resUnit.Signal.Rule)
	assert.Equal(t, res.Flow.GEXBias, resUnit.Flow.GEXBias)
}

func TestAnalyze_ExpiredChainHasNoFlip(t *testing.T) {
	e := newTestEngine(t)

	snap, err := models.NewOptionChainSnapshot(models.SnapshotParams{
		Symbol:       "NIFTY",
		Spot:         24500,
		RiskFreeRate: 0.07,
		TimeToExpiry: -0.001,
	}, []models.OptionContract{
		contract(t, 24400, models.OptionTypeCall, 1000, 0.15),
		contract(t, 24500, models.OptionTypePut, 1000, 0.15),
		contract(t, 24600, models.OptionTypeCall, 1000, 0.15),
	})
	require.NoError(t, err)

	res, err := e.Analyze(snap)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Degenerate)
	assert.Zero(t, res.Profile.Totals.NetGEX)
	assert.False(t, res.FlipZone.Found)
	assert.Empty(t, res.FlipZone.Crossings)
	assert.NotEqual(t, models.RuleFlipProximity, res.Signal.Rule)
}

func TestAnalyzeBatch_PreservesOrder(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.BatchLimit = 2
	e, err := NewEngine(cfg, zerolog.Nop())
	require.NoError(t, err)

	var snaps []*models.OptionChainSnapshot
	for i := 0; i < 6; i++ {
		snaps = append(snaps, putHeavyChain(t, fmt.Sprintf("SYM%d", i), 20000+float64(i)*1000))
	}

	results, err := e.AnalyzeBatch(context.Background(), snaps)
	require.NoError(t, err)
	require.Len(t, results, len(snaps))

	for i, res := range results {
		assert.Equal(t, snaps[i].Symbol(), res.Symbol)
		assert.Equal(t, snaps[i].Spot(), res.Spot)
	}
}

func TestAnalyzeBatch_CancelledContext(t *testing.T) {
	e := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.AnalyzeBatch(ctx, []*models.OptionChainSnapshot{putHeavyChain(t, "NIFTY", 24500)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeBatch_Empty(t *testing.T) {
	e := newTestEngine(t)

	results, err := e.AnalyzeBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// Property: the batch path produces exactly what sequential analysis produces.
func TestProperty_BatchMatchesSequential(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())
	properties := gopter.NewProperties(parameters)

	e := newTestEngine(t)

	properties.Property("batch equals sequential", prop.ForAll(
		func(callOI, putOI []int64, spot float64) bool {
			var snaps []*models.OptionChainSnapshot
			for i := range callOI {
				var contracts []models.OptionContract
				for j := 0; j <= i; j++ {
					k := 20000 + float64(j)*100
					c, _ := models.NewOptionContract(k, models.OptionTypeCall, callOI[j], 0.15, 10, 0)
					p, _ := models.NewOptionContract(k, models.OptionTypePut, putOI[j], 0.18, 10, 0)
					contracts = append(contracts, c, p)
				}
				snap, err := models.NewOptionChainSnapshot(models.SnapshotParams{
					Symbol:       fmt.Sprintf("S%d", i),
					Spot:         spot,
					RiskFreeRate: 0.07,
					TimeToExpiry: 0.05,
				}, contracts)
				if err != nil {
					return false
				}
				snaps = append(snaps, snap)
			}

			batch, err := e.AnalyzeBatch(context.Background(), snaps)
			if err != nil || len(batch) != len(snaps) {
				return false
			}
			for i, snap := range snaps {
				seq, err := e.Analyze(snap)
				if err != nil {
					return false
				}
				if seq.Signal != batch[i].Signal || seq.Profile.Totals != batch[i].Profile.Totals {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(5, gen.Int64Range(0, 100000)),
		gen.SliceOfN(5, gen.Int64Range(0, 100000)),
		gen.Float64Range(20000, 20400),
	))

	properties.TestingRun(t)
}
