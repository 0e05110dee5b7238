package bias

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gex-engine/internal/errors"
	"gex-engine/internal/models"
)

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(DefaultThresholds())
	require.NoError(t, err)
	return a
}

func flipAt(level float64) models.FlipZone {
	return models.FlipZone{Found: true, ZeroGamma: level, Crossings: []float64{level}}
}

func TestAnalyze_Rules(t *testing.T) {
	a := newAnalyzer(t)
	th := a.Thresholds()

	tests := []struct {
		name     string
		netGEX   float64
		netDEX   float64
		flip     models.FlipZone
		spot     float64
		wantBias models.Bias
		wantRule models.SignalRule
		wantConf float64
		wantLean models.Bias
	}{
		{"short gamma bearish", -2 * th.StrongNegativeGEX, -1e9, models.FlipZone{}, 24500, models.BiasBearish, models.RuleShortGammaBearish, th.HighConfidence, models.BiasBearish},
		{"long gamma bullish", 2 * th.StrongPositiveGEX, 1e9, models.FlipZone{}, 24500, models.BiasBullish, models.RuleLongGammaBullish, th.HighConfidence, models.BiasBullish},
		{"threshold is inclusive", th.StrongPositiveGEX, 1, models.FlipZone{}, 24500, models.BiasBullish, models.RuleLongGammaBullish, th.HighConfidence, models.BiasBullish},
		{"short gamma with positive dex falls through", -2 * th.StrongNegativeGEX, 1e9, models.FlipZone{}, 24500, models.BiasNeutral, models.RuleDeltaLean, th.ModerateConfidence, models.BiasBullish},
		{"near flip", 1e9, 1e9, flipAt(24550), 24500, models.BiasNeutral, models.RuleFlipProximity, th.LowConfidence, models.BiasBullish},
		{"far from flip", 1e9, -1e9, flipAt(25500), 24500, models.BiasNeutral, models.RuleDeltaLean, th.ModerateConfidence, models.BiasBearish},
		{"no flip, flat dex", 0, 0, models.FlipZone{}, 24500, models.BiasNeutral, models.RuleDeltaLean, th.ModerateConfidence, models.BiasNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := a.Analyze(tt.netGEX, tt.netDEX, tt.flip, tt.spot)
			assert.Equal(t, tt.wantBias, sig.Bias)
			assert.Equal(t, tt.wantRule, sig.Rule)
			assert.Equal(t, tt.wantConf, sig.Confidence)
			assert.Equal(t, tt.wantLean, sig.Lean)
			assert.NotEmpty(t, sig.Recommendation)
		})
	}
}

func TestAnalyze_RecommendationIsDeterministic(t *testing.T) {
	a := newAnalyzer(t)
	flip := flipAt(24520)

	first := a.Analyze(1e9, 1e9, flip, 24500)
	second := a.Analyze(1e9, 1e9, flip, 24500)
	assert.Equal(t, first, second)
	assert.Contains(t, first.Recommendation, "24520.00")
	assert.Contains(t, first.Recommendation, "volatility")
}

func TestEmptySignal(t *testing.T) {
	sig := EmptySignal()
	assert.Equal(t, models.BiasNeutral, sig.Bias)
	assert.Equal(t, models.RuleEmptyChain, sig.Rule)
	assert.Zero(t, sig.Confidence)
}

func TestNewAnalyzer_RejectsInvalidThresholds(t *testing.T) {
	mutations := map[string]func(*Thresholds){
		"negative strong gex": func(th *Thresholds) { th.StrongPositiveGEX = -1 },
		"nan band":            func(th *Thresholds) { th.FlipBandPercent = math.NaN() },
		"confidence above 1":  func(th *Thresholds) { th.HighConfidence = 1.5 },
		"negative confidence": func(th *Thresholds) { th.LowConfidence = -0.1 },
		"negative window":     func(th *Thresholds) { th.FlowWindow = -1 },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			th := DefaultThresholds()
			mutate(&th)
			_, err := NewAnalyzer(th)
			assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
		})
	}
}

// Property: inputs matching rule 1 always produce the rule 1 signal, whatever
// the flip zone says.
func TestProperty_RulePrecedence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())
	properties := gopter.NewProperties(parameters)

	a := newAnalyzer(t)
	th := a.Thresholds()

	properties.Property("rule 1 never falls through to rule 3 or 4", prop.ForAll(
		func(gexExcess, dex, spot, flipOffset float64, hasFlip bool) bool {
			flip := models.FlipZone{}
			if hasFlip {
				flip = flipAt(spot * (1 + flipOffset/100))
			}
			sig := a.Analyze(-th.StrongNegativeGEX-gexExcess, -dex, flip, spot)
			return sig.Bias == models.BiasBearish && sig.Rule == models.RuleShortGammaBearish
		},
		gen.Float64Range(0, 1e12),
		gen.Float64Range(1e-6, 1e12),
		gen.Float64Range(1000, 60000),
		gen.Float64Range(-1, 1),
		gen.Bool(),
	))

	properties.Property("rule 2 never falls through to rule 3 or 4", prop.ForAll(
		func(gexExcess, dex, spot, flipOffset float64) bool {
			sig := a.Analyze(th.StrongPositiveGEX+gexExcess, dex, flipAt(spot*(1+flipOffset/100)), spot)
			return sig.Bias == models.BiasBullish && sig.Rule == models.RuleLongGammaBullish
		},
		gen.Float64Range(0, 1e12),
		gen.Float64Range(1e-6, 1e12),
		gen.Float64Range(1000, 60000),
		gen.Float64Range(-1, 1),
	))

	properties.TestingRun(t)
}

func strike(k, netGEX, netDEX float64) models.StrikeExposure {
	e := models.StrikeExposure{Strike: k, CallDEX: netDEX}
	if netGEX >= 0 {
		e.CallGEX = netGEX
	} else {
		e.PutGEX = -netGEX
	}
	return e
}

func TestFlow(t *testing.T) {
	th := DefaultThresholds()
	th.FlowWindow = 1
	th.FlowGEXThreshold = 100
	a, err := NewAnalyzer(th)
	require.NoError(t, err)

	strikes := []models.StrikeExposure{
		strike(24300, 1000, 50),
		strike(24400, 80, 10),
		strike(24500, 60, -30),
		strike(24600, -20, -5),
		strike(24700, -5000, -90),
	}

	flow := a.Flow(strikes, 24480)
	assert.Equal(t, 3, flow.Strikes)
	assert.Equal(t, 120.0, flow.GEXNearTotal)
	assert.Equal(t, -25.0, flow.DEXNearTotal)
	assert.Equal(t, FlowStrongBullish, flow.GEXBias)
	assert.Equal(t, models.BiasBearish, flow.DEXBias)
	assert.Equal(t, "STRONG_BULLISH + BEARISH", flow.Combined)

	edge := a.Flow(strikes, 24700)
	assert.Equal(t, 2, edge.Strikes)
	assert.Equal(t, FlowVolatile, edge.GEXBias)

	empty := a.Flow(nil, 24500)
	assert.Equal(t, 0, empty.Strikes)
	assert.Equal(t, FlowNeutral, empty.GEXBias)
}

func TestThresholds_Scaled(t *testing.T) {
	th := DefaultThresholds().Scaled(100)

	assert.Equal(t, 5e12, th.StrongPositiveGEX)
	assert.Equal(t, 5e12, th.StrongNegativeGEX)
	assert.Equal(t, 5e12, th.FlowGEXThreshold)
	assert.Equal(t, DefaultThresholds().FlipBandPercent, th.FlipBandPercent)
	assert.Equal(t, DefaultThresholds().HighConfidence, th.HighConfidence)
	assert.Equal(t, DefaultThresholds().FlowWindow, th.FlowWindow)
}
