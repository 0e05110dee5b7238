package models

// Bias represents the directional label of a signal.
type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
	BiasNeutral Bias = "NEUTRAL"
)

// SignalRule identifies which decision rule produced a signal.
type SignalRule string

const (
	RuleShortGammaBearish SignalRule = "SHORT_GAMMA_BEARISH"
	RuleLongGammaBullish  SignalRule = "LONG_GAMMA_BULLISH"
	RuleFlipProximity     SignalRule = "FLIP_PROXIMITY"
	RuleDeltaLean         SignalRule = "DELTA_LEAN"
	RuleEmptyChain        SignalRule = "EMPTY_CHAIN"
)

// Signal is the final output of an analysis run.
type Signal struct {
	Bias           Bias       `json:"bias"`
	Confidence     float64    `json:"confidence"` // 0-1
	Rule           SignalRule `json:"rule"`
	Lean           Bias       `json:"lean"` // sign of net DEX
	Recommendation string     `json:"recommendation"`
}

// FlowMetrics summarises GEX/DEX over the strikes nearest to spot.
type FlowMetrics struct {
	Strikes      int     `json:"strikes"`
	GEXNearTotal float64 `json:"gex_near_total"`
	DEXNearTotal float64 `json:"dex_near_total"`
	GEXBias      string  `json:"gex_bias"` // STRONG_BULLISH, VOLATILE, NEUTRAL
	DEXBias      Bias    `json:"dex_bias"`
	Combined     string  `json:"combined"`
}
