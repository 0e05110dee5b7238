package models

import (
	"math"
	"sort"
	"strings"
	"time"

	apperrors "gex-engine/internal/errors"
)

// OptionType represents the option right.
type OptionType string

const (
	OptionTypeCall OptionType = "CALL"
	OptionTypePut  OptionType = "PUT"
)

// ParseOptionType parses NSE and generic spellings (CE/PE, C/P, CALL/PUT).
func ParseOptionType(s string) (OptionType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CALL", "CE", "C":
		return OptionTypeCall, true
	case "PUT", "PE", "P":
		return OptionTypePut, true
	default:
		return "", false
	}
}

// IsCall returns true for call options.
func (t OptionType) IsCall() bool {
	return t == OptionTypeCall
}

// OptionContract is a single row of an option chain snapshot.
type OptionContract struct {
	Strike       float64
	Type         OptionType
	OpenInterest int64
	IV           float64 // annualized, decimal (0.15 = 15%)
	LTP          float64
	Volume       int64
}

// NewOptionContract validates and builds an OptionContract.
// A non-positive IV is accepted: it is a degenerate quote, not a structural error.
func NewOptionContract(strike float64, optType OptionType, oi int64, iv, ltp float64, volume int64) (OptionContract, error) {
	if !isFinite(strike) || strike <= 0 {
		return OptionContract{}, apperrors.NewValidationError("strike", strike, "must be a positive finite number")
	}
	if optType != OptionTypeCall && optType != OptionTypePut {
		return OptionContract{}, apperrors.NewValidationError("option_type", optType, "must be CALL or PUT")
	}
	if oi < 0 {
		return OptionContract{}, apperrors.NewValidationError("open_interest", oi, "must be non-negative")
	}
	if !isFinite(iv) {
		return OptionContract{}, apperrors.NewValidationError("iv", iv, "must be finite")
	}
	if !isFinite(ltp) || ltp < 0 {
		return OptionContract{}, apperrors.NewValidationError("ltp", ltp, "must be a non-negative finite number")
	}
	if volume < 0 {
		return OptionContract{}, apperrors.NewValidationError("volume", volume, "must be non-negative")
	}

	return OptionContract{
		Strike:       strike,
		Type:         optType,
		OpenInterest: oi,
		IV:           iv,
		LTP:          ltp,
		Volume:       volume,
	}, nil
}

// ContractKey identifies a contract within a snapshot.
type ContractKey struct {
	Strike float64
	Type   OptionType
}

// Key returns the (strike, type) key of the contract.
func (c OptionContract) Key() ContractKey {
	return ContractKey{Strike: c.Strike, Type: c.Type}
}

// OptionChainSnapshot is the normalized input of one analysis run.
type OptionChainSnapshot struct {
	symbol       string
	spot         float64
	riskFreeRate float64
	timeToExpiry float64
	timestamp    time.Time
	expiry       time.Time
	contracts    []OptionContract
}

// SnapshotParams holds the scalar fields of a snapshot.
type SnapshotParams struct {
	Symbol       string
	Spot         float64
	RiskFreeRate float64
	TimeToExpiry float64 // years
	Timestamp    time.Time
	Expiry       time.Time
}

// NewOptionChainSnapshot validates the snapshot fields and copies the contracts.
// Strikes must be unique per option type. A non-positive time to expiry is kept
// as-is and handled downstream as a degenerate input.
func NewOptionChainSnapshot(p SnapshotParams, contracts []OptionContract) (*OptionChainSnapshot, error) {
	if !isFinite(p.Spot) || p.Spot <= 0 {
		return nil, apperrors.NewValidationError("spot", p.Spot, "must be a positive finite number")
	}
	if !isFinite(p.RiskFreeRate) {
		return nil, apperrors.NewValidationError("risk_free_rate", p.RiskFreeRate, "must be finite")
	}
	if !isFinite(p.TimeToExpiry) {
		return nil, apperrors.NewValidationError("time_to_expiry", p.TimeToExpiry, "must be finite")
	}

	seen := make(map[ContractKey]struct{}, len(contracts))
	for _, c := range contracts {
		if _, dup := seen[c.Key()]; dup {
			return nil, apperrors.NewValidationError("contracts", c.Key(), "duplicate strike for option type")
		}
		seen[c.Key()] = struct{}{}
	}

	copied := make([]OptionContract, len(contracts))
	copy(copied, contracts)

	return &OptionChainSnapshot{
		symbol:       p.Symbol,
		spot:         p.Spot,
		riskFreeRate: p.RiskFreeRate,
		timeToExpiry: p.TimeToExpiry,
		timestamp:    p.Timestamp,
		expiry:       p.Expiry,
		contracts:    copied,
	}, nil
}

func (s *OptionChainSnapshot) Symbol() string        { return s.symbol }
func (s *OptionChainSnapshot) Spot() float64         { return s.spot }
func (s *OptionChainSnapshot) RiskFreeRate() float64 { return s.riskFreeRate }
func (s *OptionChainSnapshot) TimeToExpiry() float64 { return s.timeToExpiry }
func (s *OptionChainSnapshot) Timestamp() time.Time  { return s.timestamp }
func (s *OptionChainSnapshot) Expiry() time.Time     { return s.expiry }
func (s *OptionChainSnapshot) Len() int              { return len(s.contracts) }

// Contract returns the i-th contract.
func (s *OptionChainSnapshot) Contract(i int) OptionContract {
	return s.contracts[i]
}

// Contracts returns a copy of the snapshot contracts.
func (s *OptionChainSnapshot) Contracts() []OptionContract {
	out := make([]OptionContract, len(s.contracts))
	copy(out, s.contracts)
	return out
}

// Strikes returns the distinct strikes in ascending order.
func (s *OptionChainSnapshot) Strikes() []float64 {
	set := make(map[float64]struct{}, len(s.contracts))
	for _, c := range s.contracts {
		set[c.Strike] = struct{}{}
	}
	strikes := make([]float64, 0, len(set))
	for k := range set {
		strikes = append(strikes, k)
	}
	sort.Float64s(strikes)
	return strikes
}

// IsPaired reports whether the strike is present as both a CALL and a PUT.
func (s *OptionChainSnapshot) IsPaired(strike float64) bool {
	var call, put bool
	for _, c := range s.contracts {
		if c.Strike != strike {
			continue
		}
		if c.Type.IsCall() {
			call = true
		} else {
			put = true
		}
	}
	return call && put
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
