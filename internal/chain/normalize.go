package chain

import (
	"fmt"
	"math"
	"time"

	"gex-engine/internal/analysis/exposure"
	apperrors "gex-engine/internal/errors"
	"gex-engine/internal/models"
	"gex-engine/pkg/utils"
)

// Options controls row normalization.
type Options struct {
	// IVInPercent treats IV as a percentage (NSE quotes 14.5 for 14.5%).
	IVInPercent bool
	// DefaultIV replaces a missing IV. Zero drops such rows instead.
	DefaultIV float64
	// StrikesRange keeps strikes within spot ± StrikesRange*StrikeStep. Zero keeps all.
	StrikesRange int
	StrikeStep   float64
	// MinDaysToExpiry floors the time to expiry. Zero disables the floor.
	MinDaysToExpiry float64
	// RiskFreeRate is used when the snapshot does not carry one.
	RiskFreeRate float64
}

// DefaultOptions returns the default normalization options.
func DefaultOptions() Options {
	return Options{
		IVInPercent:     true,
		DefaultIV:       0.15,
		StrikesRange:    0,
		StrikeStep:      100,
		MinDaysToExpiry: 0,
		RiskFreeRate:    0.07,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if math.IsNaN(o.DefaultIV) || math.IsInf(o.DefaultIV, 0) || o.DefaultIV < 0 {
		return apperrors.NewConfigError("default_iv", o.DefaultIV, "must be a non-negative finite number")
	}
	if o.StrikesRange < 0 {
		return apperrors.NewConfigError("strikes_range", o.StrikesRange, "must be non-negative")
	}
	if o.StrikesRange > 0 && !(o.StrikeStep > 0) {
		return apperrors.NewConfigError("strike_step", o.StrikeStep, "must be positive when strikes_range is set")
	}
	if math.IsNaN(o.MinDaysToExpiry) || o.MinDaysToExpiry < 0 {
		return apperrors.NewConfigError("min_days_to_expiry", o.MinDaysToExpiry, "must be non-negative")
	}
	if math.IsNaN(o.RiskFreeRate) || math.IsInf(o.RiskFreeRate, 0) {
		return apperrors.NewConfigError("risk_free_rate", o.RiskFreeRate, "must be finite")
	}
	return nil
}

// Header holds the scalar fields of a snapshot.
type Header struct {
	Symbol       string
	Spot         float64
	Timestamp    time.Time
	Expiry       time.Time
	RiskFreeRate *float64
}

// HeaderFromDocument parses the document header. The symbol is sanitized and
// an empty timestamp means now.
func HeaderFromDocument(doc *Document, now time.Time) (Header, error) {
	h := Header{
		Symbol:       SanitizeSymbol(doc.Symbol),
		Spot:         doc.Spot,
		Timestamp:    now,
		RiskFreeRate: doc.RiskFreeRate,
	}
	if err := ValidateSymbol(h.Symbol); err != nil {
		return Header{}, err
	}

	if doc.Expiry != "" {
		expiry, err := utils.ParseExpiry(doc.Expiry)
		if err != nil {
			return Header{}, apperrors.NewValidationError("expiry", doc.Expiry, err.Error())
		}
		h.Expiry = expiry
	}
	if doc.Timestamp != "" {
		ts, err := utils.ParseTimestamp(doc.Timestamp)
		if err != nil {
			return Header{}, apperrors.NewValidationError("timestamp", doc.Timestamp, err.Error())
		}
		h.Timestamp = ts
	}
	return h, nil
}

// Dropped reports a row left out of the snapshot.
type Dropped struct {
	Row    int // zero-based index in the input
	Strike float64
	Type   string
	Reason string
}

func (d Dropped) String() string {
	return fmt.Sprintf("row %d (%s %.2f): %s", d.Row, d.Type, d.Strike, d.Reason)
}

// Normalize converts raw rows into a snapshot. Unusable rows are dropped and
// reported rather than failing the snapshot; a later row for the same strike
// and type replaces an earlier one.
func Normalize(h Header, rows []Row, opts Options) (*models.OptionChainSnapshot, []Dropped, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	if h.Expiry.IsZero() {
		return nil, nil, apperrors.NewValidationError("expiry", h.Symbol, "is required")
	}

	var dropped []Dropped
	drop := func(i int, r Row, reason string) {
		dropped = append(dropped, Dropped{Row: i, Strike: r.Strike, Type: r.OptionType, Reason: reason})
	}

	var contracts []models.OptionContract
	position := make(map[models.ContractKey]int)
	source := make(map[models.ContractKey]int)

	for i, r := range rows {
		typ, ok := models.ParseOptionType(r.OptionType)
		if !ok {
			drop(i, r, "unknown option type")
			continue
		}

		iv := r.IV
		if opts.IVInPercent {
			iv /= 100
		}
		if math.IsNaN(iv) || iv <= 0 {
			if opts.DefaultIV == 0 {
				drop(i, r, "missing implied volatility")
				continue
			}
			iv = opts.DefaultIV
		}

		c, err := models.NewOptionContract(r.Strike, typ, r.OI, iv, r.LTP, r.Volume)
		if err != nil {
			drop(i, r, err.Error())
			continue
		}

		if at, dup := position[c.Key()]; dup {
			prev := source[c.Key()]
			drop(prev, rows[prev], fmt.Sprintf("superseded by row %d", i))
			contracts[at] = c
			source[c.Key()] = i
			continue
		}
		position[c.Key()] = len(contracts)
		source[c.Key()] = i
		contracts = append(contracts, c)
	}

	if opts.StrikesRange > 0 {
		kept := exposure.Window(contracts, h.Spot, opts.StrikesRange, opts.StrikeStep)
		inWindow := make(map[models.ContractKey]struct{}, len(kept))
		for _, c := range kept {
			inWindow[c.Key()] = struct{}{}
		}
		for _, c := range contracts {
			if _, ok := inWindow[c.Key()]; !ok {
				i := source[c.Key()]
				drop(i, rows[i], "outside strike window")
			}
		}
		contracts = kept
	}

	rate := opts.RiskFreeRate
	if h.RiskFreeRate != nil {
		rate = *h.RiskFreeRate
	}

	snap, err := models.NewOptionChainSnapshot(models.SnapshotParams{
		Symbol:       h.Symbol,
		Spot:         h.Spot,
		RiskFreeRate: rate,
		TimeToExpiry: TimeToExpiry(h.Timestamp, h.Expiry, opts.MinDaysToExpiry),
		Timestamp:    h.Timestamp,
		Expiry:       h.Expiry,
	}, contracts)
	if err != nil {
		return nil, dropped, err
	}
	return snap, dropped, nil
}
