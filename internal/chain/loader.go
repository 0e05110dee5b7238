// Package chain loads raw option chain rows from files and normalizes them
// into snapshots for the analysis engine.
package chain

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	apperrors "gex-engine/internal/errors"
)

// Row is one raw option chain row as quoted by the broker.
type Row struct {
	Strike     float64 `csv:"strike" json:"strike"`
	OptionType string  `csv:"option_type" json:"option_type"`
	OI         int64   `csv:"oi" json:"oi"`
	IV         float64 `csv:"iv" json:"iv"`
	LTP        float64 `csv:"ltp" json:"ltp"`
	Volume     int64   `csv:"volume" json:"volume"`
}

// Document is a snapshot file: header fields plus rows.
type Document struct {
	Symbol       string   `json:"symbol"`
	Spot         float64  `json:"spot"`
	Expiry       string   `json:"expiry"`
	Timestamp    string   `json:"timestamp"`
	RiskFreeRate *float64 `json:"risk_free_rate,omitempty"`
	Rows         []Row    `json:"rows"`
}

// LoadCSV reads rows from CSV with the header strike,option_type,oi,iv,ltp,volume.
// The volume column is optional.
func LoadCSV(r io.Reader) ([]Row, error) {
	var rows []Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, apperrors.NewDataError("csv", "", "failed to parse option chain", err)
	}
	return rows, nil
}

// LoadJSON reads a snapshot document.
func LoadJSON(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, apperrors.NewDataError("json", "", "failed to parse snapshot document", err)
	}
	return &doc, nil
}

// LoadFile reads a snapshot file, choosing the format by extension.
// CSV files carry rows only; the header fields of the returned document are empty.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewDataError("file", path, "snapshot file not found", apperrors.ErrDataNotFound)
		}
		return nil, apperrors.NewDataError("file", path, "failed to open snapshot", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		doc, err := LoadJSON(f)
		if err != nil {
			return nil, apperrors.Wrap(err, path)
		}
		return doc, nil
	case ".csv":
		rows, err := LoadCSV(f)
		if err != nil {
			return nil, apperrors.Wrap(err, path)
		}
		return &Document{Symbol: symbolFromPath(path), Rows: rows}, nil
	default:
		return nil, apperrors.NewDataError("file", path, "expected .csv or .json", apperrors.ErrUnsupportedInput)
	}
}

// symbolFromPath uses the leading token of the file name, "NIFTY_2024-11-28.csv" -> "NIFTY".
func symbolFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.IndexAny(base, "_-. "); i > 0 {
		base = base[:i]
	}
	return strings.ToUpper(base)
}
