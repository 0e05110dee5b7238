// Package models provides the option chain, exposure and signal types shared
// by the analysis packages.
//
// Values are immutable once constructed: snapshots are built through
// NewOptionChainSnapshot and contracts through NewOptionContract, both of
// which validate their inputs.
package models
