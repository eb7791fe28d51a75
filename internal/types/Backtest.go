/*

This file contains the types for historical series and backtest results.

*/

package types

import (
	"fmt"
	"strings"
	"time"
)

// HistoryPoint is one daily sample of a pool's yield history.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	APY       float64   `json:"apy"`
	APYBase   float64   `json:"apy_base"`
	APYReward float64   `json:"apy_reward"`
	TvlUSD    float64   `json:"tvl_usd"`
}

// Compounding selects how yield is reinvested during a backtest.
type Compounding string

const (
	CompoundingDaily  Compounding = "daily"
	CompoundingWeekly Compounding = "weekly"
	CompoundingNone   Compounding = "none"
)

// ParseCompounding rejects anything but the three supported modes.
func ParseCompounding(s string) (Compounding, error) {
	switch Compounding(strings.ToLower(strings.TrimSpace(s))) {
	case CompoundingDaily:
		return CompoundingDaily, nil
	case CompoundingWeekly:
		return CompoundingWeekly, nil
	case CompoundingNone:
		return CompoundingNone, nil
	}
	return "", fmt.Errorf("%w: compounding must be one of daily, weekly, none, got %q", ErrValidation, s)
}

// BacktestPoint mirrors one step of the compounding walk.
type BacktestPoint struct {
	Date            string  `json:"date"` // YYYY-MM-DD
	APY             float64 `json:"apy"`
	CumulativeValue float64 `json:"cumulative_value"`
}

// BacktestResult is the per-pool performance summary.
type BacktestResult struct {
	PoolID             string          `json:"pool_id"`
	InitialAmount      float64         `json:"initial_amount"`
	FinalAmount        float64         `json:"final_amount"`
	TotalReturn        float64         `json:"total_return"`
	TotalReturnPercent float64         `json:"total_return_percent"`
	AverageAPY         float64         `json:"average_apy"`
	MinAPY             float64         `json:"min_apy"`
	MaxAPY             float64         `json:"max_apy"`
	Volatility         float64         `json:"volatility"`
	DataPoints         []BacktestPoint `json:"data_points"`
}

// BacktestPeriod is the requested window.
type BacktestPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// BacktestSettings echoes the settings used for the run.
type BacktestSettings struct {
	InitialAmount float64     `json:"initial_amount"`
	Compounding   Compounding `json:"compounding"`
}

// BacktestResponse is the batch output of the simulator.
type BacktestResponse struct {
	Results  []BacktestResult `json:"results"`
	Winner   string           `json:"winner"`
	Period   BacktestPeriod   `json:"period"`
	Settings BacktestSettings `json:"settings"`
}
