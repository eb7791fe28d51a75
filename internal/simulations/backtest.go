/*

This file contains the historical backtest simulator. It replays each pool's daily APY series over the
requested window under a compounding mode and summarizes the outcome.

The simulator is pure: the caller supplies the history series and the reference time, so identical
requests always produce identical responses.

*/

package simulations

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/elys-network/curator/internal/analyzer"
	"github.com/elys-network/curator/internal/logger"
	"github.com/elys-network/curator/internal/types"
	"github.com/elys-network/curator/internal/utils"
)

const (
	// MaxPools is the largest batch accepted by RunBacktest.
	MaxPools = 5
	// MinInitialAmount is the product floor for simulated capital.
	MinInitialAmount = 100.0

	dateLayout   = "2006-01-02"
	daysPerYear  = 365
	weeksPerYear = 52
	weekLength   = 7
)

// Error definitions for the backtest simulator
var (
	ErrNoPools            = errors.New("at least one pool is required")
	ErrTooManyPools       = errors.New("too many pools")
	ErrUnsupportedWindow  = errors.New("unsupported window")
	ErrNoResults          = errors.New("no pools produced results")
	ErrInitialAmountLow   = errors.New("initial amount is below the minimum")
	ErrMissingPoolID      = errors.New("pool id is empty")
	ErrMissingReferenceTS = errors.New("reference time is required")
)

var backtestLogger = logger.GetForComponent("backtest_simulator")

// SupportedWindows lists the accepted window lengths in days.
var SupportedWindows = []int{7, 30, 90}

// PoolSeries is the raw history of one pool, in any order.
type PoolSeries struct {
	ID      string
	History []types.HistoryPoint
}

// Request describes one backtest batch.
type Request struct {
	Pools         []PoolSeries
	InitialAmount float64
	Compounding   types.Compounding
	Days          int
	Now           time.Time // Window end; supplied by the caller for determinism
}

// Validate checks the batch-level constraints. Per-pool data problems are not validation errors.
func (r Request) Validate() error {
	if len(r.Pools) == 0 {
		return fmt.Errorf("%w: %w", types.ErrValidation, ErrNoPools)
	}
	if len(r.Pools) > MaxPools {
		return fmt.Errorf("%w: %w: at most %d pools can be compared, got %d", types.ErrValidation, ErrTooManyPools, MaxPools, len(r.Pools))
	}
	for i, p := range r.Pools {
		if p.ID == "" {
			return fmt.Errorf("%w: %w at position %d", types.ErrValidation, ErrMissingPoolID, i)
		}
	}
	if !slices.Contains(SupportedWindows, r.Days) {
		return fmt.Errorf("%w: %w: days must be one of 7, 30, 90, got %d", types.ErrValidation, ErrUnsupportedWindow, r.Days)
	}
	if _, err := types.ParseCompounding(string(r.Compounding)); err != nil {
		return err
	}
	if !(r.InitialAmount >= MinInitialAmount) || math.IsInf(r.InitialAmount, 0) {
		return fmt.Errorf("%w: %w: initialAmount must be at least %.0f, got %.2f", types.ErrValidation, ErrInitialAmountLow, MinInitialAmount, r.InitialAmount)
	}
	if r.Now.IsZero() {
		return fmt.Errorf("%w: %w", types.ErrValidation, ErrMissingReferenceTS)
	}
	return nil
}

// RunBacktest simulates every pool of the batch and selects the winner.
// Inputs:
//   - req: The pools with their raw history, initial capital, compounding mode, window and reference time.
//
// Output:
//   - One result per requested pool in request order. Pools with no data in the window get a degenerate
//     result (final equals initial, statistics zero) instead of failing the batch.
//   - A validation error for invalid batch settings, or when no pool has any data in the window.
func RunBacktest(req Request) (types.BacktestResponse, error) {
	if err := req.Validate(); err != nil {
		return types.BacktestResponse{}, err
	}

	mode, _ := types.ParseCompounding(string(req.Compounding))
	end := req.Now.UTC()
	start := end.AddDate(0, 0, -req.Days)

	results := make([]types.BacktestResult, 0, len(req.Pools))
	winner := ""
	bestReturn := math.Inf(-1)
	simulated := 0

	for _, pool := range req.Pools {
		var result types.BacktestResult
		series := FilterWindow(pool.History, start, end, req.Days)
		if len(series) == 0 {
			backtestLogger.Warn().
				Str("poolID", pool.ID).
				Int("rawPoints", len(pool.History)).
				Int("days", req.Days).
				Msg("No history in window, reporting degenerate result")
			result = degenerateResult(pool.ID, req.InitialAmount)
		} else {
			result = simulatePool(pool.ID, series, req.InitialAmount, mode)
			simulated++
		}
		results = append(results, result)

		// Degenerate results compete at 0%. Strict comparison keeps the first pool on ties.
		if result.TotalReturnPercent > bestReturn {
			bestReturn = result.TotalReturnPercent
			winner = pool.ID
		}
	}

	if simulated == 0 {
		return types.BacktestResponse{}, fmt.Errorf("%w: %w", types.ErrValidation, ErrNoResults)
	}

	backtestLogger.Info().
		Int("pools", len(req.Pools)).
		Int("days", req.Days).
		Str("compounding", string(mode)).
		Str("winner", winner).
		Msg("Backtest completed")

	return types.BacktestResponse{
		Results: results,
		Winner:  winner,
		Period:  types.BacktestPeriod{Start: start, End: end, Days: req.Days},
		Settings: types.BacktestSettings{
			InitialAmount: req.InitialAmount,
			Compounding:   mode,
		},
	}, nil
}

// FilterWindow keeps the points within [start, end], sorted by date, one per calendar day (the latest
// sample of a day wins), limited to the trailing `days` days. Points with a non-finite APY are dropped.
func FilterWindow(history []types.HistoryPoint, start, end time.Time, days int) []types.HistoryPoint {
	byDay := make(map[string]types.HistoryPoint, len(history))
	for _, point := range history {
		if point.Timestamp.Before(start) || point.Timestamp.After(end) || math.IsNaN(point.APY) || math.IsInf(point.APY, 0) {
			continue
		}
		day := point.Timestamp.UTC().Format(dateLayout)
		if existing, ok := byDay[day]; ok && existing.Timestamp.After(point.Timestamp) {
			continue
		}
		byDay[day] = point
	}

	series := make([]types.HistoryPoint, 0, len(byDay))
	for _, point := range byDay {
		series = append(series, point)
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})

	if len(series) > days {
		series = series[len(series)-days:]
	}
	return series
}

// simulatePool runs the compounding walk over a non-empty, sorted series.
func simulatePool(poolID string, series []types.HistoryPoint, initial float64, mode types.Compounding) types.BacktestResult {
	value := initial
	accrued := 0.0
	points := make([]types.BacktestPoint, 0, len(series))
	apys := make([]float64, 0, len(series))

	minAPY := math.Inf(1)
	maxAPY := math.Inf(-1)
	sumAPY := 0.0

	for i, point := range series {
		apy := point.APY
		dailyRate := apy / daysPerYear / 100

		var cumulative float64
		switch mode {
		case types.CompoundingDaily:
			value *= 1 + dailyRate
			cumulative = value
		case types.CompoundingWeekly:
			// Only week boundaries move the value; days in between earn nothing.
			if (i+1)%weekLength == 0 {
				value *= 1 + apy/weeksPerYear/100
			}
			cumulative = value
		case types.CompoundingNone:
			accrued += initial * dailyRate
			cumulative = initial + accrued
		}

		points = append(points, types.BacktestPoint{
			Date:            point.Timestamp.UTC().Format(dateLayout),
			APY:             utils.Round(apy, 2),
			CumulativeValue: utils.Round(cumulative, 2),
		})

		apys = append(apys, apy)
		sumAPY += apy
		minAPY = math.Min(minAPY, apy)
		maxAPY = math.Max(maxAPY, apy)
	}

	final := value
	if mode == types.CompoundingNone {
		final = initial + accrued
	}

	volatility, err := analyzer.CalculateVolatility(apys)
	if err != nil {
		backtestLogger.Error().Err(err).Str("poolID", poolID).Msg("Failed to calculate APY volatility")
		volatility = 0
	}

	totalReturn := final - initial
	result := types.BacktestResult{
		PoolID:             poolID,
		InitialAmount:      initial,
		FinalAmount:        utils.Round(final, 2),
		TotalReturn:        utils.Round(totalReturn, 2),
		TotalReturnPercent: utils.Round(totalReturn/initial*100, 3),
		AverageAPY:         utils.Round(sumAPY/float64(len(series)), 2),
		MinAPY:             utils.Round(minAPY, 2),
		MaxAPY:             utils.Round(maxAPY, 2),
		Volatility:         utils.Round(volatility, 2),
		DataPoints:         points,
	}

	backtestLogger.Debug().
		Str("poolID", poolID).
		Int("points", len(series)).
		Float64("finalAmount", result.FinalAmount).
		Float64("totalReturnPercent", result.TotalReturnPercent).
		Msg("Pool simulated")

	return result
}

func degenerateResult(poolID string, initial float64) types.BacktestResult {
	return types.BacktestResult{
		PoolID:        poolID,
		InitialAmount: initial,
		FinalAmount:   utils.Round(initial, 2),
		DataPoints:    []types.BacktestPoint{},
	}
}
