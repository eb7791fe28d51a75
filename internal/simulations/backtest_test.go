package simulations

import (
	"math"
	"testing"
	"time"

	"github.com/elys-network/curator/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

// dailySeries builds n daily points ending at testNow, oldest first, using apy(i) for day i.
func dailySeries(n int, apy func(i int) float64) []types.HistoryPoint {
	points := make([]types.HistoryPoint, 0, n)
	for i := 0; i < n; i++ {
		points = append(points, types.HistoryPoint{
			Timestamp: testNow.AddDate(0, 0, -(n - 1 - i)),
			APY:       apy(i),
		})
	}
	return points
}

func flat(apy float64) func(int) float64 {
	return func(int) float64 { return apy }
}

func request(compounding types.Compounding, days int, pools ...PoolSeries) Request {
	return Request{
		Pools:         pools,
		InitialAmount: 10_000,
		Compounding:   compounding,
		Days:          days,
		Now:           testNow,
	}
}

func TestRunBacktest_FlatDailyCompounding(t *testing.T) {
	resp, err := RunBacktest(request(types.CompoundingDaily, 30, PoolSeries{ID: "usdc", History: dailySeries(30, flat(10))}))
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	result := resp.Results[0]
	expected := 10_000 * math.Pow(1+0.1/365, 30)
	assert.InDelta(t, 10082.5, result.FinalAmount, 0.5)
	assert.InDelta(t, expected, result.FinalAmount, 0.01)
	assert.Equal(t, 0.0, result.Volatility)
	assert.Equal(t, 10.0, result.AverageAPY)
	assert.Equal(t, 10.0, result.MinAPY)
	assert.Equal(t, 10.0, result.MaxAPY)
	assert.InDelta(t, result.FinalAmount-10_000, result.TotalReturn, 0.011)
	assert.Len(t, result.DataPoints, 30)
	assert.Equal(t, "2025-06-01", result.DataPoints[0].Date)
	assert.Equal(t, "2025-06-30", result.DataPoints[29].Date)
	assert.Equal(t, result.FinalAmount, result.DataPoints[29].CumulativeValue)

	assert.Equal(t, "usdc", resp.Winner)
	assert.Equal(t, 30, resp.Period.Days)
	assert.Equal(t, testNow, resp.Period.End)
	assert.Equal(t, testNow.AddDate(0, 0, -30), resp.Period.Start)
	assert.Equal(t, types.BacktestSettings{InitialAmount: 10_000, Compounding: types.CompoundingDaily}, resp.Settings)
}

func TestRunBacktest_ZeroAPYKeepsCapital(t *testing.T) {
	for _, mode := range []types.Compounding{types.CompoundingDaily, types.CompoundingWeekly, types.CompoundingNone} {
		t.Run(string(mode), func(t *testing.T) {
			resp, err := RunBacktest(request(mode, 90, PoolSeries{ID: "idle", History: dailySeries(90, flat(0))}))
			require.NoError(t, err)
			assert.Equal(t, 10_000.0, resp.Results[0].FinalAmount)
			assert.Equal(t, 0.0, resp.Results[0].TotalReturn)
			assert.Equal(t, 0.0, resp.Results[0].TotalReturnPercent)
		})
	}
}

func TestRunBacktest_CompoundingModes(t *testing.T) {
	pool := PoolSeries{ID: "sol", History: dailySeries(30, flat(20))}

	daily, err := RunBacktest(request(types.CompoundingDaily, 30, pool))
	require.NoError(t, err)
	weekly, err := RunBacktest(request(types.CompoundingWeekly, 30, pool))
	require.NoError(t, err)
	simple, err := RunBacktest(request(types.CompoundingNone, 30, pool))
	require.NoError(t, err)

	// Four weekly boundaries in 30 days.
	assert.InDelta(t, 10_000*math.Pow(1+0.2/52, 4), weekly.Results[0].FinalAmount, 0.01)
	assert.InDelta(t, 10_000+10_000*0.2/365*30, simple.Results[0].FinalAmount, 0.01)
	assert.Greater(t, daily.Results[0].FinalAmount, simple.Results[0].FinalAmount)

	// Weekly only moves on boundary days.
	points := weekly.Results[0].DataPoints
	assert.Equal(t, 10_000.0, points[5].CumulativeValue)
	assert.Greater(t, points[6].CumulativeValue, 10_000.0)
	assert.Equal(t, points[6].CumulativeValue, points[12].CumulativeValue)
}

func TestRunBacktest_Statistics(t *testing.T) {
	apys := []float64{4, 6, 4, 6, 4, 6, 4}
	resp, err := RunBacktest(request(types.CompoundingDaily, 7, PoolSeries{ID: "p", History: dailySeries(7, func(i int) float64 { return apys[i] })}))
	require.NoError(t, err)

	result := resp.Results[0]
	assert.Equal(t, 4.86, result.AverageAPY)
	assert.Equal(t, 4.0, result.MinAPY)
	assert.Equal(t, 6.0, result.MaxAPY)
	// Population standard deviation of {4,6,4,6,4,6,4}
	assert.Equal(t, 0.99, result.Volatility)
}

func TestRunBacktest_ValidationErrors(t *testing.T) {
	pool := PoolSeries{ID: "p", History: dailySeries(7, flat(5))}
	six := []PoolSeries{pool, pool, pool, pool, pool, pool}

	tests := []struct {
		name     string
		req      Request
		sentinel error
	}{
		{"no pools", request(types.CompoundingDaily, 7), ErrNoPools},
		{"too many pools", request(types.CompoundingDaily, 7, six...), ErrTooManyPools},
		{"window 15", request(types.CompoundingDaily, 15, pool), ErrUnsupportedWindow},
		{"monthly compounding", request(types.Compounding("monthly"), 7, pool), types.ErrValidation},
		{"empty pool id", request(types.CompoundingDaily, 7, PoolSeries{}), ErrMissingPoolID},
		{"initial too low", func() Request { r := request(types.CompoundingDaily, 7, pool); r.InitialAmount = 50; return r }(), ErrInitialAmountLow},
		{"no reference time", func() Request { r := request(types.CompoundingDaily, 7, pool); r.Now = time.Time{}; return r }(), ErrMissingReferenceTS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RunBacktest(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrValidation)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestRunBacktest_WinnerSelection(t *testing.T) {
	// ~5.0% and ~7.2% total return over 90 days with simple accrual.
	low := PoolSeries{ID: "low", History: dailySeries(90, flat(5.0*365/90))}
	high := PoolSeries{ID: "high", History: dailySeries(90, flat(7.2*365/90))}

	resp, err := RunBacktest(request(types.CompoundingNone, 90, low, high))
	require.NoError(t, err)
	assert.InDelta(t, 5.0, resp.Results[0].TotalReturnPercent, 0.001)
	assert.InDelta(t, 7.2, resp.Results[1].TotalReturnPercent, 0.001)
	assert.Equal(t, "high", resp.Winner)
}

func TestRunBacktest_TieKeepsFirstPool(t *testing.T) {
	a := PoolSeries{ID: "a", History: dailySeries(7, flat(8))}
	b := PoolSeries{ID: "b", History: dailySeries(7, flat(8))}

	resp, err := RunBacktest(request(types.CompoundingDaily, 7, a, b))
	require.NoError(t, err)
	assert.Equal(t, "a", resp.Winner)
}

func TestRunBacktest_EmptySeriesIsDegenerate(t *testing.T) {
	stale := PoolSeries{ID: "stale", History: []types.HistoryPoint{{Timestamp: testNow.AddDate(0, 0, -200), APY: 50}}}
	live := PoolSeries{ID: "live", History: dailySeries(30, flat(-1))}

	resp, err := RunBacktest(request(types.CompoundingDaily, 30, stale, live))
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	assert.Equal(t, types.BacktestResult{PoolID: "stale", InitialAmount: 10_000, FinalAmount: 10_000, DataPoints: []types.BacktestPoint{}}, resp.Results[0])
	// A degenerate pool competes at 0% and beats a negative return.
	assert.Equal(t, "stale", resp.Winner)

	positive := PoolSeries{ID: "positive", History: dailySeries(30, flat(5))}
	resp, err = RunBacktest(request(types.CompoundingDaily, 30, stale, positive))
	require.NoError(t, err)
	assert.Equal(t, "positive", resp.Winner)

	_, err = RunBacktest(request(types.CompoundingDaily, 30, stale))
	assert.ErrorIs(t, err, ErrNoResults)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestRunBacktest_Deterministic(t *testing.T) {
	history := dailySeries(90, func(i int) float64 { return 3 + float64(i%11)*0.37 })
	// Shuffle-independent: reverse the input order.
	reversed := make([]types.HistoryPoint, len(history))
	for i, p := range history {
		reversed[len(history)-1-i] = p
	}

	first, err := RunBacktest(request(types.CompoundingWeekly, 90, PoolSeries{ID: "x", History: history}))
	require.NoError(t, err)
	second, err := RunBacktest(request(types.CompoundingWeekly, 90, PoolSeries{ID: "x", History: reversed}))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFilterWindow(t *testing.T) {
	day := func(offset int, hour int) time.Time {
		return time.Date(2025, 6, 30+offset, hour, 0, 0, 0, time.UTC)
	}
	history := []types.HistoryPoint{
		{Timestamp: day(0, 9), APY: 3},
		{Timestamp: day(-1, 0), APY: 1},
		{Timestamp: day(0, 1), APY: 2}, // earlier sample of the same day loses
		{Timestamp: day(-2, 0), APY: math.NaN()},
		{Timestamp: day(-3, 0), APY: 4},
		{Timestamp: day(-40, 0), APY: 9}, // before the window
	}

	series := FilterWindow(history, testNow.AddDate(0, 0, -30), testNow, 30)
	require.Len(t, series, 3)
	assert.Equal(t, []float64{4, 1, 3}, []float64{series[0].APY, series[1].APY, series[2].APY})

	capped := FilterWindow(dailySeries(40, flat(1)), testNow.AddDate(0, 0, -60), testNow, 7)
	require.Len(t, capped, 7)
	assert.Equal(t, testNow, capped[6].Timestamp)
}

func TestFilterWindow_DropsPointsAfterEnd(t *testing.T) {
	history := append(dailySeries(7, flat(2)),
		types.HistoryPoint{Timestamp: testNow.AddDate(0, 0, 1), APY: 99},
		types.HistoryPoint{Timestamp: testNow.AddDate(0, 0, 5), APY: 99},
	)

	series := FilterWindow(history, testNow.AddDate(0, 0, -7), testNow, 7)
	require.Len(t, series, 7)
	assert.Equal(t, testNow.AddDate(0, 0, -6), series[0].Timestamp)
	assert.Equal(t, testNow, series[6].Timestamp)
	for _, point := range series {
		assert.Equal(t, 2.0, point.APY)
	}
}
