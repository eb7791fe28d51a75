/*
This file contains common utility functions for converting between float64 figures and exact decimals,
and for rounding the figures reported to callers.
*/

package utils

import (
	"errors"
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// Error definitions for zero-tolerance error handling
var (
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
)

// percentPrecision is the number of decimals kept when a percentage enters exact arithmetic.
const percentPrecision = 6

// Round rounds half away from zero to the given number of decimal places.
// Non-finite values round to zero so they never leak into JSON output.
func Round(value float64, places int32) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return decimal.NewFromFloat(value).Round(places).InexactFloat64()
}

// Float64ToDec converts a float64 to an SDK LegacyDec using a fixed precision string representation
// to avoid binary floating point artefacts.
func Float64ToDec(value float64) (sdkmath.LegacyDec, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: value is %f", ErrNotFinite, value)
	}

	formatStr := fmt.Sprintf("%%.%df", percentPrecision)
	dec, err := sdkmath.LegacyNewDecFromStr(fmt.Sprintf(formatStr, value))
	if err != nil {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: failed to create decimal from string: %w", ErrConversionFailed, err)
	}
	return dec, nil
}

// DecToFloat64 converts an SDK LegacyDec back to float64.
func DecToFloat64(dec sdkmath.LegacyDec) (float64, error) {
	if dec.IsNil() {
		return 0, fmt.Errorf("%w: decimal is nil", ErrConversionFailed)
	}
	f, err := dec.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, f)
	}
	return f, nil
}
