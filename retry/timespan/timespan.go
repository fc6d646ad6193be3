package timespan

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Unit identifies the time unit delay values are expressed in.
type Unit string

// Supported units.
const (
	UnitSeconds      Unit = "seconds"
	UnitMilliseconds Unit = "milliseconds"
	UnitMicroseconds Unit = "microseconds"
)

// ErrInvalidUnit is returned when a unit string cannot be recognized.
var ErrInvalidUnit = errors.New("not a valid time unit")

// microsecondsPer maps each unit to its span in microseconds.
var microsecondsPer = map[Unit]decimal.Decimal{
	UnitSeconds:      decimal.NewFromInt(1_000_000),
	UnitMilliseconds: decimal.NewFromInt(1_000),
	UnitMicroseconds: decimal.NewFromInt(1),
}

// nanosPerMicro converts microseconds to nanoseconds for time.Duration.
var nanosPerMicro = decimal.NewFromInt(1_000)

// ParseUnit takes a unit string and returns the Unit constant it names.
func ParseUnit(value string) (Unit, error) {
	switch strings.ToLower(value) {
	case "s", "sec", "second", "seconds":
		return UnitSeconds, nil
	case "ms", "millisecond", "milliseconds":
		return UnitMilliseconds, nil
	case "us", "µs", "microsecond", "microseconds":
		return UnitMicroseconds, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidUnit, value)
}

// Valid reports whether the unit is one of the supported constants.
func (u Unit) Valid() bool {
	_, ok := microsecondsPer[u]

	return ok
}

// String returns the canonical unit name.
func (u Unit) String() string {
	return string(u)
}

// Convert re-expresses value in another unit. A nil value or an unrecognized
// unit yields nil.
func Convert(value *float64, from, to Unit) *float64 {
	if value == nil {
		return nil
	}

	converted, ok := ConvertValue(*value, from, to)
	if !ok {
		return nil
	}

	return &converted
}

// ConvertValue re-expresses value in another unit. The boolean reports
// whether both units were recognized.
func ConvertValue(value float64, from, to Unit) (float64, bool) {
	fromFactor, ok := microsecondsPer[from]
	if !ok {
		return 0, false
	}

	toFactor, ok := microsecondsPer[to]
	if !ok {
		return 0, false
	}

	converted, _ := decimal.NewFromFloat(value).Mul(fromFactor).Div(toFactor).Float64()

	return converted, true
}

// ConvertSlice converts every element of values, preserving nils.
func ConvertSlice(values []*float64, from, to Unit) []*float64 {
	if values == nil {
		return nil
	}

	converted := make([]*float64, len(values))
	for i, value := range values {
		converted[i] = Convert(value, from, to)
	}

	return converted
}

// Duration converts a value in this unit to wall-clock time. Negative values
// and unrecognized units clamp to zero.
func (u Unit) Duration(value float64) time.Duration {
	factor, ok := microsecondsPer[u]
	if !ok || value <= 0 {
		return 0
	}

	nanos := decimal.NewFromFloat(value).Mul(factor).Mul(nanosPerMicro)

	return time.Duration(nanos.IntPart())
}

// FromDuration expresses a wall-clock duration as a value in this unit.
// Unrecognized units yield zero.
func FromDuration(duration time.Duration, to Unit) float64 {
	factor, ok := microsecondsPer[to]
	if !ok {
		return 0
	}

	value, _ := decimal.NewFromInt(duration.Nanoseconds()).
		Div(nanosPerMicro).
		Div(factor).
		Float64()

	return value
}
