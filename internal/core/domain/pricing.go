package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var nanosPerHour = decimal.NewFromInt(int64(time.Hour))

// CalculatePrice returns duration_hours × hourlyRate, rounded half away from
// zero to the smallest currency unit. Non-positive durations cost nothing.
func CalculatePrice(hourlyRate int64, start, end time.Time) int64 {
	if !start.Before(end) || hourlyRate <= 0 {
		return 0
	}
	nanos := decimal.NewFromInt(int64(end.Sub(start)))
	return decimal.NewFromInt(hourlyRate).
		Mul(nanos).
		Div(nanosPerHour).
		Round(0).
		IntPart()
}
