package store

import (
	"math"
	"time"
)

func float64Bits(f float64) uint64 { return math.Float64bits(f) }

func bitsToFloat64(b uint64) float64 { return math.Float64frombits(b) }

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
