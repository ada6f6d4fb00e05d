package calculation

import (
	"time"

	"github.com/google/uuid"
)

// seedFunc returns a fresh seed for unseeded Monte Carlo runs (override in
// tests for determinism).
var seedFunc = func() int64 { return time.Now().UnixNano() }

// SetSeedFunc overrides the seed provider (use only in tests).
func SetSeedFunc(f func() int64) { seedFunc = f }

// runIDFunc names a computation run.
var runIDFunc = uuid.NewString

// SetRunIDFunc overrides the run ID provider (use only in tests).
func SetRunIDFunc(f func() string) { runIDFunc = f }
