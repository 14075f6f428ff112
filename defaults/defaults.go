// Package defaults collects the handful of constants shared between
// config and executor so the two never drift out of sync.
package defaults

// TimeoutMultiplier is applied to a baseline run's instruction cost to
// compute a mutant's execution budget, used whenever neither the
// configuration file nor a caller overrides it.
const TimeoutMultiplier = 2.0
