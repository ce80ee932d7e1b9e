// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer in
//   file and environment overrides.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// MaxIterations bounds the local-search improvement loop per run.
	MaxIterations int `koanf:"max_iterations"`

	// TimeBudget caps the wall time of a single scheduling run. Zero means
	// no cap beyond the caller's context.
	TimeBudget time.Duration `koanf:"time_budget"`

	// MaxResults bounds how many run results the store retains.
	MaxResults int `koanf:"max_results"`

	// ConfirmationDeadline is how long a referee has to answer an offer.
	ConfirmationDeadline time.Duration `koanf:"confirmation_deadline"`

	// ExpiryPolicy decides what happens to an expired offer: "release"
	// returns the slot to the pool, "hold" keeps it assigned for an admin
	// to resolve.
	ExpiryPolicy string `koanf:"expiry_policy"`

	// NotifyWorkerCount sets the number of notification delivery workers.
	NotifyWorkerCount int `koanf:"notify_worker_count"`

	// NotifyQueueSize bounds the in-memory notification queue.
	NotifyQueueSize int `koanf:"notify_queue_size"`

	// NotifyMaxAttempts caps delivery attempts per notification.
	NotifyMaxAttempts int `koanf:"notify_max_attempts"`

	// DedupeSize sets the size of the notification deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// CoverageTarget is the fill ratio below which the detector suggests
	// adding referees.
	CoverageTarget float64 `koanf:"coverage_target"`

	// BalanceFloor is the workload balance score below which the detector
	// suggests rebalancing.
	BalanceFloor float64 `koanf:"balance_floor"`

	// CostBudget, when positive, makes the detector flag schedules whose
	// estimated travel cost exceeds it.
	CostBudget float64 `koanf:"cost_budget"`

	// Soft penalty weights per unit; zero values fall back to defaults.
	TravelWeight      float64 `koanf:"travel_weight"`
	ExperienceWeight  float64 `koanf:"experience_weight"`
	PreferenceWeight  float64 `koanf:"preference_weight"`
	PartnerWeight     float64 `koanf:"partner_weight"`
	UtilizationWeight float64 `koanf:"utilization_weight"`
}

// New creates a Config populated with defaults.
func New() *Config {
	c := &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		MaxIterations:        1000,
		TimeBudget:           30 * time.Second,
		MaxResults:           1000,
		ConfirmationDeadline: 48 * time.Hour,
		ExpiryPolicy:         "release",
		NotifyWorkerCount:    runtime.NumCPU(),
		NotifyQueueSize:      10_000,
		NotifyMaxAttempts:    3,
		DedupeSize:           10_000,
		CoverageTarget:       0.95,
		BalanceFloor:         0.6,
		CostBudget:           0,
	}
	return c
}
