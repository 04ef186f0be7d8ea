package config

import "time"

// BatchConfig controls one reconciliation run.
type BatchConfig struct {
	// DefaultSystem names the marketplace treated as the source of truth
	// for SKUs not yet seen locally, and for cleanup's deletion check.
	DefaultSystem string `mapstructure:"default_system" validate:"required"`

	// LockPath is the PID file guarding against a concurrent batch.
	LockPath string `mapstructure:"lock_path" validate:"required"`

	// PropagateListings enables the cross-marketplace listing pass after
	// each sync.
	PropagateListings bool `mapstructure:"propagate_listings"`

	// Timeout bounds the whole batch, including every adapter call.
	Timeout time.Duration `mapstructure:"timeout" validate:"required"`
}
