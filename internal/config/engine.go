package config

import (
	"fmt"
	"time"
)

// EngineConfig holds routing and escalation engine configuration.
type EngineConfig struct {
	// WebhookSecret is the shared secret used to verify webhook signatures.
	WebhookSecret string
	// RuleCacheTTL bounds staleness of the per-organization rule cache.
	RuleCacheTTL time.Duration
	// ReminderAfter is how long an assignment may stay pending before a reminder.
	ReminderAfter time.Duration
	// EscalateAfter is how long an assignment may stay pending before escalation.
	EscalateAfter time.Duration
	// SweepInterval is the cadence of the escalation sweep.
	SweepInterval time.Duration
}

// LoadEngineConfigFromEnv loads engine configuration from environment variables.
func LoadEngineConfigFromEnv() EngineConfig {
	return EngineConfig{
		WebhookSecret: GetEnv("WEBHOOK_SECRET", ""),
		RuleCacheTTL:  GetEnvDuration("RULE_CACHE_TTL", 60*time.Second),
		ReminderAfter: GetEnvDuration("REMINDER_AFTER", 24*time.Hour),
		EscalateAfter: GetEnvDuration("ESCALATE_AFTER", 48*time.Hour),
		SweepInterval: GetEnvDuration("SWEEP_INTERVAL", time.Hour),
	}
}

// Validate validates engine configuration.
func (c EngineConfig) Validate() error {
	if c.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET must be set")
	}
	if c.RuleCacheTTL <= 0 {
		return fmt.Errorf("RuleCacheTTL must be greater than 0")
	}
	if c.ReminderAfter <= 0 {
		return fmt.Errorf("ReminderAfter must be greater than 0")
	}
	if c.EscalateAfter <= c.ReminderAfter {
		return fmt.Errorf(
			"EscalateAfter (%s) must be greater than ReminderAfter (%s)",
			c.EscalateAfter, c.ReminderAfter)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SweepInterval must be greater than 0")
	}
	return nil
}
