package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	// EnvAssignmentsSaveAttempts overrides the linkage-save attempt budget.
	EnvAssignmentsSaveAttempts = "ASSIGNMENTS_SAVE_ATTEMPTS"

	// EnvAssignmentsSaveBackoff overrides the pause between linkage-save attempts.
	EnvAssignmentsSaveBackoff = "ASSIGNMENTS_SAVE_BACKOFF"

	// EnvAssignmentsLegacyPath overrides the legacy snapshot directory.
	EnvAssignmentsLegacyPath = "ASSIGNMENTS_LEGACY_PATH"
)

// AssignmentsConfig contains tuning for the assignment engine: the retry
// budget for region-linkage saves and the location of legacy local snapshots.
type AssignmentsConfig struct {
	SaveAttempts int    `toml:"save_attempts"`
	SaveBackoff  string `toml:"save_backoff"`
	LegacyPath   string `toml:"legacy_path"`
}

// SaveBackoffDuration parses and returns the save backoff as a time.Duration.
func (c *AssignmentsConfig) SaveBackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.SaveBackoff)
	return d
}

// Finalize applies defaults, loads environment overrides, and validates the configuration.
func (c *AssignmentsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *AssignmentsConfig) Merge(overlay *AssignmentsConfig) {
	if overlay.SaveAttempts != 0 {
		c.SaveAttempts = overlay.SaveAttempts
	}
	if overlay.SaveBackoff != "" {
		c.SaveBackoff = overlay.SaveBackoff
	}
	if overlay.LegacyPath != "" {
		c.LegacyPath = overlay.LegacyPath
	}
}

func (c *AssignmentsConfig) loadDefaults() {
	if c.SaveAttempts == 0 {
		c.SaveAttempts = 3
	}
	if c.SaveBackoff == "" {
		c.SaveBackoff = "1s"
	}
	if c.LegacyPath == "" {
		c.LegacyPath = ".data/legacy"
	}
}

func (c *AssignmentsConfig) loadEnv() {
	if v := os.Getenv(EnvAssignmentsSaveAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SaveAttempts = n
		}
	}
	if v := os.Getenv(EnvAssignmentsSaveBackoff); v != "" {
		c.SaveBackoff = v
	}
	if v := os.Getenv(EnvAssignmentsLegacyPath); v != "" {
		c.LegacyPath = v
	}
}

func (c *AssignmentsConfig) validate() error {
	if c.SaveAttempts < 1 {
		return fmt.Errorf("save_attempts must be positive")
	}
	if _, err := time.ParseDuration(c.SaveBackoff); err != nil {
		return fmt.Errorf("invalid save_backoff: %w", err)
	}
	return nil
}
