package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/niyoseris/curling/internal/config"
	"github.com/niyoseris/curling/internal/models"
)

var (
	ErrUnknownConfigKey   = errors.New("unknown config key")
	ErrInvalidConfigValue = errors.New("invalid config value")
)

type runtimeKey struct {
	valueType   string
	description string
	min         float64
}

// runtimeKeys lists the settings an admin may override.
var runtimeKeys = map[string]runtimeKey{
	"total_ends":           {"int", "Ends per match", 1},
	"stones_per_team":      {"int", "Stones each side throws per end", 1},
	"ai_think_delay_ms":    {"int", "Pause before the AI throws", 0},
	"max_sim_ticks":        {"int", "Tick budget for one throw", 1},
	"idle_forfeit_seconds": {"int", "Idle time before a match is forfeited (0 disables)", 0},
	"sheet_friction":       {"float", "Per-tick velocity decay", 0},
	"sheet_restitution":    {"float", "Bounce energy retention", 0},
}

// GetAllRuntimeConfig returns all runtime config entries
func GetAllRuntimeConfig(ctx context.Context, db *sqlx.DB) ([]models.RuntimeConfig, error) {
	configs := []models.RuntimeConfig{}
	err := db.SelectContext(ctx, &configs, `
		SELECT key, value, value_type, description, updated_by, updated_at
		FROM runtime_config
		ORDER BY key
	`)
	return configs, err
}

// validateValue checks value against the declared type and lower bound of the key
func validateValue(rk runtimeKey, value string) error {
	var n float64
	switch rk.valueType {
	case "int":
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %q is not an integer", ErrInvalidConfigValue, value)
		}
		n = float64(i)
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %q is not a number", ErrInvalidConfigValue, value)
		}
		n = f
	}
	if n < rk.min {
		return fmt.Errorf("%w: %q is below %g", ErrInvalidConfigValue, value, rk.min)
	}
	return nil
}

// SetRuntimeConfigValue stores an override. It takes effect for matches created after
// the next restart.
func SetRuntimeConfigValue(ctx context.Context, db *sqlx.DB, key, value, adminUsername string) error {
	rk, ok := runtimeKeys[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
	}
	if err := validateValue(rk, value); err != nil {
		return err
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO runtime_config (key, value, value_type, description, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_by = EXCLUDED.updated_by,
			updated_at = NOW()
	`, key, value, rk.valueType, rk.description, adminUsername)
	return err
}

// DeleteRuntimeConfigValue removes an override so the environment value applies again.
func DeleteRuntimeConfigValue(ctx context.Context, db *sqlx.DB, key string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM runtime_config WHERE key=$1`, key)
	return err
}

// ApplyRuntimeConfig copies overrides onto cfg. Unknown keys and values that fail
// validation are skipped.
func ApplyRuntimeConfig(configs []models.RuntimeConfig, cfg *config.Config) int {
	applied := 0
	setInt := func(dst *int, v string) {
		n, _ := strconv.Atoi(v)
		*dst = n
		applied++
	}
	setFloat := func(dst **float64, v string) {
		f, _ := strconv.ParseFloat(v, 64)
		*dst = &f
		applied++
	}

	for _, c := range configs {
		rk, ok := runtimeKeys[c.Key]
		if !ok {
			continue
		}
		if err := validateValue(rk, c.Value); err != nil {
			log.Printf("[CONFIG] Skipping runtime override %s: %v", c.Key, err)
			continue
		}
		switch c.Key {
		case "total_ends":
			setInt(&cfg.TotalEnds, c.Value)
		case "stones_per_team":
			setInt(&cfg.StonesPerTeam, c.Value)
		case "ai_think_delay_ms":
			setInt(&cfg.AIThinkDelayMs, c.Value)
		case "max_sim_ticks":
			setInt(&cfg.MaxSimTicks, c.Value)
		case "idle_forfeit_seconds":
			setInt(&cfg.IdleForfeitSeconds, c.Value)
		case "sheet_friction":
			setFloat(&cfg.SheetFriction, c.Value)
		case "sheet_restitution":
			setFloat(&cfg.SheetRestitution, c.Value)
		}
	}
	return applied
}

// LoadRuntimeConfig reads runtime_config and applies it to cfg
func LoadRuntimeConfig(ctx context.Context, db *sqlx.DB, cfg *config.Config) error {
	configs, err := GetAllRuntimeConfig(ctx, db)
	if err != nil {
		return err
	}
	n := ApplyRuntimeConfig(configs, cfg)
	log.Printf("[CONFIG] Applied %d runtime config overrides from database", n)
	return nil
}
