package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/voidsim/skirmish/pilot"
)

// Config carries the battle-server settings plus the pilot tuning. Defaults
// cover everything; a skirmish.yaml in the config directory overrides
// individual keys.
type Config struct {
	TickInterval time.Duration `mapstructure:"tickInterval"`

	// RecenterDistance is how far the reference craft may drift from the
	// origin before the world is re-origined around it.
	RecenterDistance float64 `mapstructure:"recenterDistance"`

	// WingSize is the number of fighters spawned per team at startup.
	WingSize int `mapstructure:"wingSize"`

	// SnapshotEvery is how many ticks pass between spectator broadcasts.
	SnapshotEvery int `mapstructure:"snapshotEvery"`

	Seed int64 `mapstructure:"seed"`

	Pilot pilot.Config `mapstructure:"pilot"`
}

// LoadConfig reads skirmish.yaml from configDir over the built-in defaults.
// A missing file is fine; a malformed one is not.
func LoadConfig(configDir string) (Config, error) {
	v := viper.New()

	v.SetDefault("tickInterval", "50ms")
	v.SetDefault("recenterDistance", 50000.0)
	v.SetDefault("wingSize", 4)
	v.SetDefault("snapshotEvery", 2)
	v.SetDefault("seed", 1)

	def := pilot.DefaultConfig()
	v.SetDefault("pilot.turnThresholdAngle", def.TurnThresholdAngle)
	v.SetDefault("pilot.turnAccelDuration", def.TurnAccelDuration)
	v.SetDefault("pilot.minAccel", def.MinAccel)
	v.SetDefault("pilot.facingAngle", def.FacingAngle)
	v.SetDefault("pilot.fireSizeFactor", def.FireSizeFactor)
	v.SetDefault("pilot.baseMaxDistanceFactor", def.BaseMaxDistanceFactor)
	v.SetDefault("pilot.minMaxDistanceFactor", def.MinMaxDistanceFactor)
	v.SetDefault("pilot.maxDistanceFactorStep", def.MaxDistanceFactorStep)
	v.SetDefault("pilot.closeInInterval", def.CloseInInterval)
	v.SetDefault("pilot.minDistanceFraction", def.MinDistanceFraction)
	v.SetDefault("pilot.chargeTriggerNonTargetHits", def.ChargeTriggerNonTargetHits)
	v.SetDefault("pilot.chargeTriggerMissCount", def.ChargeTriggerMissCount)
	v.SetDefault("pilot.chargeSpeedFactor", def.ChargeSpeedFactor)
	v.SetDefault("pilot.collisionAvoidSizeFactor", def.CollisionAvoidSizeFactor)
	v.SetDefault("pilot.collisionAvoidTime", def.CollisionAvoidTime)
	v.SetDefault("pilot.arrivalRadius", def.ArrivalRadius)
	v.SetDefault("pilot.evasiveSpeedFactor", def.EvasiveSpeedFactor)
	v.SetDefault("pilot.evasiveManeuverDuration", def.EvasiveManeuverDuration)
	v.SetDefault("pilot.rollCooldownMult", def.RollCooldownMult)
	v.SetDefault("pilot.rollDuration", def.RollDuration)
	v.SetDefault("pilot.blockingToleranceFactor", def.BlockingToleranceFactor)

	v.SetConfigName("skirmish")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}
