package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	TierInside  = "inside"
	TierOutside = "outside"
)

// PricingConfig maps a seating location to the catalog price tier charged there.
type PricingConfig struct {
	// LocationTiers is keyed by the ticket location code (dining_room, terrace...).
	LocationTiers map[string]string `mapstructure:"locationTiers"`
	DefaultTier   string            `mapstructure:"defaultTier"`
	// DefaultTaxPercentage applies to products created without an explicit rate.
	DefaultTaxPercentage int `mapstructure:"defaultTaxPercentage"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		LocationTiers: map[string]string{
			"dining_room": TierInside,
			"terrace":     TierOutside,
		},
		DefaultTier:          TierOutside,
		DefaultTaxPercentage: 21,
	}
}

// TierFor returns the price tier configured for the location code.
func (c PricingConfig) TierFor(location string) string {
	if tier, ok := c.LocationTiers[strings.ToLower(strings.TrimSpace(location))]; ok {
		return tier
	}
	return c.DefaultTier
}

type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig
}

// NewStaticPricingConfigHolder wraps a fixed configuration without watching any file.
func NewStaticPricingConfigHolder(cfg PricingConfig) *PricingConfigHolder {
	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewPricingConfigHolder(log *zap.Logger) (*PricingConfigHolder, error) {
	log = log.Named("pricing-config")
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/innkeeper")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INNKEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPricingConfig()
	v.SetDefault("pricing.locationTiers", defaults.LocationTiers)
	v.SetDefault("pricing.defaultTier", defaults.DefaultTier)
	v.SetDefault("pricing.defaultTaxPercentage", defaults.DefaultTaxPercentage)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg PricingConfig
	if err := v.UnmarshalKey("pricing", &cfg); err != nil {
		return nil, err
	}
	if err := validatePricingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticPricingConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingConfig
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validatePricingConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *PricingConfigHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

func validatePricingConfig(cfg PricingConfig) error {
	if !validTier(cfg.DefaultTier) {
		return fmt.Errorf("pricing.defaultTier %q is not a known tier", cfg.DefaultTier)
	}
	for location, tier := range cfg.LocationTiers {
		if !validTier(tier) {
			return fmt.Errorf("pricing.locationTiers.%s: unknown tier %q", location, tier)
		}
	}
	if cfg.DefaultTaxPercentage < 0 || cfg.DefaultTaxPercentage > 100 {
		return errors.New("pricing.defaultTaxPercentage must be between 0 and 100")
	}
	return nil
}

func validTier(tier string) bool {
	return tier == TierInside || tier == TierOutside
}
