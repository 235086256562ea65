package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/studioledger/internal/eventmerge"
	"github.com/smallbiznis/studioledger/internal/normalize"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DashboardConfig tunes how snapshots are read and aggregated. It is
// reloaded from dashboard.yml while the process runs.
type DashboardConfig struct {
	Currency             normalize.CurrencyDescriptor `mapstructure:"currency"`
	Timezone             string                       `mapstructure:"timezone"`
	DateLayouts          []string                     `mapstructure:"dateLayouts"`
	PhoneRegion          string                       `mapstructure:"phoneRegion"`
	UpcomingWindowMonths int                          `mapstructure:"upcomingWindowMonths"`
	RevenueMonths        int                          `mapstructure:"revenueMonths"`
	RecentLimit          int                          `mapstructure:"recentLimit"`
	DedupKey             string                       `mapstructure:"dedupKey"`
	RefreshInterval      time.Duration                `mapstructure:"refreshInterval"`
	FetchTimeout         time.Duration                `mapstructure:"fetchTimeout"`
	CacheTTL             time.Duration                `mapstructure:"cacheTTL"`
}

func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		Currency:             normalize.INR(),
		Timezone:             "Asia/Kolkata",
		DateLayouts:          append([]string(nil), normalize.DefaultDateLayouts...),
		PhoneRegion:          "IN",
		UpcomingWindowMonths: 1,
		RevenueMonths:        6,
		RecentLimit:          5,
		DedupKey:             eventmerge.KeyNameDate,
		RefreshInterval:      5 * time.Minute,
		FetchTimeout:         30 * time.Second,
		CacheTTL:             15 * time.Minute,
	}
}

// Location resolves Timezone, falling back to UTC.
func (c DashboardConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil || c.Timezone == "" {
		return time.UTC
	}
	return loc
}

type DashboardConfigHolder struct {
	current atomic.Value // holds DashboardConfig
}

// NewDashboardConfigHolder reads dashboard.yml from /etc/studioledger or the
// working directory. A missing file leaves the defaults in place.
func NewDashboardConfigHolder(log *zap.Logger) (*DashboardConfigHolder, error) {
	v := viper.New()
	v.SetConfigName("dashboard")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/studioledger")
	v.AddConfigPath(".")
	return loadDashboardConfig(v, log)
}

// LoadDashboardConfigFile reads the given file; it must exist.
func LoadDashboardConfigFile(path string, log *zap.Logger) (*DashboardConfigHolder, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return loadDashboardConfig(v, log)
}

// NewStaticDashboardConfig holds cfg without a backing file.
func NewStaticDashboardConfig(cfg DashboardConfig) *DashboardConfigHolder {
	holder := &DashboardConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func loadDashboardConfig(v *viper.Viper, log *zap.Logger) (*DashboardConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.dashboard")

	v.SetEnvPrefix("STUDIOLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDashboardDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		log.Info("dashboard config file not found, using defaults")
	}

	cfg, err := decodeDashboardConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticDashboardConfig(cfg)
	if v.ConfigFileUsed() == "" {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeDashboardConfig(v)
		if err != nil {
			log.Warn("dashboard config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("dashboard config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *DashboardConfigHolder) Get() DashboardConfig {
	return h.current.Load().(DashboardConfig)
}

func setDashboardDefaults(v *viper.Viper) {
	d := DefaultDashboardConfig()
	v.SetDefault("dashboard.currency.code", d.Currency.Code)
	v.SetDefault("dashboard.currency.symbols", d.Currency.Symbols)
	v.SetDefault("dashboard.currency.groupSeparator", d.Currency.GroupSeparator)
	v.SetDefault("dashboard.currency.decimalSeparator", d.Currency.DecimalSeparator)
	v.SetDefault("dashboard.timezone", d.Timezone)
	v.SetDefault("dashboard.dateLayouts", d.DateLayouts)
	v.SetDefault("dashboard.phoneRegion", d.PhoneRegion)
	v.SetDefault("dashboard.upcomingWindowMonths", d.UpcomingWindowMonths)
	v.SetDefault("dashboard.revenueMonths", d.RevenueMonths)
	v.SetDefault("dashboard.recentLimit", d.RecentLimit)
	v.SetDefault("dashboard.dedupKey", d.DedupKey)
	v.SetDefault("dashboard.refreshInterval", d.RefreshInterval)
	v.SetDefault("dashboard.fetchTimeout", d.FetchTimeout)
	v.SetDefault("dashboard.cacheTTL", d.CacheTTL)
}

type dashboardFile struct {
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// decodeDashboardConfig reads the merged settings, so keys absent from the
// file fall back to their defaults on load and on every reload.
func decodeDashboardConfig(v *viper.Viper) (DashboardConfig, error) {
	var file dashboardFile
	if err := v.Unmarshal(&file); err != nil {
		return DashboardConfig{}, err
	}
	if err := validateDashboardConfig(file.Dashboard); err != nil {
		return DashboardConfig{}, err
	}
	return file.Dashboard, nil
}

func validateDashboardConfig(cfg DashboardConfig) error {
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("dashboard.timezone: %w", err)
	}
	if cfg.Currency.DecimalSeparator == "" {
		return errors.New("dashboard.currency.decimalSeparator cannot be empty")
	}
	if cfg.Currency.GroupSeparator == cfg.Currency.DecimalSeparator {
		return errors.New("dashboard.currency separators must differ")
	}
	if cfg.UpcomingWindowMonths <= 0 {
		return errors.New("dashboard.upcomingWindowMonths must be positive")
	}
	if cfg.RevenueMonths <= 0 {
		return errors.New("dashboard.revenueMonths must be positive")
	}
	if cfg.RecentLimit <= 0 {
		return errors.New("dashboard.recentLimit must be positive")
	}
	switch cfg.DedupKey {
	case eventmerge.KeyNameDate, eventmerge.KeyRecordID:
	default:
		return fmt.Errorf("dashboard.dedupKey %q is not one of %s, %s", cfg.DedupKey, eventmerge.KeyNameDate, eventmerge.KeyRecordID)
	}
	if cfg.RefreshInterval <= 0 {
		return errors.New("dashboard.refreshInterval must be positive")
	}
	if cfg.FetchTimeout <= 0 {
		return errors.New("dashboard.fetchTimeout must be positive")
	}
	return nil
}
