package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingConfig holds the tax and ledger settings that may change without a restart.
type BillingConfig struct {
	IVARate              float64       `mapstructure:"ivaRate"`
	RetentionYears       int           `mapstructure:"retentionYears"`
	DefaultDueDays       int           `mapstructure:"defaultDueDays"`
	OverdueSweepSchedule string        `mapstructure:"overdueSweepSchedule"`
	TimeZone             string        `mapstructure:"timeZone"`
	Notification         Notification  `mapstructure:"notification"`
	Clinic               ClinicProfile `mapstructure:"clinic"`
}

type Notification struct {
	MaxRetries     uint          `mapstructure:"maxRetries"`
	AttemptTimeout time.Duration `mapstructure:"attemptTimeout"`
	QueueSize      int           `mapstructure:"queueSize"`
	Workers        int           `mapstructure:"workers"`
	SMSEnabled     bool          `mapstructure:"smsEnabled"`
}

// ClinicProfile is the issuer data printed on emails and PDFs.
type ClinicProfile struct {
	Name    string `mapstructure:"name"`
	RUT     string `mapstructure:"rut"`
	Address string `mapstructure:"address"`
	Email   string `mapstructure:"email"`
	Phone   string `mapstructure:"phone"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		IVARate:              0.19,
		RetentionYears:       15,
		DefaultDueDays:       0,
		OverdueSweepSchedule: "@every 1h",
		TimeZone:             "America/Santiago",
		Notification: Notification{
			MaxRetries:     3,
			AttemptTimeout: 10 * time.Second,
			QueueSize:      256,
			Workers:        2,
		},
		Clinic: ClinicProfile{
			Name: "Centro de Kinesiología",
		},
	}
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

// NewStaticBillingConfig returns a holder that never reloads.
func NewStaticBillingConfig(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewBillingConfigHolder(log *zap.Logger) (*BillingConfigHolder, error) {
	log = log.Named("billing.config")
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/kinesio")
	v.AddConfigPath(".")

	v.SetEnvPrefix("KINESIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.ivaRate", defaults.IVARate)
	v.SetDefault("billing.retentionYears", defaults.RetentionYears)
	v.SetDefault("billing.defaultDueDays", defaults.DefaultDueDays)
	v.SetDefault("billing.overdueSweepSchedule", defaults.OverdueSweepSchedule)
	v.SetDefault("billing.timeZone", defaults.TimeZone)
	v.SetDefault("billing.notification.maxRetries", defaults.Notification.MaxRetries)
	v.SetDefault("billing.notification.attemptTimeout", defaults.Notification.AttemptTimeout)
	v.SetDefault("billing.notification.queueSize", defaults.Notification.QueueSize)
	v.SetDefault("billing.notification.workers", defaults.Notification.Workers)
	v.SetDefault("billing.clinic.name", defaults.Clinic.Name)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
		log.Info("billing config file not found, using defaults")
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := ValidateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticBillingConfig(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := ValidateBillingConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func ValidateBillingConfig(cfg BillingConfig) error {
	if cfg.IVARate < 0 || cfg.IVARate >= 1 {
		return errors.New("billing.ivaRate must be in [0, 1)")
	}
	if cfg.RetentionYears <= 0 {
		return errors.New("billing.retentionYears must be positive")
	}
	if cfg.DefaultDueDays < 0 {
		return errors.New("billing.defaultDueDays cannot be negative")
	}
	if strings.TrimSpace(cfg.OverdueSweepSchedule) == "" {
		return errors.New("billing.overdueSweepSchedule cannot be empty")
	}
	if _, err := time.LoadLocation(cfg.TimeZone); err != nil || cfg.TimeZone == "" {
		return errors.New("billing.timeZone must be an IANA time zone")
	}
	if cfg.Notification.AttemptTimeout <= 0 {
		return errors.New("billing.notification.attemptTimeout must be positive")
	}
	if cfg.Notification.Workers < 1 {
		return errors.New("billing.notification.workers must be at least 1")
	}
	if cfg.Notification.QueueSize < 1 {
		return errors.New("billing.notification.queueSize must be at least 1")
	}
	return nil
}

// Location resolves TimeZone, falling back to UTC for an unset or unknown zone.
func (c BillingConfig) Location() *time.Location {
	if c.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
