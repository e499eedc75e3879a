package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"ceto"`
	HTTPPort    string `envconfig:"HTTP_PORT" default:"8080"`
	PostgresDSN string `envconfig:"POSTGRES_DSN"`
	AutoMigrate bool   `envconfig:"AUTO_MIGRATE" default:"true"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	EventBus           string `envconfig:"EVENT_BUS" default:"memory"`
	RedisAddr          string `envconfig:"REDIS_ADDR"`
	RedisChannelPrefix string `envconfig:"REDIS_CHANNEL_PREFIX" default:"ceto"`

	PolicyFile string `envconfig:"MODERATION_POLICY_FILE"`

	SweepSchedule     string `envconfig:"SWEEP_SCHEDULE" default:"@every 1m"`
	ReconcileSchedule string `envconfig:"RECONCILE_SCHEDULE" default:"@every 30s"`
	OutboxSchedule    string `envconfig:"OUTBOX_SCHEDULE" default:"@every 2s"`
	AuditSchedule     string `envconfig:"AUDIT_SCHEDULE" default:"@hourly"`

	Policy
}

// Policy holds the moderation rules. Environment values can be overridden by
// the YAML file named in MODERATION_POLICY_FILE.
type Policy struct {
	EndorseThreshold        int           `envconfig:"ENDORSE_THRESHOLD" default:"3" yaml:"endorse_threshold"`
	ThresholdMode           string        `envconfig:"THRESHOLD_MODE" default:"fixed" yaml:"threshold_mode"`
	ThresholdPopularityStep int           `envconfig:"THRESHOLD_POPULARITY_STEP" default:"10" yaml:"threshold_popularity_step"`
	ThresholdMax            int           `envconfig:"THRESHOLD_MAX" default:"10" yaml:"threshold_max"`
	RejectThreshold         int           `envconfig:"REJECT_THRESHOLD" default:"0" yaml:"reject_threshold"`
	SuggestionTTL           time.Duration `envconfig:"SUGGESTION_TTL" default:"336h" yaml:"suggestion_ttl"`

	KarmaAuthorAccept   int64 `envconfig:"KARMA_AUTHOR_ACCEPT" default:"10" yaml:"karma_author_accept"`
	KarmaEndorseAccept  int64 `envconfig:"KARMA_ENDORSE_ACCEPT" default:"2" yaml:"karma_endorse_accept"`
	KarmaAuthorReject   int64 `envconfig:"KARMA_AUTHOR_REJECT" default:"5" yaml:"karma_author_reject"`
	KarmaAuthorWithdraw int64 `envconfig:"KARMA_AUTHOR_WITHDRAW" default:"0" yaml:"karma_author_withdraw"`

	TrustContributorMin int64 `envconfig:"TRUST_CONTRIBUTOR_MIN" default:"10" yaml:"trust_contributor_min"`
	TrustTrustedMin     int64 `envconfig:"TRUST_TRUSTED_MIN" default:"50" yaml:"trust_trusted_min"`
	TrustStewardMin     int64 `envconfig:"TRUST_STEWARD_MIN" default:"200" yaml:"trust_steward_min"`

	TastingNoteMode string `envconfig:"TASTING_NOTE_MODE" default:"pipeline" yaml:"tasting_note_mode"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config from env: %w", err)
	}
	if path := strings.TrimSpace(cfg.PolicyFile); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read moderation policy file: %w", err)
		}
		if err := cfg.Policy.Overlay(raw); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Overlay applies a YAML document on top of the current values. Keys missing
// from the document keep their previous value.
func (p *Policy) Overlay(raw []byte) error {
	if err := yaml.Unmarshal(raw, p); err != nil {
		return fmt.Errorf("parse moderation policy: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.EventBus) {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.RedisAddr) == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when EVENT_BUS=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("EVENT_BUS must be memory or redis, got %q", c.EventBus))
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat))
	}
	if err := c.Policy.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (p Policy) Validate() error {
	var errs []error
	if p.EndorseThreshold < 1 {
		errs = append(errs, errors.New("ENDORSE_THRESHOLD must be at least 1"))
	}
	switch strings.ToLower(strings.TrimSpace(p.ThresholdMode)) {
	case "fixed":
	case "popularity":
		if p.ThresholdPopularityStep < 1 {
			errs = append(errs, errors.New("THRESHOLD_POPULARITY_STEP must be at least 1"))
		}
		if p.ThresholdMax < p.EndorseThreshold {
			errs = append(errs, errors.New("THRESHOLD_MAX must not be below ENDORSE_THRESHOLD"))
		}
	default:
		errs = append(errs, fmt.Errorf("THRESHOLD_MODE must be fixed or popularity, got %q", p.ThresholdMode))
	}
	if p.RejectThreshold < 0 {
		errs = append(errs, errors.New("REJECT_THRESHOLD must not be negative"))
	}
	if p.SuggestionTTL <= 0 {
		errs = append(errs, errors.New("SUGGESTION_TTL must be positive"))
	}
	if p.KarmaAuthorAccept < 0 || p.KarmaEndorseAccept < 0 || p.KarmaAuthorReject < 0 || p.KarmaAuthorWithdraw < 0 {
		errs = append(errs, errors.New("karma deltas are magnitudes and must not be negative"))
	}
	if p.TrustContributorMin <= 0 || p.TrustTrustedMin <= p.TrustContributorMin || p.TrustStewardMin <= p.TrustTrustedMin {
		errs = append(errs, errors.New("TRUST_* minimums must be positive and strictly increasing"))
	}
	switch strings.ToLower(strings.TrimSpace(p.TastingNoteMode)) {
	case "pipeline", "immutable":
	default:
		errs = append(errs, fmt.Errorf("TASTING_NOTE_MODE must be pipeline or immutable, got %q", p.TastingNoteMode))
	}
	return errors.Join(errs...)
}
