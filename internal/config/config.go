package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Signal names used as keys in ScoringConfig.Weights.
const (
	SignalValidFingerprint = "valid_fingerprint"
	SignalBrowserChrome    = "browser_chrome"
	SignalPermissionsAPI   = "permissions_api"
	SignalBatteryAPI       = "battery_api"
	SignalConnectionAPI    = "connection_api"
	SignalMediaDevices     = "media_devices"
	SignalNotificationAPI  = "notification_api"
	SignalNaturalMovement  = "natural_movement"
	SignalKeystroke        = "keystroke"
	SignalAcceleration     = "acceleration"
	SignalInstantClick     = "instant_click"
	SignalDeliberateClick  = "deliberate_click"
)

type Config struct {
	Scoring ScoringConfig `yaml:"scoring"`
	Server  ServerConfig  `yaml:"server"`
	Redis   RedisConfig   `yaml:"redis"`
	Token   TokenConfig   `yaml:"token"`
	GeoIP   GeoIPConfig   `yaml:"geoip"`
	Audit   AuditConfig   `yaml:"audit"`
	Logger  LoggerConfig  `yaml:"logger"`
}

type ScoringConfig struct {
	Threshold int            `yaml:"threshold"`
	Weights   map[string]int `yaml:"weights"`

	// Gesture timing windows, measured from page load.
	InstantClickBelow time.Duration `yaml:"instant_click_below"`
	DeliberateAfter   time.Duration `yaml:"deliberate_after"`
	DeliberateBefore  time.Duration `yaml:"deliberate_before"`

	SettleMin     time.Duration `yaml:"settle_min"`
	SettleMax     time.Duration `yaml:"settle_max"`
	FollowUpDelay time.Duration `yaml:"follow_up_delay"`

	PointerWindow      int           `yaml:"pointer_window"`
	MovementThreshold  int           `yaml:"movement_threshold"`
	KinematicInterval  time.Duration `yaml:"kinematic_interval"`
	KinematicTolerance float64       `yaml:"kinematic_tolerance"`
}

type ServerConfig struct {
	ListenAddr string        `yaml:"listen_addr"`
	StaticDir  string        `yaml:"static_dir"`
	Backend    string        `yaml:"backend"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	RateLimit  RateLimit     `yaml:"rate_limit"`
	// AdminKey guards the decision audit endpoint. Empty disables it.
	AdminKey string `yaml:"admin_key"`
}

type RateLimit struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type TokenConfig struct {
	Secret     string        `yaml:"secret"`
	TTL        time.Duration `yaml:"ttl"`
	CookieName string        `yaml:"cookie_name"`
}

type GeoIPConfig struct {
	DBPath string `yaml:"db_path"`
}

type AuditConfig struct {
	DBPath string `yaml:"db_path"`
}

type LoggerConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	ServiceName string `yaml:"service_name"`
	AddSource   bool   `yaml:"add_source"`
	LogFile     string `yaml:"log_file"`
	MaxSize     int    `yaml:"max_size"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAge      int    `yaml:"max_age"`
	Compress    bool   `yaml:"compress"`
}

func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		Threshold: 100,
		Weights: map[string]int{
			SignalValidFingerprint: 30,
			SignalBrowserChrome:    10,
			SignalPermissionsAPI:   10,
			SignalBatteryAPI:       10,
			SignalConnectionAPI:    5,
			SignalMediaDevices:     5,
			SignalNotificationAPI:  5,
			SignalNaturalMovement:  15,
			SignalKeystroke:        2,
			SignalAcceleration:     5,
			SignalInstantClick:     -50,
			SignalDeliberateClick:  20,
		},
		InstantClickBelow:  500 * time.Millisecond,
		DeliberateAfter:    1000 * time.Millisecond,
		DeliberateBefore:   30 * time.Second,
		SettleMin:          2 * time.Second,
		SettleMax:          4 * time.Second,
		FollowUpDelay:      time.Second,
		PointerWindow:      50,
		MovementThreshold:  5,
		KinematicInterval:  time.Second,
		KinematicTolerance: 1,
	}
}

func DefaultConfig() *Config {
	return &Config{
		Scoring: DefaultScoring(),
		Server: ServerConfig{
			ListenAddr: ":8080",
			StaticDir:  "assets",
			SessionTTL: 15 * time.Minute,
			RateLimit: RateLimit{
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		Token: TokenConfig{
			TTL:        24 * time.Hour,
			CookieName: "checkpoint_pass",
		},
		Audit: AuditConfig{
			DBPath: "checkpoint.db",
		},
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "checkpoint",
			MaxSize:     100,
			MaxBackups:  3,
			MaxAge:      28,
		},
	}
}

// Weight returns the configured delta for a signal, 0 when unset.
func (s ScoringConfig) Weight(signal string) int {
	return s.Weights[signal]
}

func (c *Config) Validate() error {
	s := c.Scoring
	if s.SettleMin <= 0 || s.SettleMax <= s.SettleMin {
		return fmt.Errorf("scoring: settle window [%s, %s) is empty", s.SettleMin, s.SettleMax)
	}
	if s.PointerWindow < 3 {
		return errors.New("scoring: pointer_window must hold at least 3 samples")
	}
	if s.KinematicInterval <= 0 {
		return errors.New("scoring: kinematic_interval must be positive")
	}
	if s.DeliberateAfter >= s.DeliberateBefore {
		return errors.New("scoring: deliberate_after must be below deliberate_before")
	}
	if c.Server.SessionTTL <= 0 {
		return errors.New("server: session_ttl must be positive")
	}
	return nil
}

// LoadConfig reads path over the defaults. On failure the defaults are
// returned together with the error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
