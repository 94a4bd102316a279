// Package config loads service settings from .env and the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DevJWTSecret is used when JWT_SECRET is unset. Never use it in production.
const DevJWTSecret = "dev-insecure-secret-change"

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	DBDSN             string        `mapstructure:"DB_DSN"`
	DBAutoMigrate     bool          `mapstructure:"DB_AUTO_MIGRATE"`
	JWTSecret         string        `mapstructure:"JWT_SECRET"`
	AdminPassword     string        `mapstructure:"ADMIN_PASSWORD"`
	UploadBase        string        `mapstructure:"UPLOAD_BASE"`
	KeepUploads       bool          `mapstructure:"KEEP_UPLOADS"`
	MaxUploadMB       int64         `mapstructure:"MAX_UPLOAD_MB"`
	OCRLang           string        `mapstructure:"OCR_LANG"`
	OCRPSM            int           `mapstructure:"OCR_PSM"`
	OCRWorkDir        string        `mapstructure:"OCR_WORK_DIR"`
	ClassifierURL     string        `mapstructure:"CLASSIFIER_URL"`
	ClassifierModel   string        `mapstructure:"CLASSIFIER_MODEL"`
	ClassifierLabels  string        `mapstructure:"CLASSIFIER_LABELS"`
	ClassifierTimeout time.Duration `mapstructure:"CLASSIFIER_TIMEOUT"`
}

var defaults = map[string]any{
	"PORT":               "8081",
	"ENV":                "production",
	"LOG_LEVEL":          "info",
	"DB_DSN":             "",
	"DB_AUTO_MIGRATE":    true,
	"JWT_SECRET":         "",
	"ADMIN_PASSWORD":     "",
	"UPLOAD_BASE":        "uploads",
	"KEEP_UPLOADS":       false,
	"MAX_UPLOAD_MB":      10,
	"OCR_LANG":           "eng",
	"OCR_PSM":            3,
	"OCR_WORK_DIR":       ".",
	"CLASSIFIER_URL":     "http://localhost:8501",
	"CLASSIFIER_MODEL":   "resnet50",
	"CLASSIFIER_LABELS":  "imagenet_class_index.json",
	"CLASSIFIER_TIMEOUT": "30s",
}

// Load reads ./.env when present, then the environment, which wins.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
		_ = v.BindEnv(k)
	}

	// a missing .env is fine
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", cfg.MaxUploadMB)
	}
	if cfg.ClassifierTimeout <= 0 {
		return nil, fmt.Errorf("CLASSIFIER_TIMEOUT must be positive, got %s", cfg.ClassifierTimeout)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Secret returns the JWT signing key, falling back to DevJWTSecret. The
// second value reports whether the fallback was used.
func (c *Config) Secret() ([]byte, bool) {
	if c.JWTSecret == "" {
		return []byte(DevJWTSecret), true
	}
	return []byte(c.JWTSecret), false
}

// OCRLanguages splits OCR_LANG on '+' or ',' ("eng+ind").
func (c *Config) OCRLanguages() []string {
	parts := strings.FieldsFunc(c.OCRLang, func(r rune) bool { return r == '+' || r == ',' })
	if len(parts) == 0 {
		return []string{"eng"}
	}
	return parts
}

// MaxUploadBytes converts MAX_UPLOAD_MB to bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// DBEnabled reports whether history and operator accounts are available.
func (c *Config) DBEnabled() bool {
	return c.DBDSN != ""
}
