package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/catdog/internal/dataset"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Presenters.
const (
	PresenterTerminal = "terminal"
	PresenterHTTP     = "http"
)

// Log formats.
const (
	LogFormatAuto = "auto"
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Session SessionConfig     `yaml:"session"`
	Buckets BucketsConfig     `yaml:"buckets"`
	Journal JournalConfig     `yaml:"journal"`
	HTTP    HTTPConfig        `yaml:"http"`
	Auth    AuthConfig        `yaml:"auth"`
	Dataset DatasetConfig     `yaml:"dataset"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Session, &c.Buckets, &c.Journal, &c.HTTP, &c.Auth, &c.Dataset,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	for name, dir := range map[string]string{"cat": c.Buckets.Cat, "dog": c.Buckets.Dog} {
		overlap, err := overlaps(c.Session.Input, dir)
		if err != nil {
			return err
		}
		if overlap {
			return fmt.Errorf("buckets: %s directory %s overlaps session input %s", name, dir, c.Session.Input)
		}
	}
	return nil
}

// overlaps reports whether a and b name the same directory or one lies
// inside the other.
func overlaps(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", a, err)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", b, err)
	}
	return within(absA, absB) || within(absB, absA), nil
}

func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatAuto
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatAuto, LogFormatText, LogFormatJSON)),
	)
}

// SessionConfig holds the annotation session settings.
type SessionConfig struct {
	Input            string   `yaml:"input"`
	Ledger           string   `yaml:"ledger"`
	Extensions       []string `yaml:"extensions"`
	Presenter        string   `yaml:"presenter"`
	ReconcileOnStart bool     `yaml:"reconcile_on_start"`
	Watch            bool     `yaml:"watch"`
}

// Validate validates the session configuration.
func (c *SessionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Input, validation.Required),
		validation.Field(&c.Ledger, validation.Required),
		validation.Field(&c.Presenter, validation.Required, validation.In(PresenterTerminal, PresenterHTTP)),
	)
}

// BucketsConfig holds the per-label destination directories.
type BucketsConfig struct {
	Cat     string `yaml:"cat"`
	Dog     string `yaml:"dog"`
	Retries uint64 `yaml:"retries"`
}

// Validate validates the buckets configuration.
func (c *BucketsConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Cat, validation.Required),
		validation.Field(&c.Dog, validation.Required),
		validation.Field(&c.Retries, validation.Max(uint64(10))),
	); err != nil {
		return err
	}
	overlap, err := overlaps(c.Cat, c.Dog)
	if err != nil {
		return err
	}
	if overlap {
		return errors.New("buckets: cat and dog must be separate directories")
	}
	return nil
}

// JournalConfig holds the write-ahead journal location. Completed intents
// older than Retention are pruned at session start; zero keeps them all.
type JournalConfig struct {
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"`
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Retention, validation.Min(time.Duration(0))),
	)
}

// HTTPConfig holds the browser surface's listen address. Only loopback
// hosts are accepted.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.Required, validation.By(loopbackHost)),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

func loopbackHost(value any) error {
	host, _ := value.(string)
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("must be a loopback address, got %q", host)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// DatasetConfig holds the batch tool's outputs and split ratios.
type DatasetConfig struct {
	OutputDir  string  `yaml:"output_dir"`
	TrainRatio float64 `yaml:"train_ratio"`
	ValRatio   float64 `yaml:"val_ratio"`
	Seed       uint64  `yaml:"seed"`
	ReportPath string  `yaml:"report_path"`
}

// Ratios returns the configured split ratios.
func (c *DatasetConfig) Ratios() dataset.Ratios {
	return dataset.Ratios{Train: c.TrainRatio, Val: c.ValRatio}
}

// Validate validates the dataset configuration.
func (c *DatasetConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.OutputDir, validation.Required),
		validation.Field(&c.ReportPath, validation.Required),
	); err != nil {
		return err
	}
	if err := c.Ratios().Validate(); err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatAuto,
		},
		Session: SessionConfig{
			Input:     "./data/raw_images",
			Ledger:    "./data/labels.csv",
			Presenter: PresenterTerminal,
			Watch:     true,
		},
		Buckets: BucketsConfig{
			Cat:     "./data/cats",
			Dog:     "./data/dogs",
			Retries: 2,
		},
		Journal: JournalConfig{
			Path:      "./data/journal.db",
			Retention: 30 * 24 * time.Hour,
		},
		HTTP: HTTPConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Dataset: DatasetConfig{
			OutputDir:  "./data",
			TrainRatio: dataset.DefaultRatios.Train,
			ValRatio:   dataset.DefaultRatios.Val,
			ReportPath: "./data/annotation_report.json",
		},
	}
}
