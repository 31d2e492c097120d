package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/PabloGalante/quester-agent/internal/app/tasks"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

// Storage backend names.
const (
	BackendFile      = "file"
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// LLM backend names.
const (
	LLMGemini = "gemini"
	LLMVertex = "vertex"
)

type Config struct {
	Mode Mode   `mapstructure:"mode"`
	Port string `mapstructure:"port"`

	LLM     LLMConfig     `mapstructure:"llm"`
	GCP     GCPConfig     `mapstructure:"gcp"`
	Storage StorageConfig `mapstructure:"storage"`
	Tasks   TasksConfig   `mapstructure:"tasks"`
	Log     LogConfig     `mapstructure:"log"`
}

type LLMConfig struct {
	Backend string        `mapstructure:"backend"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
	UseMock bool          `mapstructure:"use_mock"`
}

type GCPConfig struct {
	Project  string `mapstructure:"project"`
	Location string `mapstructure:"location"`
}

type StorageConfig struct {
	Backend       string `mapstructure:"backend"` // sessions: file, memory or firestore
	DraftsBackend string `mapstructure:"drafts_backend"`
	DataDir       string `mapstructure:"data_dir"`
	SQLitePath    string `mapstructure:"sqlite_path"`
}

type TasksConfig struct {
	Retention     time.Duration `mapstructure:"retention"`
	SweepSchedule string        `mapstructure:"sweep_schedule"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeLocal))
	v.SetDefault("port", "8080")

	v.SetDefault("llm.backend", LLMGemini)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.timeout", 15*time.Second)

	v.SetDefault("gcp.project", "")
	v.SetDefault("gcp.location", "us-central1")

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.drafts_backend", BackendFile)
	v.SetDefault("storage.data_dir", "sessions")
	v.SetDefault("storage.sqlite_path", "sessions/drafts.db")

	v.SetDefault("tasks.retention", 30*time.Minute)
	v.SetDefault("tasks.sweep_schedule", "@every 5m")

	v.SetDefault("log.level", "info")
}

// Load reads defaults, then the optional YAML file at path, then QUESTER_*
// environment variables (llm.api_key is QUESTER_LLM_API_KEY). The plain PORT
// variable is honored for container platforms.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("QUESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("port", "QUESTER_PORT", "PORT")
	_ = v.BindEnv("llm.use_mock")
	_ = v.BindEnv("llm.api_key", "QUESTER_LLM_API_KEY", "GEMINI_API_KEY")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Mode = Mode(strings.ToLower(strings.TrimSpace(string(cfg.Mode))))
	// The mock model is the default only in local mode.
	if !v.IsSet("llm.use_mock") {
		cfg.LLM.UseMock = cfg.Mode == ModeLocal
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Mode {
	case ModeLocal:
	case ModeGCP:
		if c.GCP.Project == "" {
			errs = append(errs, errors.New("gcp.project must be set in gcp mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q (want local or gcp)", c.Mode))
	}

	switch c.LLM.Backend {
	case LLMGemini:
		if !c.LLM.UseMock && c.LLM.APIKey == "" {
			errs = append(errs, errors.New("llm.api_key is required for the gemini backend"))
		}
	case LLMVertex:
		if !c.LLM.UseMock && c.GCP.Project == "" {
			errs = append(errs, errors.New("gcp.project is required for the vertex backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm.backend %q", c.LLM.Backend))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("llm.timeout must be positive, got %s", c.LLM.Timeout))
	}

	switch c.Storage.Backend {
	case BackendFile, BackendMemory, BackendFirestore:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}
	switch c.Storage.DraftsBackend {
	case BackendFile, BackendMemory, BackendSQLite, BackendFirestore:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.drafts_backend %q", c.Storage.DraftsBackend))
	}
	if c.usesFirestore() && c.GCP.Project == "" {
		errs = append(errs, errors.New("gcp.project is required for firestore storage"))
	}

	if c.Tasks.Retention <= 0 {
		errs = append(errs, fmt.Errorf("tasks.retention must be positive, got %s", c.Tasks.Retention))
	}
	if err := tasks.ValidateSchedule(c.Tasks.SweepSchedule); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) usesFirestore() bool {
	return c.Storage.Backend == BackendFirestore || c.Storage.DraftsBackend == BackendFirestore
}
