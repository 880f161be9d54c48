// Package config builds the bridge configuration once at startup.
// Values come from defaults, then an optional YAML file, then the environment.
// Components receive the resulting struct and never read the environment themselves.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mediabridge/internal/pkg/errors"
	"mediabridge/internal/pkg/logger"
	"mediabridge/internal/worker/util"
)

// Storage modes for returning artifacts.
const (
	StorageInline  = "inline"
	StorageLocalFS = "localfs"
	StorageGDrive  = "gdrive"
)

type Engine struct {
	Host            string `yaml:"host"`
	ProbeAttempts   int    `yaml:"probe_attempts"`
	ProbeIntervalMS int    `yaml:"probe_interval_ms"`
	PollAttempts    int    `yaml:"poll_attempts"`
	PollIntervalMS  int    `yaml:"poll_interval_ms"`
	// AbortOnProbeFailure changes the historical behaviour, where a failed
	// probe is only logged and submission is attempted anyway.
	AbortOnProbeFailure bool `yaml:"abort_on_probe_failure"`
}

type Pipeline struct {
	Path             string `yaml:"path"`
	SourceNodeID     string `yaml:"source_node_id"`
	SourceField      string `yaml:"source_field"`
	DefaultSourceURL string `yaml:"default_source_url"`
}

type Output struct {
	Dir           string `yaml:"dir"`
	ArtifactField string `yaml:"artifact_field"`
}

type Storage struct {
	Provider      string `yaml:"provider"`
	LocalRoot     string `yaml:"local_root"`
	PublicBaseURL string `yaml:"public_base_url"`
	GDrive        GDrive `yaml:"gdrive"`
}

type GDrive struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	FolderID     string `yaml:"folder_id"`
}

type Queue struct {
	RedisAddr        string `yaml:"redis_addr"`
	Name             string `yaml:"name"`
	ResultTTLSeconds int    `yaml:"result_ttl_seconds"`
}

type Runner struct {
	HTTPPort           string   `yaml:"http_port"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	// RefreshWorker is echoed in every job result as refresh_worker.
	RefreshWorker bool `yaml:"refresh_worker"`
}

type Config struct {
	Engine      Engine        `yaml:"engine"`
	Pipeline    Pipeline      `yaml:"pipeline"`
	Output      Output        `yaml:"output"`
	Storage     Storage       `yaml:"storage"`
	Queue       Queue         `yaml:"queue"`
	Runner      Runner        `yaml:"runner"`
	DatabaseURL string        `yaml:"database_url"`
	Log         logger.Config `yaml:"log"`
}

// Default mirrors the defaults of the serverless image the bridge replaces.
func Default() Config {
	return Config{
		Engine: Engine{
			Host:            "127.0.0.1:8188",
			ProbeAttempts:   500,
			ProbeIntervalMS: 50,
			PollAttempts:    500,
			PollIntervalMS:  250,
		},
		Pipeline: Pipeline{
			Path:             "/workspace/workflow.json",
			SourceNodeID:     "111",
			SourceField:      "url_or_path",
			DefaultSourceURL: "example.png",
		},
		Output: Output{
			Dir:           "/comfyui/output",
			ArtifactField: "gifs",
		},
		Storage: Storage{
			Provider: StorageInline,
		},
		Queue: Queue{
			Name:             "mediabridge:jobs",
			ResultTTLSeconds: 3600,
		},
		Runner: Runner{
			HTTPPort: "8000",
		},
		Log: logger.DefaultConfig(),
	}
}

// Load reads path (when non-empty) over the defaults and applies env overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Engine.Host = util.Env("COMFY_HOST", c.Engine.Host)
	c.Engine.ProbeAttempts = util.IntEnv("COMFY_API_AVAILABLE_MAX_RETRIES", c.Engine.ProbeAttempts)
	c.Engine.ProbeIntervalMS = util.IntEnv("COMFY_API_AVAILABLE_INTERVAL_MS", c.Engine.ProbeIntervalMS)
	c.Engine.PollAttempts = util.IntEnv("COMFY_POLLING_MAX_RETRIES", c.Engine.PollAttempts)
	c.Engine.PollIntervalMS = util.IntEnv("COMFY_POLLING_INTERVAL_MS", c.Engine.PollIntervalMS)
	c.Engine.AbortOnProbeFailure = util.BoolEnv("ABORT_ON_PROBE_FAILURE", c.Engine.AbortOnProbeFailure)

	c.Pipeline.Path = util.Env("COMFY_WORKFLOW_PATH", c.Pipeline.Path)
	c.Pipeline.SourceNodeID = util.Env("PIPELINE_SOURCE_NODE", c.Pipeline.SourceNodeID)
	c.Pipeline.SourceField = util.Env("PIPELINE_SOURCE_FIELD", c.Pipeline.SourceField)
	c.Pipeline.DefaultSourceURL = util.Env("BASE_URL", c.Pipeline.DefaultSourceURL)

	c.Output.Dir = util.Env("COMFY_OUTPUT_PATH", c.Output.Dir)
	c.Output.ArtifactField = util.Env("ARTIFACT_FIELD", c.Output.ArtifactField)

	c.Storage.Provider = util.Env("ARTIFACT_STORAGE", c.Storage.Provider)
	c.Storage.LocalRoot = util.Env("STORAGE_LOCAL_ROOT", c.Storage.LocalRoot)
	c.Storage.PublicBaseURL = util.Env("STORAGE_PUBLIC_BASEURL", c.Storage.PublicBaseURL)
	c.Storage.GDrive.ClientID = util.Env("GDRIVE_CLIENT_ID", c.Storage.GDrive.ClientID)
	c.Storage.GDrive.ClientSecret = util.Env("GDRIVE_CLIENT_SECRET", c.Storage.GDrive.ClientSecret)
	c.Storage.GDrive.RefreshToken = util.Env("GDRIVE_REFRESH_TOKEN", c.Storage.GDrive.RefreshToken)
	c.Storage.GDrive.FolderID = util.Env("GDRIVE_FOLDER_ID", c.Storage.GDrive.FolderID)

	c.Queue.RedisAddr = util.Env("REDIS_ADDR", c.Queue.RedisAddr)
	c.Queue.Name = util.Env("JOB_QUEUE_NAME", c.Queue.Name)
	c.Queue.ResultTTLSeconds = util.IntEnv("RESULT_TTL_SECONDS", c.Queue.ResultTTLSeconds)

	c.Runner.HTTPPort = util.Env("HTTP_PORT", c.Runner.HTTPPort)
	c.Runner.CORSAllowedOrigins = util.CSVEnv("CORS_ALLOWED_ORIGINS", c.Runner.CORSAllowedOrigins)
	c.Runner.RefreshWorker = util.BoolEnv("REFRESH_WORKER", c.Runner.RefreshWorker)

	c.DatabaseURL = util.Env("DATABASE_URL", c.DatabaseURL)

	c.Log.Level = util.Env("LOG_LEVEL", c.Log.Level)
	c.Log.Format = util.Env("LOG_FORMAT", c.Log.Format)
	c.Log.AddSource = util.BoolEnv("LOG_SOURCE", c.Log.AddSource)
	c.Log.ServiceName = util.Env("SERVICE_NAME", c.Log.ServiceName)
}

// Validate rejects configurations the bridge cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Engine.Host) == "" {
		return errors.Validation("engine host is required")
	}
	if c.Engine.ProbeAttempts < 1 || c.Engine.PollAttempts < 1 {
		return errors.Validationf("probe and poll attempts must be >= 1 (probe=%d poll=%d)",
			c.Engine.ProbeAttempts, c.Engine.PollAttempts)
	}
	if c.Engine.ProbeIntervalMS < 0 || c.Engine.PollIntervalMS < 0 {
		return errors.Validation("probe and poll intervals must not be negative")
	}
	if c.Pipeline.Path == "" || c.Pipeline.SourceNodeID == "" || c.Pipeline.SourceField == "" {
		return errors.Validation("pipeline path, source node and source field are required")
	}
	if c.Output.Dir == "" || c.Output.ArtifactField == "" {
		return errors.Validation("output dir and artifact field are required")
	}

	switch c.Storage.Provider {
	case StorageInline:
	case StorageLocalFS:
		if c.Storage.LocalRoot == "" || c.Storage.PublicBaseURL == "" {
			return errors.Validation("localfs storage needs STORAGE_LOCAL_ROOT and STORAGE_PUBLIC_BASEURL")
		}
	case StorageGDrive:
		g := c.Storage.GDrive
		if g.ClientID == "" || g.ClientSecret == "" || g.RefreshToken == "" {
			return errors.Validation("gdrive storage needs client id, client secret and refresh token")
		}
	default:
		return errors.Validationf("unknown artifact storage: %s", c.Storage.Provider)
	}
	return nil
}

// EngineBaseURL returns the engine URL with a scheme.
func (c Config) EngineBaseURL() string {
	host := strings.TrimRight(c.Engine.Host, "/")
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "http://" + host
}

func (e Engine) ProbeInterval() time.Duration {
	return time.Duration(e.ProbeIntervalMS) * time.Millisecond
}

func (e Engine) PollInterval() time.Duration {
	return time.Duration(e.PollIntervalMS) * time.Millisecond
}

func (q Queue) ResultTTL() time.Duration {
	return time.Duration(q.ResultTTLSeconds) * time.Second
}
