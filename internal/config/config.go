package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// CredentialEnv names the environment variable holding the speech API key.
const CredentialEnv = "OPENAI_API_KEY"

// ErrMissingCredential is returned by Load when the selected synthesizer needs
// an API key and none is present in the environment.
var ErrMissingCredential = errors.New("missing " + CredentialEnv + " for synth.mode=openai")

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"` // text, json
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
	StdoutTraces bool   `yaml:"stdout_traces"`
	StatusBind   string `yaml:"status_bind"`
}

type Config struct {
	RuntimeName string           `yaml:"runtime_name"`
	Environment string           `yaml:"environment"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Output      OutputConfig     `yaml:"output"`
	Chunker     ChunkerConfig    `yaml:"chunker"`
	Extract     ExtractConfig    `yaml:"extract"`
	Synth       SynthConfig      `yaml:"synth"`
	Pacing      PacingConfig     `yaml:"pacing"`
	Bus         BusConfig        `yaml:"bus"`
	EventStore  EventStoreConfig `yaml:"event_store"`
}

type OutputConfig struct {
	Dir         string `yaml:"dir"`
	FilePattern string `yaml:"file_pattern"`
}

type ChunkerConfig struct {
	MaxChars       int  `yaml:"max_chars"`
	DropDegenerate bool `yaml:"drop_degenerate"`
}

type ExtractConfig struct {
	MaxPages int `yaml:"max_pages"`
}

type SynthConfig struct {
	Mode           string  `yaml:"mode"` // openai, exec, mock
	Model          string  `yaml:"model"`
	BaseURL        string  `yaml:"base_url"`
	ResponseFormat string  `yaml:"response_format"`
	Speed          float64 `yaml:"speed"`
	DefaultVoice   string  `yaml:"default_voice"`
	Command        string  `yaml:"command"`
	TimeoutMS      int     `yaml:"timeout_ms"`
	// APIKey is only ever populated from the environment.
	APIKey string `yaml:"-"`
}

type PacingConfig struct {
	DelayMS int `yaml:"delay_ms"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
	SubjectPrefix  string   `yaml:"subject_prefix"`
}

type EventStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxRuns       int    `yaml:"max_runs"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

func Default() Config {
	return Config{
		RuntimeName: "loqa-narrate",
		Environment: "development",
		Telemetry: TelemetryConfig{
			LogLevel:     "warn",
			LogFormat:    "text",
			OTLPInsecure: true,
		},
		Output: OutputConfig{
			Dir:         "audio_output",
			FilePattern: "part_%d.mp3",
		},
		Chunker: ChunkerConfig{
			MaxChars: 4000,
		},
		Synth: SynthConfig{
			Mode:           "openai",
			Model:          "tts-1",
			ResponseFormat: "mp3",
			Speed:          1.0,
			DefaultVoice:   "alloy",
		},
		Pacing: PacingConfig{
			DelayMS: 1000,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
			SubjectPrefix:  "narrate",
		},
		EventStore: EventStoreConfig{
			Path:          "./data/narrate-events.db",
			RetentionMode: "ephemeral",
			RetentionDays: 30,
			MaxRuns:       1000,
		},
	}
}

// Load reads the yaml file at path on top of the defaults, applies NARRATE_*
// overrides, picks up the API credential and validates the result. A missing
// file is an error only when required is true.
func Load(path string, required bool) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file: %w", err)
			}
		case os.IsNotExist(err) && !required:
		case os.IsNotExist(err):
			return cfg, fmt.Errorf("config file not found: %w", err)
		default:
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.Synth.APIKey = strings.TrimSpace(os.Getenv(CredentialEnv))
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "NARRATE_RUNTIME_NAME")
	overrideString(&cfg.Environment, "NARRATE_ENVIRONMENT")
	overrideString(&cfg.Telemetry.LogLevel, "NARRATE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.LogFormat, "NARRATE_TELEMETRY_LOG_FORMAT")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "NARRATE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "NARRATE_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Telemetry.StdoutTraces, "NARRATE_TELEMETRY_STDOUT_TRACES")
	overrideString(&cfg.Telemetry.StatusBind, "NARRATE_TELEMETRY_STATUS_BIND")
	overrideString(&cfg.Output.Dir, "NARRATE_OUTPUT_DIR")
	overrideString(&cfg.Output.FilePattern, "NARRATE_OUTPUT_FILE_PATTERN")
	overrideInt(&cfg.Chunker.MaxChars, "NARRATE_CHUNKER_MAX_CHARS")
	overrideBool(&cfg.Chunker.DropDegenerate, "NARRATE_CHUNKER_DROP_DEGENERATE")
	overrideInt(&cfg.Extract.MaxPages, "NARRATE_EXTRACT_MAX_PAGES")
	overrideString(&cfg.Synth.Mode, "NARRATE_SYNTH_MODE")
	overrideString(&cfg.Synth.Model, "NARRATE_SYNTH_MODEL")
	overrideString(&cfg.Synth.BaseURL, "NARRATE_SYNTH_BASE_URL")
	overrideString(&cfg.Synth.ResponseFormat, "NARRATE_SYNTH_RESPONSE_FORMAT")
	overrideFloat(&cfg.Synth.Speed, "NARRATE_SYNTH_SPEED")
	overrideString(&cfg.Synth.DefaultVoice, "NARRATE_SYNTH_DEFAULT_VOICE")
	overrideString(&cfg.Synth.Command, "NARRATE_SYNTH_COMMAND")
	overrideInt(&cfg.Synth.TimeoutMS, "NARRATE_SYNTH_TIMEOUT_MS")
	overrideInt(&cfg.Pacing.DelayMS, "NARRATE_PACING_DELAY_MS")
	overrideBool(&cfg.Bus.Enabled, "NARRATE_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "NARRATE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "NARRATE_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "NARRATE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "NARRATE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "NARRATE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "NARRATE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "NARRATE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "NARRATE_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Bus.SubjectPrefix, "NARRATE_BUS_SUBJECT_PREFIX")
	overrideString(&cfg.EventStore.Path, "NARRATE_EVENT_STORE_PATH")
	overrideString(&cfg.EventStore.RetentionMode, "NARRATE_EVENT_STORE_RETENTION_MODE")
	overrideInt(&cfg.EventStore.RetentionDays, "NARRATE_EVENT_STORE_RETENTION_DAYS")
	overrideInt(&cfg.EventStore.MaxRuns, "NARRATE_EVENT_STORE_MAX_RUNS")
	overrideBool(&cfg.EventStore.VacuumOnStart, "NARRATE_EVENT_STORE_VACUUM_ON_START")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	switch cfg.Telemetry.LogFormat {
	case "text", "json":
	default:
		return errors.New("telemetry.log_format must be one of text|json")
	}
	if cfg.Output.Dir == "" {
		return errors.New("output.dir must not be empty")
	}
	if name := fmt.Sprintf(cfg.Output.FilePattern, 1); name == cfg.Output.FilePattern || strings.Contains(name, "%!") {
		return errors.New("output.file_pattern must contain exactly one integer verb such as %d")
	}
	if cfg.Chunker.MaxChars <= 0 {
		return errors.New("chunker.max_chars must be positive")
	}
	if cfg.Extract.MaxPages < 0 {
		return errors.New("extract.max_pages must be >= 0")
	}
	if cfg.Pacing.DelayMS < 0 {
		return errors.New("pacing.delay_ms must be >= 0")
	}
	switch cfg.Synth.Mode {
	case "openai":
		if cfg.Synth.Model == "" {
			return errors.New("synth.model must be set when mode=openai")
		}
	case "exec":
		if cfg.Synth.Command == "" {
			return errors.New("synth.command must be set when mode=exec")
		}
	case "mock":
	default:
		return errors.New("synth.mode must be one of openai|exec|mock")
	}
	if cfg.Synth.TimeoutMS < 0 {
		return errors.New("synth.timeout_ms must be >= 0")
	}
	if cfg.Synth.Speed < 0.25 || cfg.Synth.Speed > 4.0 {
		return errors.New("synth.speed must be between 0.25 and 4.0")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			// -1 asks the embedded server for a free port.
			if cfg.Bus.Port != -1 && (cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535) {
				return errors.New("bus.port must be -1 or between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
		if cfg.Bus.SubjectPrefix == "" {
			return errors.New("bus.subject_prefix must not be empty")
		}
	}
	switch cfg.EventStore.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("event_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.EventStore.RetentionMode != "ephemeral" && cfg.EventStore.Path == "" {
		return errors.New("event_store.path must not be empty")
	}
	if cfg.EventStore.RetentionDays < 0 {
		return errors.New("event_store.retention_days must be >= 0")
	}
	// Checked last so commands that never synthesize can tolerate it.
	if cfg.Synth.Mode == "openai" && cfg.Synth.APIKey == "" {
		return ErrMissingCredential
	}
	return nil
}
