package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds the substrate's runtime configuration: the environment
// variables the external HTTP/daemon interface consumes, plus the
// tunable coefficients left as hardcoded defaults elsewhere.
type Config struct {
	// DataDir is the substrate's exclusive data directory.
	DataDir string `json:"data_dir,omitempty"`

	// EmbeddingBackend selects the Embedder provider: "auto", "ollama", "openai".
	EmbeddingBackend string `json:"embedding_backend,omitempty"`
	EmbeddingModel   string `json:"embedding_model,omitempty"`
	EmbeddingBaseURL string `json:"embedding_base_url,omitempty"`

	// OracleBackend selects the text-generation backend: "dummy", "anthropic", "openai".
	OracleBackend string `json:"oracle_backend,omitempty"`
	OracleURL     string `json:"oracle_url,omitempty"`
	OracleAPIKey  string `json:"oracle_api_key,omitempty"`

	// Base job intervals, seconds, before the scheduler's adaptive multipliers apply.
	ReflectionInterval  int `json:"reflection_interval,omitempty"`
	DreamInterval       int `json:"dream_interval,omitempty"`
	MonologueInterval   int `json:"monologue_interval,omitempty"`
	ExistentialInterval int `json:"existential_interval,omitempty"`
	PulseInterval       int `json:"pulse_interval,omitempty"`

	// MultiDevice carries the multi-device toggle. It is read and merged
	// like every other setting; nothing in the substrate changes behavior
	// on it.
	MultiDevice bool `json:"multi_device,omitempty"`

	// LogLevel and LogFile configure internal/logger.
	LogLevel string `json:"log_level,omitempty"`
	LogFile  string `json:"log_file,omitempty"`

	// Tunable coefficients with no single canonical default.
	SemanticTemporalMix float64 `json:"semantic_temporal_mix,omitempty"` // weight of semantic vs temporal associations
}

func defaults() *Config {
	return &Config{
		EmbeddingBackend:    "auto",
		OracleBackend:       "dummy",
		ReflectionInterval:  900,
		DreamInterval:       3600,
		MonologueInterval:   300,
		ExistentialInterval: 1800,
		PulseInterval:       60,
		LogLevel:            "info",
		SemanticTemporalMix: 0.7,
	}
}

// Manager layers environment variables over a JSON settings file over
// hardcoded defaults, the same precedence as a typical user/project
// settings merge.
type Manager struct {
	fileConfig *Config
	envConfig  *Config
	merged     *Config
}

func NewManager() *Manager {
	return &Manager{
		fileConfig: &Config{},
		envConfig:  &Config{},
		merged:     &Config{},
	}
}

// Load reads settingsPath (if present) and the process environment, then
// merges them over the defaults (env overrides file, file overrides defaults).
func (m *Manager) Load(settingsPath string) error {
	if err := m.loadFile(settingsPath); err != nil {
		return err
	}
	m.envConfig = fromEnv()
	m.merge()
	return nil
}

func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return json.Unmarshal(data, m.fileConfig)
}

func fromEnv() *Config {
	c := &Config{
		DataDir:          os.Getenv("SUBSTRATE_DATA_DIR"),
		EmbeddingBackend: os.Getenv("SUBSTRATE_EMBEDDING_BACKEND"),
		EmbeddingModel:   os.Getenv("SUBSTRATE_EMBEDDING_MODEL"),
		EmbeddingBaseURL: os.Getenv("SUBSTRATE_EMBEDDING_BASE_URL"),
		OracleBackend:    os.Getenv("SUBSTRATE_ORACLE_BACKEND"),
		OracleURL:        os.Getenv("SUBSTRATE_ORACLE_URL"),
		OracleAPIKey:     os.Getenv("SUBSTRATE_ORACLE_API_KEY"),
		LogLevel:         os.Getenv("SUBSTRATE_LOG_LEVEL"),
		LogFile:          os.Getenv("SUBSTRATE_LOG_FILE"),
	}
	c.ReflectionInterval = envInt("SUBSTRATE_REFLECTION_INTERVAL")
	c.DreamInterval = envInt("SUBSTRATE_DREAM_INTERVAL")
	c.MonologueInterval = envInt("SUBSTRATE_MONOLOGUE_INTERVAL")
	c.ExistentialInterval = envInt("SUBSTRATE_EXISTENTIAL_INTERVAL")
	c.PulseInterval = envInt("SUBSTRATE_PULSE_INTERVAL")
	c.MultiDevice = os.Getenv("SUBSTRATE_MULTI_DEVICE") == "true"
	return c
}

func envInt(name string) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return 0
	}
	return v
}

func (m *Manager) merge() {
	d := defaults()
	m.merged = &Config{
		DataDir:             str(m.envConfig.DataDir, m.fileConfig.DataDir, d.DataDir),
		EmbeddingBackend:    str(m.envConfig.EmbeddingBackend, m.fileConfig.EmbeddingBackend, d.EmbeddingBackend),
		EmbeddingModel:      str(m.envConfig.EmbeddingModel, m.fileConfig.EmbeddingModel, d.EmbeddingModel),
		EmbeddingBaseURL:    str(m.envConfig.EmbeddingBaseURL, m.fileConfig.EmbeddingBaseURL, d.EmbeddingBaseURL),
		OracleBackend:       str(m.envConfig.OracleBackend, m.fileConfig.OracleBackend, d.OracleBackend),
		OracleURL:           str(m.envConfig.OracleURL, m.fileConfig.OracleURL, d.OracleURL),
		OracleAPIKey:        str(m.envConfig.OracleAPIKey, m.fileConfig.OracleAPIKey, d.OracleAPIKey),
		ReflectionInterval:  integer(m.envConfig.ReflectionInterval, m.fileConfig.ReflectionInterval, d.ReflectionInterval),
		DreamInterval:       integer(m.envConfig.DreamInterval, m.fileConfig.DreamInterval, d.DreamInterval),
		MonologueInterval:   integer(m.envConfig.MonologueInterval, m.fileConfig.MonologueInterval, d.MonologueInterval),
		ExistentialInterval: integer(m.envConfig.ExistentialInterval, m.fileConfig.ExistentialInterval, d.ExistentialInterval),
		PulseInterval:       integer(m.envConfig.PulseInterval, m.fileConfig.PulseInterval, d.PulseInterval),
		MultiDevice:         m.envConfig.MultiDevice || m.fileConfig.MultiDevice,
		LogLevel:            str(m.envConfig.LogLevel, m.fileConfig.LogLevel, d.LogLevel),
		LogFile:             str(m.envConfig.LogFile, m.fileConfig.LogFile, d.LogFile),
		SemanticTemporalMix: d.SemanticTemporalMix,
	}
	if m.fileConfig.SemanticTemporalMix != 0 {
		m.merged.SemanticTemporalMix = m.fileConfig.SemanticTemporalMix
	}
}

func str(env, file, def string) string {
	if env != "" {
		return env
	}
	if file != "" {
		return file
	}
	return def
}

func integer(env, file, def int) int {
	if env != 0 {
		return env
	}
	if file != 0 {
		return file
	}
	return def
}

func (m *Manager) Get() *Config {
	return m.merged
}

// Save writes the current config to path as indented JSON.
func (m *Manager) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.merged, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
