package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir    string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`

	// Per-session defaults.
	MaxNewTokens int    `json:"max_new_tokens" yaml:"max_new_tokens" toml:"max_new_tokens"`
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt" toml:"system_prompt"`
	KeepHistory  *bool  `json:"keep_history" yaml:"keep_history" toml:"keep_history"`
	Reasoning    bool   `json:"reasoning" yaml:"reasoning" toml:"reasoning"`
	AudioOutput  bool   `json:"audio_output" yaml:"audio_output" toml:"audio_output"`

	// llama-server subprocess engine. Empty ServerBin selects the
	// in-process engine.
	ServerBin  string `json:"server_bin" yaml:"server_bin" toml:"server_bin"`
	ServerHost string `json:"server_host" yaml:"server_host" toml:"server_host"`
	PortMin    int    `json:"port_min" yaml:"port_min" toml:"port_min"`
	PortMax    int    `json:"port_max" yaml:"port_max" toml:"port_max"`

	// In-process llama engine.
	LlamaCtx     int `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads int `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`

	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
