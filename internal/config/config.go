package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server struct {
		Host        string `json:"host" yaml:"host"`
		Port        string `json:"port" yaml:"port"`
		StaticDir   string `json:"static_dir" yaml:"static_dir"`
		Debug       bool   `json:"debug" yaml:"debug"`
		MaxUploadMB int64  `json:"max_upload_mb" yaml:"max_upload_mb"`
	} `json:"server" yaml:"server"`

	Storage struct {
		UploadDir string `json:"upload_dir" yaml:"upload_dir"`
	} `json:"storage" yaml:"storage"`

	Database struct {
		Type string `json:"type" yaml:"type"` // "json", "sqlite" or "bolt"
		Path string `json:"path" yaml:"path"`
	} `json:"database" yaml:"database"`

	ML MLConfig `json:"ml" yaml:"ml"`

	Upload struct {
		IDStrategy string `json:"id_strategy" yaml:"id_strategy"` // "timestamp" or "timestamp_uuid"
	} `json:"upload" yaml:"upload"`
}

// MLConfig selects and bounds the recognition backend.
type MLConfig struct {
	Type           string `json:"type" yaml:"type"` // "openai", "google" or "disabled"
	ConfigPath     string `json:"config_path" yaml:"config_path"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// Timeout returns the per-call recognition timeout.
func (c MLConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadConfig loads configuration from a JSON or YAML file
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Server.Port == "" {
		// Fail if port is not set
		return nil, fmt.Errorf("server port is not set in config file")
	}
	applyDefaults(&config)

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Server.StaticDir == "" {
		config.Server.StaticDir = "./static"
	}
	if config.Server.MaxUploadMB == 0 {
		config.Server.MaxUploadMB = 20
	}
	if config.Storage.UploadDir == "" {
		config.Storage.UploadDir = "uploads"
	}
	if config.Database.Type == "" {
		config.Database.Type = "json"
	}
	if config.Database.Path == "" {
		switch config.Database.Type {
		case "sqlite":
			config.Database.Path = filepath.Join(config.Storage.UploadDir, "images.db")
		case "bolt":
			config.Database.Path = filepath.Join(config.Storage.UploadDir, "images.bolt")
		default:
			config.Database.Path = filepath.Join(config.Storage.UploadDir, "metadata.json")
		}
	}
	if config.ML.Type == "" {
		config.ML.Type = "openai"
	}
	if config.ML.TimeoutSeconds <= 0 {
		config.ML.TimeoutSeconds = 60
	}
	if config.Upload.IDStrategy == "" {
		config.Upload.IDStrategy = "timestamp"
	}
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// LoadEnv reads KEY=value pairs from the given dotenv files (".env" when none) into
// the process environment. Missing files are not an error; variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// GetConfigPath returns the path to the configuration file
func GetConfigPath() string {
	// First try environment variable
	if path := os.Getenv("FOOD_MONSTER_CONFIG"); path != "" {
		return path
	}

	// Then try config directory
	configDir := "config"
	if _, err := os.Stat(configDir); err == nil {
		return filepath.Join(configDir, "config.json")
	}

	// Finally, try current directory
	return "config.json"
}
