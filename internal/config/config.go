// Package config provides configuration for murmur-setup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the setup pipeline needs to know about the host:
// where state lives, which runtime to look for, which assets and Python
// dependencies to provision.
type Config struct {
	Paths    PathsConfig
	Runtime  RuntimeConfig
	Assets   []AssetConfig
	Packages []PackageConfig
	Exec     ExecConfig
}

// PathsConfig holds filesystem locations. All default under the murmur
// config directory so a single rm -rf removes every trace.
type PathsConfig struct {
	StateFile string `mapstructure:"state_file"`
	HistoryDB string `mapstructure:"history_db"`
	CacheDir  string `mapstructure:"cache_dir"`
	VenvDir   string `mapstructure:"venv_dir"`
}

// RuntimeConfig describes the Python runtime requirement.
type RuntimeConfig struct {
	Candidates []string `mapstructure:"candidates"`
	MinVersion string   `mapstructure:"min_version"`
	BrewFormula string  `mapstructure:"brew_formula"`
}

// AssetConfig describes one cacheable binary asset.
type AssetConfig struct {
	Name       string   `mapstructure:"name"`
	URL        string   `mapstructure:"url"`
	Archive    bool     `mapstructure:"archive"`
	Marker     string   `mapstructure:"marker"`
	Extensions []string `mapstructure:"extensions"`
	FileName   string   `mapstructure:"file_name"`
}

// PackageConfig describes one optional Python dependency.
type PackageConfig struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	SizeClass   string `mapstructure:"size_class"`
}

// ExecConfig bounds external command invocations.
type ExecConfig struct {
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

// Dir returns the murmur config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/murmur if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "murmur"), nil
}

// Load reads configuration from setup.toml and env. Env var overrides use
// prefix MURMUR_. A missing config file is not an error; defaults apply.
func Load() (Config, error) {
	dir, err := Dir()
	if err != nil {
		return Config{}, fmt.Errorf("cannot determine config directory: %w", err)
	}

	v := viper.New()

	v.SetDefault("paths.state_file", filepath.Join(dir, "install-state.json"))
	v.SetDefault("paths.history_db", filepath.Join(dir, "history.db"))
	v.SetDefault("paths.cache_dir", filepath.Join(dir, "cache"))
	v.SetDefault("paths.venv_dir", filepath.Join(dir, "venv"))

	v.SetDefault("runtime.candidates", []string{"python3.12", "python3.11", "python3"})
	v.SetDefault("runtime.min_version", "3.10")
	v.SetDefault("runtime.brew_formula", "python@3.12")

	v.SetDefault("exec.command_timeout", 10*time.Minute)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("MURMUR_SETUP_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName("setup")
	}

	v.SetEnvPrefix("MURMUR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(c.Assets) == 0 {
		c.Assets = DefaultAssets()
	}
	if len(c.Packages) == 0 {
		c.Packages = DefaultPackages()
	}

	return c, nil
}

// DefaultAssets returns the built-in asset list: the banner font and the
// base speech model.
func DefaultAssets() []AssetConfig {
	return []AssetConfig{
		{
			Name:       "nerd-font",
			URL:        "https://github.com/ryanoasis/nerd-fonts/releases/latest/download/JetBrainsMono.zip",
			Archive:    true,
			Marker:     "jetbrainsmononerdfont-regular",
			Extensions: []string{".ttf", ".otf"},
			FileName:   "JetBrainsMonoNerdFont-Regular.ttf",
		},
		{
			Name:     "whisper-base-model",
			URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.en.bin",
			Archive:  false,
			FileName: "ggml-base.en.bin",
		},
	}
}

// DefaultPackages returns the optional Python dependencies installed into
// the murmur venv. None are pinned; latest is intentional.
func DefaultPackages() []PackageConfig {
	return []PackageConfig{
		{Name: "openai-whisper", Description: "speech-to-text engine", SizeClass: "large"},
		{Name: "sounddevice", Description: "microphone capture", SizeClass: "small"},
		{Name: "numpy", Description: "audio buffer math", SizeClass: "medium"},
		{Name: "pyperclip", Description: "clipboard integration", SizeClass: "small"},
		{Name: "rich", Description: "terminal rendering", SizeClass: "small"},
	}
}
