package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	OneBot  OneBotConfig  `yaml:"onebot"`
	Meme    MemeConfig    `yaml:"meme"`
	Avatar  AvatarConfig  `yaml:"avatar"`
	Image   ImageConfig   `yaml:"image"`
	Command CommandConfig `yaml:"command"`

	// DataDir holds upload files and the history database.
	DataDir string `yaml:"data_dir"`
	// SaveImage keeps the local copy of an upload after it was sent.
	SaveImage bool   `yaml:"save_image"`
	LogLevel  string `yaml:"log_level"`
}

type OneBotConfig struct {
	HTTPURL     string `yaml:"http_url"`
	WSURL       string `yaml:"ws_url"`
	AccessToken string `yaml:"access_token"`
}

type MemeConfig struct {
	BaseURL  string `yaml:"base_url"`
	Template string `yaml:"template"`
	// Version pins the renderer protocol. Empty means ask the service.
	Version string `yaml:"version"`
}

type AvatarConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type ImageConfig struct {
	DowngradeHTTPS bool `yaml:"downgrade_https"`
}

type CommandConfig struct {
	Prefix string   `yaml:"prefix"`
	Names  []string `yaml:"names"`
}

func Default() *Config {
	return &Config{
		OneBot: OneBotConfig{
			HTTPURL: "http://127.0.0.1:3000",
			WSURL:   "ws://127.0.0.1:3001",
		},
		Meme: MemeConfig{
			BaseURL:  "http://127.0.0.1:2233",
			Template: "my_friend",
		},
		Avatar: AvatarConfig{
			BaseURL: "https://q4.qlogo.cn/headimg_dl",
			Timeout: 10 * time.Second,
		},
		Image: ImageConfig{
			DowngradeHTTPS: true,
		},
		Command: CommandConfig{
			Prefix: "/",
			Names:  []string{"上传群相册", "up"},
		},
		DataDir:   "./data",
		SaveImage: true,
		LogLevel:  "info",
	}
}

// Load reads the YAML file at path on top of the defaults. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.OneBot.HTTPURL == "" {
		return fmt.Errorf("onebot.http_url is required")
	}
	if c.Meme.Template == "" {
		return fmt.Errorf("meme.template is required")
	}
	if len(c.Command.Names) == 0 {
		return fmt.Errorf("command.names must list at least one name")
	}
	if c.Avatar.Timeout <= 0 {
		return fmt.Errorf("avatar.timeout must be positive")
	}
	return nil
}

// HistoryPath is the sqlite database that records completed uploads.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// UploadDir is where images are written before they are sent to an album.
func (c *Config) UploadDir() string {
	return filepath.Join(c.DataDir, "uploads")
}
