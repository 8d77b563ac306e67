package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`
	NSF struct {
		BaseURL    string `yaml:"base_url"`
		Timeout    int    `yaml:"request_timeout"`
		MaxAwards  int    `yaml:"max_awards"`
		PerPage    int    `yaml:"results_per_page"`
	} `yaml:"nsf"`
	Watch struct {
		PollInterval int `yaml:"poll_interval"`
	} `yaml:"watch"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Logging struct {
		Level        string `yaml:"level"`
		EnableColors bool   `yaml:"enable_colors"`
	} `yaml:"logging"`
}

var Global Config

// Load reads the config.yaml file and applies defaults for absent fields.
func Load() error {
	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, &Global); err != nil {
		return err
	}
	applyDefaults(&Global)
	return nil
}

func applyDefaults(c *Config) {
	if c.NSF.BaseURL == "" {
		c.NSF.BaseURL = "http://api.nsf.gov/services/v1/awards.json"
	}
	if c.NSF.Timeout == 0 {
		c.NSF.Timeout = 30
	}
	if c.NSF.MaxAwards == 0 {
		c.NSF.MaxAwards = 10
	}
	if c.NSF.PerPage == 0 {
		c.NSF.PerPage = 25
	}
	if c.Watch.PollInterval == 0 {
		c.Watch.PollInterval = 600
	}
}
