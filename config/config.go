package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type RedirectsConfig struct {
	Protocol             string   `yaml:"protocol"`
	TLDs                 []string `yaml:"tlds"`
	OtherKey             string   `yaml:"other_key"`
	SmallThreshold       int      `yaml:"small_threshold"`
	SmallReportThreshold int      `yaml:"small_report_threshold"`
}

type PipelineConfig struct {
	Workers int `yaml:"workers"`
}

type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	IncludeCaller bool   `yaml:"include_caller"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type Config struct {
	Redirects RedirectsConfig `yaml:"redirects"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Logging   LoggingConfig   `yaml:"logging"`
	Output    OutputConfig    `yaml:"output"`
}

// Default returns the settings used for the published measurement.
func Default() *Config {
	return &Config{
		Redirects: RedirectsConfig{
			Protocol:             "autoconfig",
			TLDs:                 []string{".com", ".org", ".net", ".edu", ".gov", ".co", ".io", ".cn"},
			OtherKey:             "others",
			SmallThreshold:       10,
			SmallReportThreshold: 2,
		},
		Pipeline: PipelineConfig{Workers: 1},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Output:   OutputConfig{Dir: "."},
	}
}

const defaultConfigContent = `# config.yaml

redirects:
  # autoconfig | autodiscover
  protocol: autoconfig
  # 按顺序匹配，第一个匹配的后缀生效
  tlds: [".com", ".org", ".net", ".edu", ".gov", ".co", ".io", ".cn"]
  other_key: others
  # 客户数小于该值的 provider 合并为 small_provider
  small_threshold: 10
  small_report_threshold: 2

pipeline:
  workers: 1

logging:
  level: info      # debug | info | warn | error
  format: text     # text | json
  include_caller: false

output:
  dir: .
`

// Load reads path on top of the defaults. A missing file is created with
// the default content and the defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if werr := os.WriteFile(path, []byte(defaultConfigContent), 0644); werr != nil {
			return nil, fmt.Errorf("failed to write default config: %w", werr)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Redirects.Protocol) {
	case "autoconfig", "autodiscover":
	default:
		return fmt.Errorf("config: unknown redirects.protocol %q", c.Redirects.Protocol)
	}
	for i, tld := range c.Redirects.TLDs {
		if strings.TrimSpace(tld) == "" {
			return fmt.Errorf("config: redirects.tlds[%d] is empty", i)
		}
	}
	if c.Redirects.OtherKey == "" {
		return errors.New("config: redirects.other_key is empty")
	}
	if c.Redirects.SmallThreshold < 0 || c.Redirects.SmallReportThreshold < 0 {
		return errors.New("config: thresholds must not be negative")
	}
	if c.Pipeline.Workers < 1 {
		c.Pipeline.Workers = 1
	}
	return nil
}
