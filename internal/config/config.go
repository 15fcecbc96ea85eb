package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
	pkgconfig "github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/config"
)

// PlatformSchedule configures slot assignment for one platform.
type PlatformSchedule struct {
	IntervalHours     int `yaml:"interval_hours"`
	InitialDelayHours int `yaml:"initial_delay_hours"`
}

// Config is the immutable process configuration. It is read once at startup
// and passed down explicitly; nothing in the pipeline reads configuration
// from package-level state.
type Config struct {
	Guardrails        models.GuardrailPolicy
	DedupWindow       int
	PlannerMaxRetries int
	Platforms         map[string]PlatformSchedule
}

type platformsFile struct {
	Platforms map[string]PlatformSchedule `yaml:"platforms"`
}

// Load assembles the process configuration from environment variables and
// the platform schedule file.
func Load(platformsPath string) (*Config, error) {
	cfg := &Config{
		Guardrails: models.GuardrailPolicy{
			MinPosts:  pkgconfig.GetEnvInt("GUARDRAIL_MIN_POSTS", 10),
			MaxPosts:  pkgconfig.GetEnvInt("GUARDRAIL_MAX_POSTS", 20),
			MinSeeds:  pkgconfig.GetEnvInt("GUARDRAIL_MIN_SEEDS", 3),
			MaxSeeds:  pkgconfig.GetEnvInt("GUARDRAIL_MAX_SEEDS", 8),
			MinVideos: pkgconfig.GetEnvInt("GUARDRAIL_MIN_VIDEOS", 2),
			MaxVideos: pkgconfig.GetEnvInt("GUARDRAIL_MAX_VIDEOS", 10),
			MinImages: pkgconfig.GetEnvInt("GUARDRAIL_MIN_IMAGES", 4),
			MaxImages: pkgconfig.GetEnvInt("GUARDRAIL_MAX_IMAGES", 15),
		},
		DedupWindow:       pkgconfig.GetEnvInt("DEDUP_WINDOW", 20),
		PlannerMaxRetries: pkgconfig.GetEnvInt("PLANNER_MAX_RETRIES", 3),
	}

	data, err := os.ReadFile(platformsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read platform config %s: %w", platformsPath, err)
	}

	var pf platformsFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse platform config %s: %w", platformsPath, err)
	}
	cfg.Platforms = pf.Platforms

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	ranges := []struct {
		name     string
		min, max int
	}{
		{"posts", c.Guardrails.MinPosts, c.Guardrails.MaxPosts},
		{"seeds", c.Guardrails.MinSeeds, c.Guardrails.MaxSeeds},
		{"videos", c.Guardrails.MinVideos, c.Guardrails.MaxVideos},
		{"images", c.Guardrails.MinImages, c.Guardrails.MaxImages},
	}
	for _, r := range ranges {
		if r.min < 0 {
			return fmt.Errorf("guardrail %s: min must be non-negative, got %d", r.name, r.min)
		}
		if r.max < r.min {
			return fmt.Errorf("guardrail %s: max (%d) below min (%d)", r.name, r.max, r.min)
		}
	}

	if c.DedupWindow <= 0 {
		return fmt.Errorf("dedup window must be positive, got %d", c.DedupWindow)
	}
	if c.PlannerMaxRetries <= 0 {
		return fmt.Errorf("planner max retries must be positive, got %d", c.PlannerMaxRetries)
	}

	if len(c.Platforms) == 0 {
		return fmt.Errorf("at least one platform schedule is required")
	}
	for name, p := range c.Platforms {
		if p.IntervalHours <= 0 {
			return fmt.Errorf("platform %s: interval_hours must be positive, got %d", name, p.IntervalHours)
		}
		if p.InitialDelayHours < 0 {
			return fmt.Errorf("platform %s: initial_delay_hours must be non-negative, got %d", name, p.InitialDelayHours)
		}
	}

	return nil
}
