package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"habari/internal/config"
)

// skipConfigAnnotation marks commands that load (or write) the config
// themselves instead of relying on the root pre-run hook.
const skipConfigAnnotation = "skipConfigLoad"

// commandContext lazily loads the config once per process and shares it
// between commands.
type commandContext struct {
	configFlag *string

	once       sync.Once
	config     *config.Config
	configPath string
	err        error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// ensureConfig loads and validates the config and creates its directories.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.once.Do(func() {
		cfg, path, _, err := config.Load(c.configFlagValue())
		if err != nil {
			c.err = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.err = fmt.Errorf("prepare directories from %s: %w", path, err)
			return
		}
		c.config, c.configPath = cfg, path
	})
	return c.config, c.err
}

// configValue returns the loaded config. Only call it from commands whose
// pre-run hook already succeeded.
func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
