package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"plexmover/internal/api"
	"plexmover/internal/config"
)

const requestTimeout = 2 * time.Minute

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) client() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if c.apiFlag != nil && strings.TrimSpace(*c.apiFlag) != "" {
		return api.NewClient(*c.apiFlag, cfg.Paths.APIToken, requestTimeout), nil
	}
	if strings.TrimSpace(cfg.Paths.APIBind) == "" {
		return nil, errors.New("paths.api_bind is empty; set it or pass --api")
	}
	return api.NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken, requestTimeout), nil
}

// withClient runs fn against the daemon API using the command's context.
func (c *commandContext) withClient(cmd *cobra.Command, fn func(context.Context, *api.Client) error) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	reqCtx := cmd.Context()
	if reqCtx == nil {
		reqCtx = context.Background()
	}
	return wrapDialError(fn(reqCtx, client))
}

func wrapDialError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: connection refused; start it with `plexmover daemon` or plexmoverd")
	default:
		return err
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
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
