// Package commands implements the fetchsql subcommands.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/querylink/fetchsql/internal/cli/config"
	"github.com/querylink/fetchsql/internal/dataverse"
	"github.com/querylink/fetchsql/internal/metadata"
	"github.com/querylink/fetchsql/pkg/schema"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// NewCommandContext creates a CommandContext from the loaded config.
func NewCommandContext(*cobra.Command) *CommandContext {
	cfg := config.GetCurrentConfig()
	if cfg == nil {
		cfg = &config.Config{Output: config.DefaultOutput}
	}
	return &CommandContext{
		Cfg:    cfg,
		Logger: config.NewLogger(cfg.Verbose),
	}
}

// readInput reads query text from the first positional argument (a file
// path, or "-" for stdin) or from stdin when no argument is given.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", args[0], err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

// metadataProvider assembles the caching metadata provider from config.
// The returned cleanup closes the on-disk store; it is never nil.
func (c *CommandContext) metadataProvider() (metadata.Provider, func(), error) {
	var store *metadata.Store
	cleanup := func() {}
	if c.Cfg.CachePath != "" {
		if err := os.MkdirAll(filepath.Dir(c.Cfg.CachePath), 0o755); err == nil {
			if s, err := metadata.OpenStore(c.Cfg.CachePath); err == nil {
				store = s
				cleanup = func() { _ = s.Close() }
			} else {
				c.Logger.Warn("metadata cache unavailable", "path", c.Cfg.CachePath, "error", err)
			}
		}
	}

	provider := metadata.NewWebAPIProvider(dataverse.StaticToken(c.Cfg.AccessToken), c.Logger)
	return metadata.NewCache(provider, store, c.Cfg.CacheTTL(), c.Logger), cleanup, nil
}

// loadAttributes resolves the metadata snapshot used for virtual column
// detection. It returns nil (no rewrite) when metadata is disabled or a
// metadata file is not given and no environment is configured.
func (c *CommandContext) loadAttributes(ctx context.Context, metadataFile, entity string) ([]schema.AttributeDescriptor, func(), error) {
	noop := func() {}
	if c.Cfg.NoMetadata {
		return nil, noop, nil
	}

	if metadataFile != "" {
		descriptors, err := readMetadataFile(metadataFile)
		return descriptors, noop, err
	}

	if c.Cfg.EnvironmentURL == "" || entity == "" {
		return nil, noop, nil
	}

	provider, cleanup, err := c.metadataProvider()
	if err != nil {
		return nil, noop, err
	}
	descriptors, err := provider.Attributes(ctx, c.Cfg.EnvironmentURL, entity)
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("fetching metadata for %s: %w", entity, err)
	}
	return descriptors, cleanup, nil
}

// readMetadataFile loads attribute descriptors from a local JSON file.
func readMetadataFile(path string) ([]schema.AttributeDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata file: %w", err)
	}
	var descriptors []schema.AttributeDescriptor
	if err := json.Unmarshal(data, &descriptors); err != nil {
		return nil, fmt.Errorf("parsing metadata file %s: %w", path, err)
	}
	return descriptors, nil
}

