package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mohammadpnp/catalog-import/internal/bootstrap"
	"github.com/mohammadpnp/catalog-import/internal/config"
	"github.com/mohammadpnp/catalog-import/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Operate the auto-parts catalog importer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newImportCmd(),
		newClearCmd(),
		newImagesCmd(),
		newFeaturedCmd(),
	)
	return root
}

// withContainer builds the application for one command. Imports run under a
// context that ignores the signal; the import command turns a signal into a
// cancel request instead.
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *bootstrap.Container, log *zap.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx := cmd.Context()
	c, err := bootstrap.NewContainer(context.WithoutCancel(ctx), cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	return fn(ctx, c, log)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
