package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/togglekit/internal/bootstrap"
)

// app holds the state shared by all commands.
type app struct {
	out    io.Writer
	errOut io.Writer

	envFiles    []string
	definitions string
	sourceType  string
	source      string
	format      string

	cfg bootstrap.Config
	log *slog.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "featurectl",
		Short: "Inspect and operate feature toggles",
		Long: `featurectl resolves feature toggles the same way an application does:
static definitions are combined with the overrides of the configured source
and refined by strategies.

Configuration comes from FEATURES_* environment variables and .env files;
the flags below take precedence.

Examples:
  # Is the feature on right now?
  featurectl eval new-ui --definitions features.yaml

  # Which implementation backs the storage feature?
  featurectl instance storage --source-type redis

  # Serve the read-only API and Prometheus metrics
  featurectl serve --addr :9090`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.load(cmd) },
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringSliceVar(&a.envFiles, "env-file", nil, "Env files to load (default .env)")
	flags.StringVarP(&a.definitions, "definitions", "d", "", "Feature definitions document (overrides FEATURES_DEFINITIONS)")
	flags.StringVar(&a.sourceType, "source-type", "", "Override source: none, file, s3, redis, postgres, mongo")
	flags.StringVar(&a.source, "source", "", "File path or bucket/key of the override document")
	flags.StringVar(&a.format, "format", "", "Override document format: json, yaml, properties")

	root.AddCommand(
		newEvalCmd(a),
		newInstanceCmd(a),
		newListCmd(a),
		newDescribeCmd(a),
		newServeCmd(a),
		newExportCmd(a),
		newPublishCmd(a),
		newRemoveCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := bootstrap.LoadConfig(a.envFiles...)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("definitions") {
		cfg.Definitions = a.definitions
	}
	if flags.Changed("source-type") {
		cfg.SourceType = bootstrap.SourceType(a.sourceType)
	}
	if flags.Changed("source") {
		cfg.Source = a.source
	}
	if flags.Changed("format") {
		cfg.Format = a.format
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.log = bootstrap.NewLogger(cfg, a.errOut)
	return nil
}

// open wires a stack for one command. The returned context carries the
// configured environment.
func (a *app) open(ctx context.Context) (*bootstrap.Stack, context.Context, error) {
	stack, err := bootstrap.New(ctx, a.cfg, a.log)
	if err != nil {
		return nil, nil, err
	}
	return stack, stack.Context(ctx), nil
}
