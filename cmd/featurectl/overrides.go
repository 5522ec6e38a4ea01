package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/togglekit/internal/bootstrap"
	"github.com/dmitrymomot/togglekit/pkg/feature"
	"github.com/dmitrymomot/togglekit/pkg/featurefile"
	"github.com/dmitrymomot/togglekit/pkg/logger"
)

func newExportCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the overrides of the configured source as a document",
		Long: `Fetch the overrides of the configured source and write them to stdout
as a JSON or YAML document that the file and S3 sources can read back.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := featurefile.ParseFormat(format)
			if err != nil {
				return err
			}

			stack, ctx, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer stack.Close()

			if err := stack.Cache.Refresh(ctx); err != nil {
				return err
			}
			overrides := stack.Cache.Snapshot(ctx).Overrides
			entries := make([]featurefile.Entry, 0, len(overrides))
			for _, id := range slices.Sorted(maps.Keys(overrides)) {
				entries = append(entries, featurefile.EntryFromOverride(id, overrides[id]))
			}
			return featurefile.Encode(f, a.out, entries)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "yaml", "Document format: json or yaml")
	return cmd
}

func newPublishCmd(a *app) *cobra.Command {
	var (
		enabled  bool
		instance string
		strategy string
		params   map[string]string
	)

	cmd := &cobra.Command{
		Use:   "publish <feature-id>",
		Short: "Store an override in a writable source",
		Long: `Store an override in the configured source, replacing the previous one.
Only the redis, postgres and mongo sources accept writes. Running engines
pick the change up on their next refresh.

Examples:
  featurectl publish new-ui --enabled=false --source-type redis
  featurectl publish storage --instance s3 --source-type postgres
  featurectl publish beta --strategy Percentage --param percentage=25`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := feature.Override{CurrentInstance: instance}
			if cmd.Flags().Changed("enabled") {
				o.Enabled = feature.Bool(enabled)
			}
			if strategy != "" {
				o.Strategy = &feature.StrategyConfig{Name: strategy, Params: params}
			} else if len(params) > 0 {
				return fmt.Errorf("%w: --param needs --strategy", bootstrap.ErrInvalidConfig)
			}

			stack, ctx, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer stack.Close()

			if stack.Publisher == nil {
				return fmt.Errorf("%w: %s", bootstrap.ErrReadOnlySource, a.cfg.SourceType)
			}
			if def, err := stack.Engine.Registry().Get(args[0]); err == nil && instance != "" && !def.Declares(instance) {
				a.log.WarnContext(ctx, "publishing an undeclared instance, engines will ignore it",
					logger.Feature(args[0]), logger.Instance(instance))
			}
			return stack.Publisher.Publish(ctx, args[0], o)
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&enabled, "enabled", false, "Enabled flag; leave unset to keep the static default")
	flags.StringVar(&instance, "instance", "", "Current instance")
	flags.StringVar(&strategy, "strategy", "", "Strategy name")
	flags.StringToStringVar(&params, "param", nil, "Strategy parameter as key=value (repeatable)")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <feature-id>",
		Short: "Delete the override of a feature from a writable source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, ctx, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer stack.Close()

			if stack.Publisher == nil {
				return fmt.Errorf("%w: %s", bootstrap.ErrReadOnlySource, a.cfg.SourceType)
			}
			return stack.Publisher.Remove(ctx, args[0])
		},
	}
}
