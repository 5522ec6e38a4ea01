package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/togglekit/pkg/feature"
)

func newEvalCmd(a *app) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "eval <feature-id>",
		Short: "Print whether a feature is enabled",
		Long: `Print whether a feature is enabled.

With --subject the value is handed to strategies that take one, such as
AllowValues, AllowList and Percentage.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, ctx, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer stack.Close()

			var enabled bool
			if cmd.Flags().Changed("subject") {
				enabled, err = stack.Engine.IsEnabledFor(ctx, args[0], subject)
			} else {
				enabled, err = stack.Engine.IsEnabled(ctx, args[0])
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, strconv.FormatBool(enabled))
			return err
		},
	}
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Subject passed to subject-aware strategies")
	return cmd
}

func newInstanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "instance <feature-id>",
		Short: "Print the instance currently backing a feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, ctx, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer stack.Close()

			inst, err := stack.Engine.SelectInstance(ctx, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, inst)
			return err
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var onlyEnabled, onlyDisabled bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List features with their active configuration as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stack, ctx, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer stack.Close()

			infos := stack.Engine.List(ctx)
			out := make([]feature.Info, 0, len(infos))
			for _, info := range infos {
				if (onlyEnabled && !info.Enabled) || (onlyDisabled && info.Enabled) {
					continue
				}
				out = append(out, info)
			}
			return writeJSON(a, out)
		},
	}
	cmd.Flags().BoolVar(&onlyEnabled, "enabled", false, "Only enabled features")
	cmd.Flags().BoolVar(&onlyDisabled, "disabled", false, "Only disabled features")
	cmd.MarkFlagsMutuallyExclusive("enabled", "disabled")
	return cmd
}

func newDescribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <feature-id>",
		Short: "Show the initial, override and active configuration of a feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, ctx, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer stack.Close()

			d, err := stack.Engine.Describe(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(a, d)
		},
	}
}

func writeJSON(a *app, v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
