// Package dmg provides the dmg command implementation.
package dmg

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentstation/patchpilot/internal/appcontext"
	"github.com/agentstation/patchpilot/internal/output"
	"github.com/agentstation/patchpilot/pkg/constants"
	"github.com/agentstation/patchpilot/pkg/logging"
)

// Result is printed after a conversion.
type Result struct {
	Source    string `json:"source" yaml:"source"`
	Converted string `json:"dmg_path" yaml:"dmg_path"`
}

// NewCommand creates the dmg command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dmg",
		GroupID: "utility",
		Short:   "Disk image utilities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newConvertCommand(app))

	return cmd
}

func newConvertCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "convert PATH",
		Short: "Remove the license agreement from a disk image",
		Long: `Convert re-encodes a disk image as a CD/DVD master so the license
agreement shown on mount is dropped. The result is written next to the
source as NAME_Converted.dmg. Requires hdiutil (macOS).`,
		Example: `  patchpilot dmg convert ~/Downloads/Firefox.dmg`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.ParseFormat(app.OutputFormat())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), constants.CommandTimeout)
			defer cancel()
			ctx = logging.WithOperation(logging.WithLogger(ctx, app.Logger()), "dmg_convert")

			converted, err := app.DiskImages().Convert(ctx, args[0])
			if err != nil {
				return err
			}

			return output.NewFormatter(output.DetectFormat(string(format))).
				Format(cmd.OutOrStdout(), Result{Source: args[0], Converted: converted})
		},
	}
}
