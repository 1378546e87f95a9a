// Package notify provides the notify command and its sink subcommands.
package notify

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentstation/patchpilot/internal/appcontext"
	"github.com/agentstation/patchpilot/internal/output"
	"github.com/agentstation/patchpilot/pkg/constants"
	"github.com/agentstation/patchpilot/pkg/errors"
	"github.com/agentstation/patchpilot/pkg/logging"
	"github.com/agentstation/patchpilot/pkg/notify"
	"github.com/agentstation/patchpilot/pkg/report"
)

// NewCommand creates the notify command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notify",
		GroupID: "core",
		Short:   "Send a change report to Teams or by email",
		Long: `Notify delivers a change report to a notification sink.

The report is a yaml or json file written by "patchpilot reconcile --report"
or by the package importer. A sink only fires when the report field named
by --trigger-key is true.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newTeamsCommand(app))
	cmd.AddCommand(newMailCommand(app))

	return cmd
}

// recorder remembers whether the wrapped sink delivered.
type recorder struct {
	notify.Sink
	sent bool
}

func (r *recorder) Notify(ctx context.Context, s *report.Summary) (bool, error) {
	sent, err := r.Sink.Notify(ctx, s)
	r.sent = sent
	return sent, err
}

// dispatch loads the summary at path and runs it through sink. It reports
// whether the sink delivered.
func dispatch(cmd *cobra.Command, app appcontext.Interface, path string, sink notify.Sink) (bool, error) {
	if path == "" {
		return false, errors.NewValidationError("summary", path, "is required")
	}
	s, err := report.Load(path)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), constants.CommandTimeout)
	defer cancel()
	ctx = logging.WithOperation(logging.WithLogger(ctx, app.Logger()), "notify")

	rec := &recorder{Sink: sink}
	if err := notify.Dispatch(ctx, s, rec); err != nil {
		return false, err
	}
	return rec.sent, nil
}

func printResult(cmd *cobra.Command, app appcontext.Interface, v any) error {
	format, err := output.ParseFormat(app.OutputFormat())
	if err != nil {
		return err
	}
	return output.NewFormatter(output.DetectFormat(string(format))).Format(cmd.OutOrStdout(), v)
}
