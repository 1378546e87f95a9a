package notify

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/patchpilot/internal/appcontext"
	"github.com/agentstation/patchpilot/pkg/errors"
	"github.com/agentstation/patchpilot/pkg/notify"
)

type teamsFlags struct {
	Summary     string
	WebhookURL  string
	TriggerKey  string
	SummaryName string
}

func newTeamsCommand(app appcontext.Interface) *cobra.Command {
	flags := &teamsFlags{}

	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Post a change report to a Microsoft Teams webhook",
		Example: `  patchpilot notify teams --summary changes.json --trigger-key "Patch policy created or modified"
  patchpilot notify teams --summary Firefox.yaml --webhook https://example.webhook.office.com/... --summary-name Firefox`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			webhook := flags.WebhookURL
			if webhook == "" {
				webhook = app.Settings().TeamsWebhookURL
			}
			if webhook == "" {
				return errors.NewValidationError("webhook", webhook, "is required (--webhook or TEAMS_WEBHOOK_URL)")
			}

			teams := notify.NewTeams(webhook, app.Settings().ServerURL)
			teams.TriggerKey = flags.TriggerKey
			teams.SummaryName = flags.SummaryName

			sent, err := dispatch(cmd, app, flags.Summary, teams)
			if err != nil {
				return err
			}

			result := notify.TeamsResult{Posted: sent}
			if sent {
				result.PostedSummary = flags.SummaryName
			}
			return printResult(cmd, app, result)
		},
	}

	cmd.Flags().StringVar(&flags.Summary, "summary", "", "change report file (yaml or json)")
	cmd.Flags().StringVar(&flags.WebhookURL, "webhook", "", "incoming webhook URL (default TEAMS_WEBHOOK_URL)")
	cmd.Flags().StringVar(&flags.TriggerKey, "trigger-key", "", "report field that must be true to post")
	cmd.Flags().StringVar(&flags.SummaryName, "summary-name", "", "name echoed in the result after a post")

	return cmd
}
