package notify

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/patchpilot/internal/appcontext"
	"github.com/agentstation/patchpilot/pkg/errors"
	"github.com/agentstation/patchpilot/pkg/notify"
)

type mailFlags struct {
	Summary     string
	SMTPAddr    string
	From        string
	To          []string
	ProductName string
	TriggerKey  string
}

// mailResult is printed after the mail command.
type mailResult struct {
	Sent bool     `json:"sent" yaml:"sent"`
	To   []string `json:"to,omitempty" yaml:"to,omitempty"`
}

// send is swapped in tests.
var send notify.SendFunc

func newMailCommand(app appcontext.Interface) *cobra.Command {
	flags := &mailFlags{}

	cmd := &cobra.Command{
		Use:   "mail",
		Short: "Email a notice about a newly uploaded package",
		Long: `Mail sends a plain-text notice for the package named in the report
through an SMTP relay. Nothing is sent when the report names no package.`,
		Example: `  patchpilot notify mail --summary Firefox.yaml --smtp smtp.example.com --from jamf@example.com --to it@example.com
  patchpilot notify mail --summary Firefox.yaml --product Firefox --trigger-key Package_Uploaded`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := app.Settings()

			m := &notify.Mail{
				Addr:        firstNonEmpty(flags.SMTPAddr, settings.SMTPAddr),
				From:        firstNonEmpty(flags.From, settings.MailFrom),
				To:          flags.To,
				ServerURL:   settings.ServerURL,
				ProductName: flags.ProductName,
				TriggerKey:  flags.TriggerKey,
				Send:        send,
			}
			if len(m.To) == 0 {
				m.To = settings.MailTo
			}
			if m.Addr == "" {
				return errors.NewValidationError("smtp", m.Addr, "is required (--smtp or SMTP_ADDR)")
			}

			sent, err := dispatch(cmd, app, flags.Summary, m)
			if err != nil {
				return err
			}

			result := mailResult{Sent: sent}
			if sent {
				result.To = m.To
			}
			return printResult(cmd, app, result)
		},
	}

	cmd.Flags().StringVar(&flags.Summary, "summary", "", "report file (yaml or json)")
	cmd.Flags().StringVar(&flags.SMTPAddr, "smtp", "", "SMTP relay host[:port] (default SMTP_ADDR)")
	cmd.Flags().StringVar(&flags.From, "from", "", "sender address (default MAIL_FROM)")
	cmd.Flags().StringSliceVar(&flags.To, "to", nil, "recipient addresses (default MAIL_TO)")
	cmd.Flags().StringVar(&flags.ProductName, "product", "", "product name for the subject (default from the report)")
	cmd.Flags().StringVar(&flags.TriggerKey, "trigger-key", "", "report field that must be true to send")

	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
