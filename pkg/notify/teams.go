package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/agentstation/patchpilot/internal/transport"
	"github.com/agentstation/patchpilot/pkg/constants"
	"github.com/agentstation/patchpilot/pkg/errors"
	"github.com/agentstation/patchpilot/pkg/logging"
	"github.com/agentstation/patchpilot/pkg/report"
)

// Payload is the message card posted to the webhook.
type Payload struct {
	Summary  string    `json:"summary"`
	Sections []Section `json:"sections"`
}

// Section is one block of a message card. A section carries either a title
// or a list of facts.
type Section struct {
	ActivityTitle string        `json:"activityTitle,omitempty"`
	Facts         []report.Fact `json:"facts,omitempty"`
}

// TeamsResult mirrors what the post reports back to the host run.
type TeamsResult struct {
	Posted        bool   `json:"posted_to_Teams"`
	PostedSummary string `json:"posted_summary"`
}

// Teams posts summaries to a chat webhook.
type Teams struct {
	WebhookURL string
	ServerURL  string

	// TriggerKey optionally names the summary field gating the post.
	TriggerKey string

	// SummaryName is echoed as PostedSummary after a post.
	SummaryName string

	client *transport.Client
}

// NewTeams creates a webhook sink. The webhook is called without
// authentication.
func NewTeams(webhookURL, serverURL string, opts ...transport.Option) *Teams {
	return &Teams{
		WebhookURL: webhookURL,
		ServerURL:  serverURL,
		client:     transport.New(nil, opts...),
	}
}

// Name implements Sink.
func (t *Teams) Name() string { return "teams" }

// Payload builds the message card for s.
func (t *Teams) Payload(s *report.Summary) Payload {
	return Payload{
		Summary: s.SummaryText,
		Sections: []Section{
			{ActivityTitle: fmt.Sprintf(`<b>New item added to Jamf Pro <a href="%[1]s">%[1]s</a></b>`, t.ServerURL)},
			{Facts: s.Facts()},
		},
	}
}

// Post sends s unless the trigger gate holds it back. Any answer other than
// 200 is an error.
func (t *Teams) Post(ctx context.Context, s *report.Summary) (TeamsResult, error) {
	if !Trigger(s, t.TriggerKey) {
		logging.FromContext(ctx).Debug().Str("trigger_key", t.TriggerKey).Msg("Trigger key is falsy")
		return TeamsResult{}, nil
	}

	body, err := json.Marshal(t.Payload(s))
	if err != nil {
		return TeamsResult{}, errors.WrapParse("json", "", err)
	}

	resp, err := t.client.Post(ctx, t.WebhookURL, constants.ContentTypeJSON, body)
	if err != nil {
		return TeamsResult{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return TeamsResult{}, errors.NewRemoteError("post to Microsoft Teams", t.WebhookURL, resp.StatusCode, string(resp.Body))
	}

	return TeamsResult{Posted: true, PostedSummary: t.SummaryName}, nil
}

// Notify implements Sink.
func (t *Teams) Notify(ctx context.Context, s *report.Summary) (bool, error) {
	result, err := t.Post(ctx, s)
	return result.Posted, err
}
