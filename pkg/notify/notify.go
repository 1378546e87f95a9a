// Package notify delivers a step summary to people: a chat webhook card or
// a plain-text email. Each sink can be gated on a field of the summary.
package notify

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/agentstation/patchpilot/pkg/logging"
	"github.com/agentstation/patchpilot/pkg/report"
)

// Sink delivers a summary somewhere.
type Sink interface {
	// Name identifies the sink in logs and errors.
	Name() string

	// Notify delivers s, returning false when the trigger gate held it back.
	Notify(ctx context.Context, s *report.Summary) (bool, error)
}

// Trigger reports whether a summary should be sent. An empty key, or a key
// missing from the summary, always sends; a present key sends when its value
// is truthy.
func Trigger(s *report.Summary, key string) bool {
	if key == "" {
		return true
	}
	v, ok := s.Get(key)
	if !ok {
		return true
	}
	return v.Truthy()
}

// Dispatch delivers s to every sink. A failing sink does not stop the others;
// all failures are returned together.
func Dispatch(ctx context.Context, s *report.Summary, sinks ...Sink) error {
	var result *multierror.Error

	for _, sink := range sinks {
		sctx := logging.WithSink(ctx, sink.Name())
		log := logging.FromContext(sctx)

		sent, err := sink.Notify(sctx, s)
		if err != nil {
			log.Error().Err(err).Msg("Notification failed")
			result = multierror.Append(result, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		if sent {
			log.Info().Msg("Notification sent")
		} else {
			log.Info().Msg("Notification skipped by trigger")
		}
	}

	return result.ErrorOrNil()
}
