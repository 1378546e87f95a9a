package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/patchpilot/pkg/errors"
	"github.com/agentstation/patchpilot/pkg/report"
)

func patchSummary(changed report.Value) *report.Summary {
	s := report.New("The following changes were made to the Patch Management:",
		"Patch Server", "Software title", "Package", "Version", "Patch policy", "Patch policy created or modified")
	s.Set("Patch Server", report.String("Community Patch"))
	s.Set("Software title", report.String("Firefox"))
	s.Set("Package", report.String("Firefox-121.0.pkg"))
	s.Set("Version", report.String("121.0"))
	s.Set("Patch policy", report.String("Firefox - 121.0"))
	s.Set("Patch policy created or modified", changed)
	return s
}

func TestTrigger(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value *report.Value
		want  bool
	}{
		{name: "no key", key: "", want: true},
		{name: "key absent", key: "Patch policy created or modified", want: true},
		{name: "true bool", key: "k", value: ptr(report.Bool(true)), want: true},
		{name: "false bool", key: "k", value: ptr(report.Bool(false)), want: false},
		{name: "empty string", key: "k", value: ptr(report.String("")), want: false},
		{name: "non-empty string", key: "k", value: ptr(report.String("True")), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := report.New("x")
			if tt.value != nil {
				s.Set(tt.key, *tt.value)
			}
			assert.Equal(t, tt.want, Trigger(s, tt.key))
		})
	}
}

func ptr(v report.Value) *report.Value { return &v }

func TestTeamsPayload(t *testing.T) {
	teams := NewTeams("https://hooks.example.com/x", "https://jamf.example.com")
	payload := teams.Payload(patchSummary(report.Bool(false)))

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"summary": "The following changes were made to the Patch Management:",
		"sections": [
			{"activityTitle": "<b>New item added to Jamf Pro <a href=\"https://jamf.example.com\">https://jamf.example.com</a></b>"},
			{"facts": [
				{"name": "Patch Server", "value": "Community Patch"},
				{"name": "Software title", "value": "Firefox"},
				{"name": "Package", "value": "Firefox-121.0.pkg"},
				{"name": "Version", "value": "121.0"},
				{"name": "Patch policy", "value": "Firefox - 121.0"},
				{"name": "Patch policy created or modified", "value": ""}
			]}
		]
	}`, string(data))
}

func webhook(t *testing.T, status int, bodies *[]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		*bodies = append(*bodies, string(body))
		w.WriteHeader(status)
		_, _ = io.WriteString(w, "webhook says no")
	}))
	t.Cleanup(server.Close)
	return server
}

func TestTeamsPost(t *testing.T) {
	var bodies []string
	server := webhook(t, http.StatusOK, &bodies)

	teams := NewTeams(server.URL, "https://jamf.example.com")
	teams.SummaryName = "PatchManagement_summary_result"

	result, err := teams.Post(context.Background(), patchSummary(report.Bool(true)))
	require.NoError(t, err)
	assert.Equal(t, TeamsResult{Posted: true, PostedSummary: "PatchManagement_summary_result"}, result)
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], `"value":"True"`)
}

func TestTeamsTriggerFalsy(t *testing.T) {
	var bodies []string
	server := webhook(t, http.StatusOK, &bodies)

	teams := NewTeams(server.URL, "https://jamf.example.com")
	teams.TriggerKey = "Patch policy created or modified"

	result, err := teams.Post(context.Background(), patchSummary(report.Bool(false)))
	require.NoError(t, err)
	assert.Equal(t, TeamsResult{}, result)
	assert.Empty(t, bodies)
}

func TestTeamsNon200(t *testing.T) {
	for _, status := range []int{http.StatusCreated, http.StatusBadRequest} {
		var bodies []string
		server := webhook(t, status, &bodies)

		_, err := NewTeams(server.URL, "").Post(context.Background(), patchSummary(report.Bool(true)))
		require.Error(t, err)
		assert.True(t, errors.IsRemote(err))
		assert.Contains(t, err.Error(), "webhook says no")
	}
}

func TestTeamsServerError(t *testing.T) {
	var bodies []string
	server := webhook(t, http.StatusInternalServerError, &bodies)

	_, err := NewTeams(server.URL, "").Post(context.Background(), patchSummary(report.Bool(true)))
	assert.True(t, errors.IsTransport(err))
}

// sent captures one SendFunc call.
type sent struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func recorder(calls *[]sent, err error) SendFunc {
	return func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*calls = append(*calls, sent{addr: addr, auth: a, from: from, to: to, msg: string(msg)})
		return err
	}
}

func TestMailCompose(t *testing.T) {
	m := &Mail{ServerURL: "https://jamf.example.com", ProductName: "Mozilla Firefox"}

	msg, ok := m.Compose(patchSummary(report.Bool(true)))
	require.True(t, ok)
	assert.Equal(t, "New uploaded package for Mozilla Firefox is available", msg.Subject)
	assert.Equal(t, "A new version of Mozilla Firefox has been uploaded\n"+
		"Jamf Pro Server : https://jamf.example.com\n"+
		"Package : Firefox-121.0.pkg\n"+
		"Version : 121.0\n"+
		"Policy : Firefox - 121.0\n", msg.Body)
}

func TestMailComposeImporterSummary(t *testing.T) {
	s := report.New("The following changes were made to the JSS:")
	s.Set("Name", report.String("Firefox"))
	s.Set("Package", report.String("Firefox-121.0.pkg"))
	s.Set("Policy", report.String("Install Firefox"))

	msg, ok := (&Mail{}).Compose(s)
	require.True(t, ok)
	assert.Equal(t, "New uploaded package for Firefox is available", msg.Subject)
	assert.Contains(t, msg.Body, "Policy : Install Firefox\n")

	s.Set("Package", report.String(""))
	_, ok = (&Mail{}).Compose(s)
	assert.False(t, ok)
}

func TestMailNotify(t *testing.T) {
	var calls []sent
	m := &Mail{
		Addr:      "mail.example.com",
		From:      "autopkg@example.com",
		To:        []string{"admins@example.com", "ops@example.com"},
		ServerURL: "https://jamf.example.com",
		Send:      recorder(&calls, nil),
	}

	ok, err := m.Notify(context.Background(), patchSummary(report.Bool(true)))
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, calls, 1)
	call := calls[0]
	assert.Equal(t, "mail.example.com:25", call.addr)
	assert.Nil(t, call.auth)
	assert.Equal(t, "autopkg@example.com", call.from)
	assert.Equal(t, []string{"admins@example.com", "ops@example.com"}, call.to)
	assert.True(t, strings.HasPrefix(call.msg, "From: autopkg@example.com\r\nTo: admins@example.com, ops@example.com\r\n"))
	assert.Contains(t, call.msg, "Subject: New uploaded package for Firefox is available\r\n")
	assert.Contains(t, call.msg, "\r\n\r\nA new version of Firefox has been uploaded\r\n")
}

func TestMailBytesHeaders(t *testing.T) {
	m := &Mail{
		From: "autopkg@example.com\r\nBcc: evil@example.com",
		To:   []string{"admins@example.com\n"},
	}

	raw := string(m.Bytes(Message{Subject: "New uploaded package for Firefox\r\nBcc: evil@example.com is available", Body: "body\n"}))
	headers, _, found := strings.Cut(raw, "\r\n\r\n")
	require.True(t, found)
	assert.NotContains(t, headers, "\r\nBcc:")
	assert.Contains(t, headers, "To: admins@example.com\r\n")

	raw = string(m.Bytes(Message{Subject: "New uploaded package for Café is available"}))
	assert.Contains(t, raw, "Subject: =?utf-8?q?")
	assert.Contains(t, raw, "Caf=C3=A9")
	assert.NotContains(t, raw, "Café")
}

func TestMailNotifyGates(t *testing.T) {
	var calls []sent
	m := &Mail{
		From:       "a@example.com",
		To:         []string{"b@example.com"},
		TriggerKey: "Patch policy created or modified",
		Send:       recorder(&calls, nil),
	}

	ok, err := m.Notify(context.Background(), patchSummary(report.Bool(false)))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, calls)
}

func TestMailNotifyErrors(t *testing.T) {
	var calls []sent

	_, err := (&Mail{Send: recorder(&calls, nil)}).Notify(context.Background(), patchSummary(report.Bool(true)))
	assert.True(t, errors.IsValidationError(err))

	m := &Mail{From: "a@example.com", To: []string{"b@example.com"}, Send: recorder(&calls, io.ErrUnexpectedEOF)}
	_, err = m.Notify(context.Background(), patchSummary(report.Bool(true)))
	assert.True(t, errors.IsTransport(err))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls = nil
	_, err = m.Notify(ctx, patchSummary(report.Bool(true)))
	assert.True(t, errors.IsCanceled(err))
	assert.Empty(t, calls)
}

func TestSMTPAddr(t *testing.T) {
	assert.Equal(t, "mail.example.com:25", SMTPAddr("mail.example.com"))
	assert.Equal(t, "mail.example.com:587", SMTPAddr("mail.example.com:587"))
	assert.Equal(t, "[::1]:25", SMTPAddr("::1"))
}

// stubSink records calls and returns a fixed outcome.
type stubSink struct {
	name  string
	sent  bool
	err   error
	calls int
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) Notify(context.Context, *report.Summary) (bool, error) {
	s.calls++
	return s.sent, s.err
}

func TestDispatch(t *testing.T) {
	failing := &stubSink{name: "teams", err: errors.NewRemoteError("post", "x", 400, "bad")}
	skipped := &stubSink{name: "skipped"}
	working := &stubSink{name: "mail", sent: true}

	err := Dispatch(context.Background(), report.New("x"), failing, skipped, working)
	require.Error(t, err)
	assert.True(t, errors.IsRemote(err))
	assert.Contains(t, err.Error(), "teams:")

	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, skipped.calls)
	assert.Equal(t, 1, working.calls)

	assert.NoError(t, Dispatch(context.Background(), report.New("x"), working))
}
