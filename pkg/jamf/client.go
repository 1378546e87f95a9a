// Package jamf is a small client for the classic management API endpoints
// used to reconcile patch software titles and patch policies.
package jamf

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentstation/patchpilot/internal/transport"
	"github.com/agentstation/patchpilot/pkg/constants"
	"github.com/agentstation/patchpilot/pkg/errors"
)

// Credentials are the two plaintext values used for basic authentication.
type Credentials struct {
	Username string
	Password string
}

// Client talks to the classic API of one management server.
type Client struct {
	baseURL   string
	transport *transport.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, creds Credentials, opts ...transport.Option) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		transport: transport.New(&transport.BasicAuth{Username: creds.Username, Password: creds.Password}, opts...),
	}
}

// BaseURL returns the server URL without trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) url(parts ...string) string {
	return c.baseURL + constants.APIPrefix + "/" + strings.Join(parts, "/")
}

// get fetches and decodes a resource. A 404 becomes a NotFoundError for
// resource/id; any other non-success status is a RemoteError.
func (c *Client) get(ctx context.Context, endpoint, resource, id string, target any) error {
	resp, err := c.transport.Get(ctx, endpoint, constants.ContentTypeXML)
	if err != nil {
		return err
	}
	if resp.NotFound() {
		return errors.NewNotFoundError(resource, id)
	}
	if !resp.OK() {
		return errors.NewRemoteError("fetch "+resource, endpoint, resp.StatusCode, string(resp.Body))
	}
	if err := xml.Unmarshal(resp.Body, target); err != nil {
		return errors.WrapParse("xml", resource, err)
	}
	return nil
}

// send submits a rendered document and requires a 200/201 answer.
func (c *Client) send(ctx context.Context, method, endpoint, operation string, body []byte) error {
	resp, err := c.transport.Do(ctx, method, endpoint, constants.ContentTypeXML, body)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return errors.NewRemoteError(operation, endpoint, resp.StatusCode, string(resp.Body))
	}
	return nil
}

// PatchSource looks up a patch source of the given kind by name.
func (c *Client) PatchSource(ctx context.Context, kind SourceKind, name string) (*PatchSource, error) {
	var source PatchSource
	endpoint := c.url(kind.resource(), "name", url.PathEscape(name))
	if err := c.get(ctx, endpoint, fmt.Sprintf("%s patch server", kind), name, &source); err != nil {
		return nil, err
	}
	source.Kind = kind
	return &source, nil
}

// SoftwareTitle fetches a software title configuration by id.
func (c *Client) SoftwareTitle(ctx context.Context, id string) (*SoftwareTitle, error) {
	var title SoftwareTitle
	endpoint := c.url("patchsoftwaretitles", "id", url.PathEscape(id))
	if err := c.get(ctx, endpoint, "software title", id, &title); err != nil {
		return nil, err
	}
	return &title, nil
}

// UpdateSoftwareTitle replaces the software title definition with body.
func (c *Client) UpdateSoftwareTitle(ctx context.Context, id string, body []byte) error {
	endpoint := c.url("patchsoftwaretitles", "id", url.PathEscape(id))
	return c.send(ctx, http.MethodPut, endpoint, fmt.Sprintf("update software title %s", id), body)
}

// PatchPolicies lists the patch policies scoped to a software title. A title
// without policies may answer 404; that is an empty list.
func (c *Client) PatchPolicies(ctx context.Context, titleID string) ([]PolicySummary, error) {
	var list policyList
	endpoint := c.url("patchpolicies", "softwaretitleconfig", "id", url.PathEscape(titleID))
	if err := c.get(ctx, endpoint, "patch policies", titleID, &list); err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return list.Policies, nil
}

// PatchPolicy fetches a patch policy by id.
func (c *Client) PatchPolicy(ctx context.Context, id string) (*PatchPolicy, error) {
	var policy PatchPolicy
	endpoint := c.url("patchpolicies", "id", url.PathEscape(id))
	if err := c.get(ctx, endpoint, "patch policy", id, &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

// CreatePatchPolicy creates a patch policy for a software title from body.
func (c *Client) CreatePatchPolicy(ctx context.Context, titleID string, body []byte) error {
	endpoint := c.url("patchpolicies", "softwaretitleconfig", "id", url.PathEscape(titleID))
	return c.send(ctx, http.MethodPost, endpoint, "create patch policy", body)
}

// PackageByName looks up a package record by its file name.
func (c *Client) PackageByName(ctx context.Context, name string) (*Package, error) {
	var pkg Package
	endpoint := c.url("packages", "name", url.PathEscape(name))
	if err := c.get(ctx, endpoint, "package", name, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}
