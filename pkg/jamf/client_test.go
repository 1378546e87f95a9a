package jamf

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/patchpilot/pkg/errors"
)

// recorded is a request seen by the fake management server.
type recorded struct {
	Method string
	Path   string
	Body   string
	User   string
}

// newServer serves fixed responses keyed by "METHOD path".
func newServer(t *testing.T, routes map[string]func(w http.ResponseWriter)) (*Client, *[]recorded) {
	t.Helper()
	var seen []recorded

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		user, _, _ := r.BasicAuth()
		seen = append(seen, recorded{Method: r.Method, Path: r.URL.EscapedPath(), Body: string(body), User: user})

		if handler, ok := routes[r.Method+" "+r.URL.EscapedPath()]; ok {
			handler(w)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	return NewClient(server.URL+"/", Credentials{Username: "api", Password: "secret"}), &seen
}

func fixture(t *testing.T, name string) func(w http.ResponseWriter) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write(data)
	}
}

func status(code int) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) { w.WriteHeader(code) }
}

func TestSoftwareTitle(t *testing.T) {
	client, seen := newServer(t, map[string]func(http.ResponseWriter){
		"GET /JSSResource/patchsoftwaretitles/id/12": fixture(t, "software_title.xml"),
	})

	title, err := client.SoftwareTitle(context.Background(), "12")
	require.NoError(t, err)

	assert.Equal(t, "12", title.ID)
	assert.Equal(t, "Firefox", title.Name)
	assert.Equal(t, "Firefox", title.NameID)
	assert.Equal(t, "1", title.SourceID)
	assert.Equal(t, []string{"121.0", "120.0.1", "120.0"}, title.VersionStrings())

	names, ids := title.AttachedPackages()
	assert.Equal(t, []string{"Firefox-120.0.1.pkg", "Firefox-120.0.pkg"}, names)
	assert.Equal(t, []string{"41", "40"}, ids)

	require.Len(t, *seen, 1)
	assert.Equal(t, "api", (*seen)[0].User)
}

func TestSoftwareTitleNotFound(t *testing.T) {
	client, _ := newServer(t, nil)

	_, err := client.SoftwareTitle(context.Background(), "99")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, err.Error(), "99")
}

func TestPatchSource(t *testing.T) {
	client, seen := newServer(t, map[string]func(http.ResponseWriter){
		"GET /JSSResource/patchexternalsources/name/Community%20Patch": fixture(t, "patch_external_source.xml"),
	})

	_, err := client.PatchSource(context.Background(), SourceInternal, "Community Patch")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	source, err := client.PatchSource(context.Background(), SourceExternal, "Community Patch")
	require.NoError(t, err)
	assert.Equal(t, "2", source.ID)
	assert.Equal(t, "Community Patch", source.Name)
	assert.Equal(t, SourceExternal, source.Kind)

	require.Len(t, *seen, 2)
	assert.Equal(t, "/JSSResource/patchinternalsources/name/Community%20Patch", (*seen)[0].Path)
}

func TestPatchPolicies(t *testing.T) {
	client, _ := newServer(t, map[string]func(http.ResponseWriter){
		"GET /JSSResource/patchpolicies/softwaretitleconfig/id/12": fixture(t, "patch_policies.xml"),
		"GET /JSSResource/patchpolicies/id/3":                      fixture(t, "patch_policy.xml"),
	})

	policies, err := client.PatchPolicies(context.Background(), "12")
	require.NoError(t, err)
	assert.Equal(t, []PolicySummary{
		{ID: "3", Name: "Firefox - 120.0"},
		{ID: "4", Name: "Firefox - 120.0.1"},
	}, policies)

	policy, err := client.PatchPolicy(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, &PatchPolicy{
		ID:              "3",
		Name:            "Firefox - 120.0",
		TargetVersion:   "120.0",
		SoftwareTitleID: "12",
	}, policy)
}

func TestPatchPoliciesNotFoundIsEmpty(t *testing.T) {
	client, _ := newServer(t, nil)

	policies, err := client.PatchPolicies(context.Background(), "12")
	require.NoError(t, err)
	assert.Empty(t, policies)
}

func TestPackageByName(t *testing.T) {
	client, _ := newServer(t, map[string]func(http.ResponseWriter){
		"GET /JSSResource/packages/name/Firefox-121.0.pkg": fixture(t, "package.xml"),
	})

	pkg, err := client.PackageByName(context.Background(), "Firefox-121.0.pkg")
	require.NoError(t, err)
	assert.Equal(t, "42", pkg.ID)
}

func TestMutatingCalls(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		wantRemote bool
	}{
		{name: "created", code: http.StatusCreated},
		{name: "ok", code: http.StatusOK},
		{name: "conflict", code: http.StatusConflict, wantRemote: true},
		{name: "unauthorized", code: http.StatusUnauthorized, wantRemote: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, seen := newServer(t, map[string]func(http.ResponseWriter){
				"PUT /JSSResource/patchsoftwaretitles/id/12":                 status(tt.code),
				"POST /JSSResource/patchpolicies/softwaretitleconfig/id/12": status(tt.code),
			})

			errUpdate := client.UpdateSoftwareTitle(context.Background(), "12", []byte("<patch_software_title/>"))
			errCreate := client.CreatePatchPolicy(context.Background(), "12", []byte("<patch_policy/>"))

			if tt.wantRemote {
				assert.True(t, errors.IsRemote(errUpdate))
				assert.True(t, errors.IsRemote(errCreate))
			} else {
				assert.NoError(t, errUpdate)
				assert.NoError(t, errCreate)
			}

			require.Len(t, *seen, 2)
			assert.Equal(t, "<patch_software_title/>", (*seen)[0].Body)
			assert.Equal(t, "<patch_policy/>", (*seen)[1].Body)
		})
	}
}

func TestServerErrorIsTransport(t *testing.T) {
	client, _ := newServer(t, map[string]func(http.ResponseWriter){
		"GET /JSSResource/patchsoftwaretitles/id/12": status(http.StatusInternalServerError),
	})

	_, err := client.SoftwareTitle(context.Background(), "12")
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
}

func TestMalformedXML(t *testing.T) {
	client, _ := newServer(t, map[string]func(http.ResponseWriter){
		"GET /JSSResource/packages/name/broken.pkg": func(w http.ResponseWriter) {
			_, _ = w.Write([]byte("<package><id>1</id>"))
		},
	})

	_, err := client.PackageByName(context.Background(), "broken.pkg")
	require.Error(t, err)
	var pe *errors.ParseError
	assert.ErrorAs(t, err, &pe)
}
