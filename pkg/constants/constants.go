// Package constants provides shared constants used throughout patchpilot.
// This includes timeouts, file permissions, template names and the fixed
// report vocabulary shared by the reconciler and the notifiers.
package constants

import "time"

// Timeout constants
const (
	// DefaultHTTPTimeout is the standard timeout for requests to the management API and webhooks
	DefaultHTTPTimeout = 30 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 10 * time.Minute

	// ShutdownTimeout bounds cleanup after a failed command
	ShutdownTimeout = 5 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Management API constants
const (
	// APIPrefix is the path prefix of the classic management API
	APIPrefix = "/JSSResource"

	// ContentTypeXML is used for the classic API resources
	ContentTypeXML = "application/xml"

	// ContentTypeJSON is used for webhook payloads
	ContentTypeJSON = "application/json"
)

// Template constants
const (
	// SoftwareTitleTemplate is the template rendered when attaching a package to a software title
	SoftwareTitleTemplate = "SoftwareTitle.xml"

	// PatchPolicyTemplate is the template rendered when creating a patch policy
	PatchPolicyTemplate = "PatchPolicy.xml"

	// PostProcessorsDir is the subdirectory of each recipe search dir holding bundled templates
	PostProcessorsDir = "PostProcessors"
)

// Mail constants
const (
	// DefaultSMTPPort is used when the SMTP address carries no port
	DefaultSMTPPort = "25"
)

// Path constants
const (
	// DefaultConfigName is the config file name searched in $HOME and the working directory
	DefaultConfigName = ".patchpilot"
)
