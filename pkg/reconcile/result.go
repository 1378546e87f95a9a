package reconcile

import (
	"strings"
	"time"

	"github.com/agentstation/patchpilot/pkg/errors"
	"github.com/agentstation/patchpilot/pkg/jamf"
	"github.com/agentstation/patchpilot/pkg/report"
)

// SummaryText heads every reconciliation report.
const SummaryText = "The following changes were made to the Patch Management:"

// Report field names, in report order.
const (
	FieldPatchServer   = "Patch Server"
	FieldTitle         = "Software title"
	FieldTitleVersion  = "Software title version"
	FieldPackage       = "Package"
	FieldVersion       = "Version"
	FieldPolicy        = "Patch policy"
	FieldUploaded      = "Package Uploaded"
	FieldPolicyChanged = "Patch policy created or modified"
)

// Fields lists the report fields in order.
var Fields = []string{
	FieldPatchServer,
	FieldTitle,
	FieldTitleVersion,
	FieldPackage,
	FieldVersion,
	FieldPolicy,
	FieldUploaded,
	FieldPolicyChanged,
}

// Importer summary keys read by PackageSummaryFrom.
const (
	importerName     = "Name"
	importerVersion  = "Version"
	importerPackage  = "Package"
	importerUploaded = "Package_Uploaded"
)

// PackageSummary describes the package produced by the upstream importer.
type PackageSummary struct {
	Name     string `json:"name" yaml:"name"`
	Version  string `json:"version" yaml:"version"`
	Package  string `json:"package" yaml:"package"`
	Uploaded bool   `json:"uploaded" yaml:"uploaded"`
}

// Validate checks the fields the reconciler needs.
func (p PackageSummary) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return errors.NewValidationError(importerName, p.Name, "is required")
	case strings.TrimSpace(p.Version) == "":
		return errors.NewValidationError(importerVersion, p.Version, "is required")
	case strings.TrimSpace(p.Package) == "":
		return errors.NewValidationError(importerPackage, p.Package, "is required")
	}
	return nil
}

// PackageSummaryFrom reads a package summary out of an importer report.
func PackageSummaryFrom(s *report.Summary) (PackageSummary, error) {
	if s == nil {
		return PackageSummary{}, errors.NewValidationError("summary", nil, "is required")
	}
	uploaded, _ := s.Get(importerUploaded)
	pkg := PackageSummary{
		Name:     s.Text(importerName),
		Version:  s.Text(importerVersion),
		Package:  s.Text(importerPackage),
		Uploaded: uploaded.Truthy(),
	}
	return pkg, pkg.Validate()
}

// Result records what a run found and did.
type Result struct {
	PatchServer    string           `json:"patch_server" yaml:"patch_server"`
	Source         jamf.PatchSource `json:"source" yaml:"source"`
	TitleID        string           `json:"softwaretitle_id" yaml:"softwaretitle_id"`
	Package        PackageSummary   `json:"package" yaml:"package"`
	PackageID      string           `json:"package_id" yaml:"package_id"`
	MatchedVersion string           `json:"matched_version" yaml:"matched_version"`
	PolicyName     string           `json:"policy_name" yaml:"policy_name"`
	TitleUpdated   bool             `json:"title_updated" yaml:"title_updated"`
	PolicyCreated  bool             `json:"policy_created" yaml:"policy_created"`
	DryRun         bool             `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`

	StartTime time.Time     `json:"start_time" yaml:"start_time"`
	EndTime   time.Time     `json:"end_time" yaml:"end_time"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Summary builds the report consumed by the notification sinks.
func (r *Result) Summary() *report.Summary {
	s := report.New(SummaryText, Fields...)
	s.Set(FieldPatchServer, report.String(r.PatchServer))
	s.Set(FieldTitle, report.String(r.Package.Name))
	s.Set(FieldTitleVersion, report.String(r.MatchedVersion))
	s.Set(FieldPackage, report.String(r.Package.Package))
	s.Set(FieldVersion, report.String(r.Package.Version))
	s.Set(FieldPolicy, report.String(r.PolicyName))
	s.Set(FieldUploaded, report.Bool(r.Package.Uploaded))
	s.Set(FieldPolicyChanged, report.Bool(r.PolicyCreated))
	return s
}
