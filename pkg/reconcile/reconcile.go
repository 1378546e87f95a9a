// Package reconcile attaches a freshly uploaded package to its patch software
// title and makes sure a patch policy exists for the matched version.
//
// A run is a fixed sequence of remote calls:
//
//  1. resolve the patch source by name (internal first, then external)
//  2. fetch the software title and check it belongs to that source
//  3. match the package version against the title's known versions
//  4. attach the package to the title unless it is already attached
//  5. look for a patch policy targeting the matched version
//  6. create one from the policy template when none exists
//
// Any failure aborts the run; nothing is retried and no report is produced.
package reconcile

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/agentstation/patchpilot/pkg/constants"
	"github.com/agentstation/patchpilot/pkg/errors"
	"github.com/agentstation/patchpilot/pkg/jamf"
	"github.com/agentstation/patchpilot/pkg/logging"
	"github.com/agentstation/patchpilot/pkg/report"
	"github.com/agentstation/patchpilot/pkg/template"
)

// API is the part of the management server the reconciler talks to.
// *jamf.Client implements it.
type API interface {
	PatchSource(ctx context.Context, kind jamf.SourceKind, name string) (*jamf.PatchSource, error)
	SoftwareTitle(ctx context.Context, id string) (*jamf.SoftwareTitle, error)
	UpdateSoftwareTitle(ctx context.Context, id string, body []byte) error
	PatchPolicies(ctx context.Context, titleID string) ([]jamf.PolicySummary, error)
	PatchPolicy(ctx context.Context, id string) (*jamf.PatchPolicy, error)
	CreatePatchPolicy(ctx context.Context, titleID string, body []byte) error
	PackageByName(ctx context.Context, name string) (*jamf.Package, error)
}

var _ API = (*jamf.Client)(nil)

// Config identifies what to reconcile.
type Config struct {
	// ServerURL is the management server, used for messages only.
	ServerURL string

	// PatchServer is the name of the patch source the title must come from.
	PatchServer string

	// SoftwareTitleID is the software title configuration id.
	SoftwareTitleID string
}

// Validate checks that the required settings are present.
func (c Config) Validate() error {
	if strings.TrimSpace(c.PatchServer) == "" {
		return errors.NewValidationError("patch_server", c.PatchServer, "is required")
	}
	if strings.TrimSpace(c.SoftwareTitleID) == "" {
		return errors.NewValidationError("softwaretitleconfig_id", c.SoftwareTitleID, "is required")
	}
	return nil
}

// Reconciler runs one reconciliation against an API.
type Reconciler struct {
	cfg       Config
	api       API
	templates *template.Locator
	dryRun    bool
	now       func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithTemplates sets the template locator. The default only has the
// embedded templates.
func WithTemplates(l *template.Locator) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.templates = l
		}
	}
}

// WithDryRun makes the reconciler render templates and report its decisions
// without issuing the update and create calls.
func WithDryRun(dryRun bool) Option {
	return func(r *Reconciler) {
		r.dryRun = dryRun
	}
}

// New creates a Reconciler.
func New(cfg Config, api API, opts ...Option) *Reconciler {
	r := &Reconciler{
		cfg: cfg,
		api: api,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.templates == nil {
		r.templates = template.NewLocator()
	}
	return r
}

// Reconcile runs the reconciliation and returns the report handed to the
// notification sinks.
func (r *Reconciler) Reconcile(ctx context.Context, pkg PackageSummary) (*report.Summary, error) {
	result, err := r.Run(ctx, pkg)
	if err != nil {
		return nil, err
	}
	return result.Summary(), nil
}

// Run performs the reconciliation and returns every decision taken.
func (r *Reconciler) Run(ctx context.Context, pkg PackageSummary) (*Result, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := pkg.Validate(); err != nil {
		return nil, err
	}

	ctx = logging.WithTitle(logging.WithPatchServer(ctx, r.cfg.PatchServer), r.cfg.SoftwareTitleID)
	log := logging.FromContext(ctx)

	result := &Result{
		PatchServer: r.cfg.PatchServer,
		TitleID:     r.cfg.SoftwareTitleID,
		Package:     pkg,
		PolicyName:  ExpectedPolicyName(pkg),
		DryRun:      r.dryRun,
		StartTime:   r.now(),
	}

	source, err := r.resolveSource(ctx)
	if err != nil {
		return nil, err
	}
	result.Source = *source

	log.Info().Msg("Looking for the software title")
	title, err := r.api.SoftwareTitle(ctx, r.cfg.SoftwareTitleID)
	if err != nil {
		return nil, err
	}
	log.Info().Str("title", title.Name).Msg("The software title has been found")

	if strings.TrimSpace(title.SourceID) != strings.TrimSpace(source.ID) {
		return nil, errors.NewLinkageError(r.cfg.SoftwareTitleID, title.SourceID, r.cfg.PatchServer, source.ID)
	}

	version, exact, ok := MatchVersion(title.VersionStrings(), pkg.Version)
	if !ok {
		return nil, errors.NewNotFoundError("software title version", pkg.Version)
	}
	result.MatchedVersion = version
	if exact {
		log.Info().Str("version", version).Msg("The package's version has been found on the software title")
	} else {
		log.Info().Str("version", version).Str("package_version", pkg.Version).
			Msg("The package's version can be used for the software title version")
	}

	if err := r.attachPackage(ctx, title, pkg, result); err != nil {
		return nil, err
	}

	needed, err := r.needsPolicy(ctx, version, result.PolicyName)
	if err != nil {
		return nil, err
	}

	if needed {
		if err := r.createPolicy(ctx, pkg, version, result); err != nil {
			return nil, err
		}
	} else {
		log.Info().Msg("No patch policy had been created")
	}

	result.EndTime = r.now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	return result, nil
}

// resolveSource looks the patch server up as an internal source, then as an
// external one.
func (r *Reconciler) resolveSource(ctx context.Context) (*jamf.PatchSource, error) {
	log := logging.FromContext(ctx)
	log.Info().Msg("Looking for the patch server")

	for _, kind := range []jamf.SourceKind{jamf.SourceInternal, jamf.SourceExternal} {
		source, err := r.api.PatchSource(ctx, kind, r.cfg.PatchServer)
		if err == nil {
			log.Info().Str("kind", string(kind)).Str("source_id", source.ID).Msg("The patch server has been found")
			return source, nil
		}
		if !errors.IsNotFound(err) {
			return nil, err
		}
		log.Debug().Str("kind", string(kind)).Msg("Patch server not found")
	}

	return nil, errors.NewNotFoundError("patch server", r.cfg.PatchServer)
}

// attachPackage adds the package to the title definition unless its name and
// id are both already attached.
func (r *Reconciler) attachPackage(ctx context.Context, title *jamf.SoftwareTitle, pkg PackageSummary, result *Result) error {
	log := logging.FromContext(ctx)

	record, err := r.api.PackageByName(ctx, pkg.Package)
	if err != nil {
		return err
	}
	result.PackageID = record.ID

	names, ids := title.AttachedPackages()
	if slices.Contains(names, pkg.Package) && slices.Contains(ids, record.ID) {
		log.Info().Str("package", pkg.Package).Msg("The package's version is already part of the software title's definition")
		return nil
	}

	body, err := r.templates.RenderFile(constants.SoftwareTitleTemplate, template.Values{
		"NAME":         pkg.Name,
		"NAME_ID":      title.NameID,
		"SOURCE":       title.SourceID,
		"VERSION":      result.MatchedVersion,
		"PACKAGE_ID":   record.ID,
		"PACKAGE_NAME": pkg.Package,
	})
	if err != nil {
		return err
	}

	result.TitleUpdated = true
	if r.dryRun {
		log.Info().Str("package", pkg.Package).Msg("Dry run: would add the package's version to the software title's definition")
		return nil
	}

	log.Info().Str("package", pkg.Package).Msg("Adding package's version to the software title's definition")
	if err := r.api.UpdateSoftwareTitle(ctx, r.cfg.SoftwareTitleID, body); err != nil {
		return fmt.Errorf("updating software title %s: %w", r.cfg.SoftwareTitleID, err)
	}
	return nil
}

// needsPolicy reports whether no existing policy targets version. Policies
// are keyed on version only: one with another name still counts.
func (r *Reconciler) needsPolicy(ctx context.Context, version, expectedName string) (bool, error) {
	log := logging.FromContext(ctx)
	log.Info().Msg("Looking for patch policies")

	policies, err := r.api.PatchPolicies(ctx, r.cfg.SoftwareTitleID)
	if err != nil {
		return false, err
	}
	if len(policies) == 0 {
		log.Info().Msg("A patch policy for the software title needs to be created")
		return true, nil
	}

	needed := true
	for _, summary := range policies {
		policy, err := r.api.PatchPolicy(ctx, summary.ID)
		if err != nil {
			return false, err
		}
		if policy.TargetVersion != version {
			continue
		}
		needed = false
		if policy.Name == expectedName {
			log.Info().Str("policy", expectedName).Msg("The patch policy already exists for the software title")
		} else {
			log.Warn().Str("policy", policy.Name).Str("expected", expectedName).Str("version", version).
				Msg("A patch policy already exists for this version with a different name")
		}
	}
	return needed, nil
}

func (r *Reconciler) createPolicy(ctx context.Context, pkg PackageSummary, version string, result *Result) error {
	log := logging.FromContext(ctx)

	body, err := r.templates.RenderFile(constants.PatchPolicyTemplate, template.Values{
		"NAME":    pkg.Name,
		"JAMF_ID": r.cfg.SoftwareTitleID,
		"VERSION": version,
	})
	if err != nil {
		return err
	}

	result.PolicyCreated = true
	if r.dryRun {
		log.Info().Str("policy", result.PolicyName).Msg("Dry run: would create the patch policy")
		return nil
	}

	log.Info().Msg("No patch policy found for the software title")
	if err := r.api.CreatePatchPolicy(ctx, r.cfg.SoftwareTitleID, body); err != nil {
		return fmt.Errorf("creating patch policy %q: %w", result.PolicyName, err)
	}
	log.Info().Str("policy", result.PolicyName).Msg("The patch policy has been created")
	return nil
}

// ExpectedPolicyName is the name a policy created for pkg carries.
func ExpectedPolicyName(pkg PackageSummary) string {
	return fmt.Sprintf("%s - %s", pkg.Name, pkg.Version)
}

// MatchVersion picks the title version a package version belongs to. The
// first exact match wins; failing that, the first entry the package version
// starts with. exact reports which rule matched.
func MatchVersion(versions []string, pkgVersion string) (version string, exact, ok bool) {
	for _, v := range versions {
		if v == pkgVersion {
			return v, true, true
		}
	}
	for _, v := range versions {
		if v != "" && strings.HasPrefix(pkgVersion, v) {
			return v, false, true
		}
	}
	return "", false, false
}
