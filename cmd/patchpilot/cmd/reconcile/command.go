// Package reconcile provides the reconcile command implementation.
package reconcile

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentstation/patchpilot/internal/appcontext"
	"github.com/agentstation/patchpilot/internal/output"
	"github.com/agentstation/patchpilot/pkg/constants"
	"github.com/agentstation/patchpilot/pkg/logging"
	"github.com/agentstation/patchpilot/pkg/report"
	patch "github.com/agentstation/patchpilot/pkg/reconcile"
)

// Flags holds the reconcile command flags.
type Flags struct {
	Summary     string
	PatchServer string
	TitleID     string
	Report      string
	DryRun      bool

	// Used when no importer summary is given.
	Name     string
	Version  string
	Package  string
	Uploaded bool
}

// NewCommand creates the reconcile command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "reconcile",
		GroupID: "core",
		Short:   "Attach an uploaded package to its patch title and policy",
		Args:    cobra.NoArgs,
		Long: `Reconcile links a newly uploaded package to the matching version of a
patch software title and makes sure a patch policy targets that version.

The package is read from the importer summary (--summary) or given with
--name, --version and --package. The command:
• Resolves the patch server by name (internal sources first)
• Checks the software title belongs to that patch server
• Attaches the package to the matching title version
• Creates a patch policy for the version when none exists

The resulting change report is printed and optionally saved with --report
for the notify commands.`,
		Example: `  patchpilot reconcile --summary Firefox.yaml --patch-server "Jamf Patch" --title-id 12
  patchpilot reconcile --name Firefox --version 121.0 --package Firefox-121.0.pkg --patch-server "Jamf Patch" --title-id 12
  patchpilot reconcile --summary Firefox.yaml --patch-server "Jamf Patch" --title-id 12 --report changes.json
  patchpilot reconcile --summary Firefox.yaml --patch-server "Jamf Patch" --title-id 12 --dry-run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Execute(cmd, app, flags)
		},
	}

	cmd.Flags().StringVar(&flags.Summary, "summary", "", "importer summary file (yaml or json)")
	cmd.Flags().StringVar(&flags.PatchServer, "patch-server", "", "name of the patch source the title comes from")
	cmd.Flags().StringVar(&flags.TitleID, "title-id", "", "software title configuration id")
	cmd.Flags().StringVar(&flags.Report, "report", "", "write the change report to this file (yaml or json)")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "render and report changes without applying them")
	cmd.Flags().StringVar(&flags.Name, "name", "", "product name (without --summary)")
	cmd.Flags().StringVar(&flags.Version, "version", "", "package version (without --summary)")
	cmd.Flags().StringVar(&flags.Package, "package", "", "package name (without --summary)")
	cmd.Flags().BoolVar(&flags.Uploaded, "uploaded", false, "the package was uploaded by this run (without --summary)")

	cmd.MarkFlagsMutuallyExclusive("summary", "name")
	cmd.MarkFlagsMutuallyExclusive("summary", "package")

	return cmd
}

// Execute runs a reconciliation with the given flags and prints the report.
func Execute(cmd *cobra.Command, app appcontext.Interface, flags *Flags) error {
	format, err := output.ParseFormat(app.OutputFormat())
	if err != nil {
		return err
	}

	pkg, err := packageSummary(flags)
	if err != nil {
		return err
	}

	api, err := app.ManagementAPI()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), constants.CommandTimeout)
	defer cancel()
	ctx = logging.WithOperation(logging.WithLogger(ctx, app.Logger()), "reconcile")

	r := patch.New(patch.Config{
		ServerURL:       app.Settings().ServerURL,
		PatchServer:     flags.PatchServer,
		SoftwareTitleID: flags.TitleID,
	}, api,
		patch.WithTemplates(app.Templates()),
		patch.WithDryRun(flags.DryRun),
	)

	summary, err := r.Reconcile(ctx, pkg)
	if err != nil {
		return err
	}

	if flags.Report != "" {
		if err := report.Save(flags.Report, summary); err != nil {
			return err
		}
		app.Logger().Debug().Str("path", flags.Report).Msg("Saved change report")
	}

	return output.FormatSummary(cmd.OutOrStdout(), summary, output.DetectFormat(string(format)))
}

func packageSummary(flags *Flags) (patch.PackageSummary, error) {
	if flags.Summary != "" {
		s, err := report.Load(flags.Summary)
		if err != nil {
			return patch.PackageSummary{}, err
		}
		return patch.PackageSummaryFrom(s)
	}

	pkg := patch.PackageSummary{
		Name:     flags.Name,
		Version:  flags.Version,
		Package:  flags.Package,
		Uploaded: flags.Uploaded,
	}
	return pkg, pkg.Validate()
}
