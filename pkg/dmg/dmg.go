// Package dmg strips the license agreement from a disk image by converting
// it to a CD/DVD master and back to a .dmg name.
package dmg

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/agentstation/patchpilot/pkg/errors"
	"github.com/agentstation/patchpilot/pkg/logging"
)

// DefaultHDIUtil is the disk image tool shipped with macOS.
const DefaultHDIUtil = "/usr/bin/hdiutil"

// ConvertedSuffix is appended to the image base name.
const ConvertedSuffix = "_Converted"

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec // arguments are built by Convert
}

// Converter converts disk images.
type Converter struct {
	HDIUtil string
	Runner  Runner

	rename func(oldpath, newpath string) error
}

// NewConverter returns a converter using hdiutil through os/exec.
func NewConverter() *Converter {
	return &Converter{HDIUtil: DefaultHDIUtil, Runner: ExecRunner{}, rename: os.Rename}
}

// OutputBase returns the path hdiutil writes to, without extension.
func OutputBase(path string) string {
	return strings.TrimSuffix(path, ".dmg") + ConvertedSuffix
}

// Convert re-encodes the image at path and returns the path of the
// converted .dmg.
func (c *Converter) Convert(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.NewValidationError("dmg_path", path, "is required")
	}

	tool := c.HDIUtil
	if tool == "" {
		tool = DefaultHDIUtil
	}
	runner := c.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	rename := c.rename
	if rename == nil {
		rename = os.Rename
	}

	base := OutputBase(path)
	args := []string{"convert", "-quiet", path, "-format", "UDTO", "-o", base}

	log := logging.FromContext(ctx)
	log.Info().Str("dmg", path).Msg("Removing license agreement")

	if output, err := runner.Run(ctx, tool, args...); err != nil {
		return "", &errors.ProcessError{
			Operation: "convert disk image",
			Command:   tool + " " + strings.Join(args, " "),
			Output:    string(output),
			Err:       err,
		}
	}

	converted := base + ".dmg"
	if err := rename(base+".cdr", converted); err != nil {
		return "", errors.WrapIO("rename", base+".cdr", err)
	}

	log.Info().Str("pathname", converted).Msg("Disk image converted")
	return converted, nil
}
