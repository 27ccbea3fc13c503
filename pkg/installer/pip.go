package installer

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ewagner-dev/nestup/pkg/errors"
	"github.com/ewagner-dev/nestup/pkg/logging"
)

// satisfiedMarkers are stderr phrases that mean the package is effectively
// present already; pip exits non-zero for some of them but the install goal
// is met.
var satisfiedMarkers = []string{
	"already satisfied",
	"requirement already satisfied",
	"dependency conflict",
	"conflicting dependencies",
	"version conflict",
	"incompatible dependencies",
}

// Pip implements Backend by shelling out to the environment's pip.
type Pip struct{}

// NewPip creates a pip backend.
func NewPip() *Pip {
	return &Pip{}
}

// ValidateEnv checks that envPath looks like a usable virtual environment.
func ValidateEnv(envPath string) error {
	if _, err := os.Stat(envPath); err != nil {
		return errors.Wrap(err, errors.ErrEnvInvalid, "environment path does not exist").
			WithDetail("path", envPath)
	}
	python := filepath.Join(envPath, "bin", "python")
	if runtime.GOOS == "windows" {
		python = filepath.Join(envPath, "Scripts", "python.exe")
	}
	if _, err := os.Stat(python); err != nil {
		return errors.Wrap(err, errors.ErrEnvInvalid, "python executable not found in environment").
			WithDetail("path", python)
	}
	return nil
}

// Install installs each spec separately so one failing package does not
// block the rest. The returned slice holds the specs that failed.
func (p *Pip) Install(ctx context.Context, envPath string, specs []string) ([]string, error) {
	logger := logging.GetLogger("installer.pip")
	pip := pipPath(envPath)

	var failed []string
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return failed, wrapCtxErr(err, spec)
		}

		cmd := exec.CommandContext(ctx, pip, "install", spec)
		out, err := cmd.CombinedOutput()
		if err == nil {
			logger.Debug().Str("spec", spec).Msg("Installed package")
			continue
		}
		if ctx.Err() == context.DeadlineExceeded {
			return failed, wrapCtxErr(ctx.Err(), spec)
		}
		if isSatisfied(string(out)) {
			logger.Debug().Str("spec", spec).Msg("Package already satisfied")
			continue
		}

		logger.Warn().Err(err).Str("spec", spec).Msg("Package install failed")
		failed = append(failed, spec)
	}
	return failed, nil
}

// Installed parses pip's freeze-format listing into name -> version.
func (p *Pip) Installed(ctx context.Context, envPath string) (map[string]string, error) {
	cmd := exec.CommandContext(ctx, pipPath(envPath), "list", "--format=freeze")
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrap(ctx.Err(), errors.ErrBackendTimeout, "pip list timed out")
		}
		return nil, errors.Wrap(err, errors.ErrInstall, "pip list failed").
			WithDetail("env", envPath)
	}
	return parseFreeze(string(out)), nil
}

func pipPath(envPath string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(envPath, "Scripts", "pip")
	}
	return filepath.Join(envPath, "bin", "pip")
}

func wrapCtxErr(err error, spec string) error {
	if err == context.DeadlineExceeded {
		return errors.Wrapf(err, errors.ErrBackendTimeout, "pip install %s timed out", spec)
	}
	return err
}

func isSatisfied(output string) bool {
	lower := strings.ToLower(output)
	for _, marker := range satisfiedMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func parseFreeze(out string) map[string]string {
	installed := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, ver, ok := strings.Cut(line, "==")
		if !ok {
			continue
		}
		installed[strings.ToLower(name)] = ver
	}
	return installed
}
