// Package manifest parses line-oriented requirement files: one requirement
// per line in the form name[specifier,...], with blank lines and #-prefixed
// comments ignored.
package manifest

import (
	"path/filepath"
	"strings"

	"github.com/ewagner-dev/nestup/pkg/errors"
	"github.com/ewagner-dev/nestup/pkg/types"
	"github.com/ewagner-dev/nestup/pkg/version"
)

// Filename is the manifest file nestup looks for in every project directory.
const Filename = "requirements.txt"

// Parse parses manifest text into an ordered package list. Requirements for
// the same name are merged by specifier union, keeping the position of the
// first occurrence. A malformed line fails the whole parse with
// MANIFEST_PARSE so the caller can skip the subproject.
func Parse(text string) ([]types.Package, error) {
	var ordered []types.Package
	index := make(map[string]int)

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		pkg, err := ParseLine(line)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrManifestParse,
				"invalid requirement on line %d", i+1).
				WithDetail("line", line)
		}

		if at, seen := index[pkg.Name]; seen {
			ordered[at].Specifiers = append(ordered[at].Specifiers, pkg.Specifiers...)
			continue
		}
		index[pkg.Name] = len(ordered)
		ordered = append(ordered, pkg)
	}

	return ordered, nil
}

// ParseLine parses a single requirement such as "requests>=2.0,<3.0" or a
// bare "flask".
func ParseLine(line string) (types.Package, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return types.Package{}, errors.New(errors.ErrManifestParse, "empty requirement")
	}

	cut := strings.IndexAny(line, "=<>!~")
	if cut < 0 {
		return types.NewPackage(line, nil), nil
	}
	if cut == 0 {
		return types.Package{}, errors.Newf(errors.ErrManifestParse, "requirement has no name: %q", line)
	}

	name := strings.TrimSpace(line[:cut])
	specs, err := version.ParseSet(line[cut:])
	if err != nil {
		return types.Package{}, err
	}
	return types.NewPackage(name, specs), nil
}

// Load reads and parses the manifest in dir, if present. The boolean says
// whether a manifest file exists at all.
func Load(fsys types.FS, dir string) ([]types.Package, bool, error) {
	path := filepath.Join(dir, Filename)
	if _, err := fsys.Stat(path); err != nil {
		return nil, false, nil
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, true, errors.Wrap(err, errors.ErrFileAccess, "cannot read manifest").
			WithDetail("path", path)
	}

	pkgs, err := Parse(string(data))
	if err != nil {
		return nil, true, err
	}
	return pkgs, true, nil
}
