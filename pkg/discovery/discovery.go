// Package discovery walks a directory tree to find subprojects: directories
// that carry their own manifest or version-control checkout.
package discovery

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/ewagner-dev/nestup/pkg/config"
	"github.com/ewagner-dev/nestup/pkg/errors"
	"github.com/ewagner-dev/nestup/pkg/logging"
	"github.com/ewagner-dev/nestup/pkg/manifest"
	"github.com/ewagner-dev/nestup/pkg/types"
)

// RepoMarker is the version-control marker that qualifies a directory as a
// subproject.
const RepoMarker = ".git"

// Discover finds subprojects under root, descending at most maxDepth levels.
// A directory qualifies when it directly contains a manifest file or a
// version-control marker; once it qualifies its subtree is not searched
// further, so vendored checkouts inside a subproject are never
// double-counted. The root itself is never reported. Results are ordered by
// relative path so repeated runs on an unchanged tree are identical.
func Discover(fsys types.FS, root string, maxDepth int, ignoreNames []string) ([]types.SubprojectInfo, error) {
	logger := logging.GetLogger("discovery")

	info, err := fsys.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDiscovery, "root path does not exist").
			WithDetail("path", root)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrDiscovery, "root path is not a directory").
			WithDetail("path", root)
	}

	ignore := make(map[string]bool, len(ignoreNames))
	for _, name := range ignoreNames {
		ignore[name] = true
	}

	var found []types.SubprojectInfo
	if err := walk(fsys, root, root, 0, maxDepth, ignore, &found); err != nil {
		return nil, err
	}

	logger.Info().Int("count", len(found)).Str("root", root).Msg("Discovered subprojects")
	return found, nil
}

func walk(fsys types.FS, root, dir string, depth, maxDepth int, ignore map[string]bool, found *[]types.SubprojectInfo) error {
	logger := logging.GetLogger("discovery")

	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return errors.Wrap(err, errors.ErrFileAccess, "cannot read directory").
			WithDetail("path", dir)
	}

	// Sorted children keep the discovery order stable across runs.
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if ignore[name] {
			logger.Trace().Str("name", name).Msg("Skipping ignored directory")
			continue
		}
		if strings.HasPrefix(name, ".") {
			continue
		}

		path := filepath.Join(dir, name)

		sub, verdict, err := inspect(fsys, root, path, name)
		if err != nil {
			// Failure to inspect one candidate never aborts the walk.
			logger.Warn().Err(err).Str("path", path).Msg("Failed to inspect candidate, skipping")
			continue
		}
		switch verdict {
		case verdictSubproject:
			*found = append(*found, sub)
			logger.Trace().Str("path", path).Msg("Found subproject")
			continue
		case verdictSkipped:
			// A skip-configured subproject hides its subtree too.
			logger.Info().Str("path", path).Msg("Subproject skipped by its config")
			continue
		}

		if depth+1 < maxDepth {
			if err := walk(fsys, root, path, depth+1, maxDepth, ignore, found); err != nil {
				return err
			}
		}
	}

	return nil
}

type verdict int

const (
	verdictDescend verdict = iota
	verdictSubproject
	verdictSkipped
)

// inspect decides whether dir qualifies as a subproject and builds its
// descriptor. Requirements are left for the engine to load.
func inspect(fsys types.FS, root, dir, name string) (types.SubprojectInfo, verdict, error) {
	hasManifest := exists(fsys, filepath.Join(dir, manifest.Filename))
	hasRepo := exists(fsys, filepath.Join(dir, RepoMarker))
	if !hasManifest && !hasRepo {
		return types.SubprojectInfo{}, verdictDescend, nil
	}

	subCfg, _, err := config.LoadSubprojectConfig(fsys, dir)
	if err != nil {
		return types.SubprojectInfo{}, verdictDescend, err
	}
	if subCfg.Skip {
		return types.SubprojectInfo{}, verdictSkipped, nil
	}

	rel, err := filepath.Rel(root, dir)
	if err != nil {
		rel = name
	}

	return types.SubprojectInfo{
		Path:          dir,
		RelPath:       rel,
		Name:          name,
		HasManifest:   hasManifest,
		HasRepository: hasRepo,
	}, verdictSubproject, nil
}

func exists(fsys types.FS, path string) bool {
	_, err := fsys.Stat(path)
	return err == nil
}
