package types

import "io/fs"

// FS abstracts the filesystem operations the core needs, so discovery and
// manifest loading can run against a real or an in-memory filesystem.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	MkdirAll(path string, perm fs.FileMode) error
}
