package resman

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/teranos/forge/errors"
)

// ContainerKind distinguishes the two overlay container shapes.
type ContainerKind int

const (
	// KindDirectory exposes every typed file directly inside a directory
	KindDirectory ContainerKind = iota
	// KindFile exposes exactly one file
	KindFile
)

// Container describes one resource container: a directory or a single file.
// Containers are value types; two containers with the same kind and path
// are the same container.
type Container struct {
	Kind ContainerKind
	Path string
}

// DirectoryContainer describes a directory of resources.
func DirectoryContainer(path string) Container {
	return Container{Kind: KindDirectory, Path: filepath.Clean(path)}
}

// FileContainer describes a single-file resource.
func FileContainer(path string) Container {
	return Container{Kind: KindFile, Path: filepath.Clean(path)}
}

func (c Container) String() string {
	if c.Kind == KindFile {
		return "file:" + c.Path
	}
	return "dir:" + c.Path
}

// idForPath derives the ResourceID a file path would resolve as, or false
// when the extension maps to no known resource type.
func idForPath(path string) (ResourceID, bool) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	typ := TypeForExt(ext)
	if typ == TypeInvalid {
		return ResourceID{}, false
	}
	return NewResourceID(strings.TrimSuffix(base, ext), typ), true
}

// resolve maps an identifier to the file path backing it inside this
// container, or false when the container does not provide it.
func (c Container) resolve(id ResourceID) (string, bool) {
	switch c.Kind {
	case KindFile:
		own, ok := idForPath(c.Path)
		if ok && own == id {
			return c.Path, true
		}
		return "", false
	case KindDirectory:
		candidate := filepath.Join(c.Path, id.Filename())
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		return "", false
	}
	return "", false
}

// BasicStore is a minimal filesystem-backed Store: an ordered list of
// containers searched newest-first. It performs no caching or indexing;
// richer archive formats plug in behind the Store interface instead.
type BasicStore struct {
	containers []Container
}

// NewBasicStore creates an empty store.
func NewBasicStore() *BasicStore {
	return &BasicStore{}
}

// AddContainer implements Store.
func (s *BasicStore) AddContainer(c Container) error {
	if _, err := os.Stat(c.Path); err != nil {
		return errors.Wrapf(err, "container path %s", c.Path)
	}
	s.containers = append(s.containers, c)
	return nil
}

// RemoveContainer implements Store. Only the most recently added instance
// of the container is removed, mirroring overlay push/pop usage.
func (s *BasicStore) RemoveContainer(c Container) {
	for i := len(s.containers) - 1; i >= 0; i-- {
		if s.containers[i] == c {
			s.containers = append(s.containers[:i], s.containers[i+1:]...)
			return
		}
	}
}

// Contains implements Store.
func (s *BasicStore) Contains(id ResourceID) bool {
	_, ok := s.lookup(id)
	return ok
}

// ReadAll implements Store.
func (s *BasicStore) ReadAll(id ResourceID) ([]byte, error) {
	path, ok := s.lookup(id)
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "resource %s", id.Filename())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading resource %s", id.Filename())
	}
	return data, nil
}

// lookup searches containers newest-first so overlays shadow base content.
func (s *BasicStore) lookup(id ResourceID) (string, bool) {
	for i := len(s.containers) - 1; i >= 0; i-- {
		if path, ok := s.containers[i].resolve(id); ok {
			return path, true
		}
	}
	return "", false
}
