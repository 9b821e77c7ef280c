// Package resman defines the resource-resolution boundary for forge: typed
// resource identifiers, overlay containers, the Store capability interface,
// and the single-owner demand service that serializes all store access.
package resman

import (
	"strings"
)

// Type is the numeric type of a resource. Values follow the classic Aurora
// resource-type table so archives produced by other tooling stay compatible.
type Type uint16

const (
	// TypeSource is a script source file (.nss)
	TypeSource Type = 2009
	// TypeCompiled is a compiled script (.ncs)
	TypeCompiled Type = 2010
	// TypeDebug is debug symbol data for a compiled script (.ndb)
	TypeDebug Type = 2064
	// TypeInvalid marks an unrecognized resource type
	TypeInvalid Type = 0xFFFF
)

var typeExts = map[Type]string{
	TypeSource:   "nss",
	TypeCompiled: "ncs",
	TypeDebug:    "ndb",
}

// Ext returns the canonical file extension for the type, without the dot.
// Returns "" for unknown types.
func (t Type) Ext() string {
	return typeExts[t]
}

// TypeForExt maps a file extension (with or without leading dot) to its
// resource type. Returns TypeInvalid for unknown extensions.
func TypeForExt(ext string) Type {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for t, e := range typeExts {
		if e == ext {
			return t
		}
	}
	return TypeInvalid
}

// ResourceID identifies a resource by name and numeric type. Names are
// case-insensitive; they are canonicalized to lower case on construction.
type ResourceID struct {
	Name string
	Type Type
}

// NewResourceID builds a canonical ResourceID.
func NewResourceID(name string, typ Type) ResourceID {
	return ResourceID{Name: strings.ToLower(name), Type: typ}
}

// Filename returns the on-disk file name for the resource.
func (r ResourceID) Filename() string {
	ext := r.Type.Ext()
	if ext == "" {
		return r.Name
	}
	return r.Name + "." + ext
}

// Store is the capability interface over the shared resource archive.
//
// Implementations are NOT required to be safe for concurrent use: in forge
// the only goroutine that ever touches a Store is the demand service
// (see Service), which makes the single-mutator invariant structural.
type Store interface {
	// AddContainer registers a container; later additions take precedence
	// over earlier ones on lookup.
	AddContainer(c Container) error

	// RemoveContainer unregisters a previously added container.
	// Removing a container that is not registered is a no-op.
	RemoveContainer(c Container)

	// Contains reports whether the identifier resolves to a resource.
	Contains(id ResourceID) bool

	// ReadAll returns the full content of the resource, or
	// errors.ErrNotFound when the identifier does not resolve.
	ReadAll(id ResourceID) ([]byte, error)
}
