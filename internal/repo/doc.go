// Package repo provides the repository access service: it resolves the
// mapper for a data repository root, exposes the identifier key schema per
// dataset type, enumerates records matching a partial identifier, and tests
// whether a dataset's bytes exist on disk.
//
// A repository root is a directory carrying either a _mapper file naming a
// registered mapper, or a _parent file deferring to another root. Record
// enumeration is driven by a registry.hcl index and existence by the mapper's
// path templates.
package repo
