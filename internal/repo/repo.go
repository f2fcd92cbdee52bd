package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/gcmshadow/pipe-base/internal/ctxlog"
	"github.com/gcmshadow/pipe-base/internal/dataid"
)

// Repository is an opened data store. It is constructed once per resolution
// pass and shared read-only afterwards; Refs it hands out are valid only
// while it is live.
type Repository struct {
	mapper  Mapper
	roots   []string // input root plus _parent ancestors, nearest first
	calib   string
	output  string
	records []record
}

// Open resolves the mapper for root and opens the repository. calib and
// output may be empty.
func Open(ctx context.Context, root, calib, output string) (*Repository, error) {
	mapper, err := ResolveMapper(ctx, root)
	if err != nil {
		return nil, err
	}
	r := &Repository{
		mapper: mapper,
		roots:  parentChain(root),
		calib:  calib,
		output: output,
	}
	seen := map[string]struct{}{}
	for _, recRoot := range r.recordRoots() {
		records, err := loadRecords(ctx, recRoot, mapper)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			fp := rec.dataset + "\x00" + rec.id.String()
			if _, dup := seen[fp]; dup {
				continue
			}
			seen[fp] = struct{}{}
			r.records = append(r.records, rec)
		}
	}
	ctxlog.FromContext(ctx).Debug("Opened repository.",
		"root", root, "camera", mapper.CameraName(), "chain", len(r.roots), "records", len(r.records))
	return r, nil
}

// Mapper returns the repository's mapper.
func (r *Repository) Mapper() Mapper { return r.mapper }

// resolveLevel turns a requested level into a key index for a dataset type.
// An empty level means the mapper default, falling back to the finest key.
func (r *Repository) resolveLevel(def *DatasetDef, level string) (int, error) {
	if level == "" {
		level = r.mapper.DefaultLevel()
	}
	if level == "" {
		return len(def.Keys) - 1, nil
	}
	for i, key := range def.Keys {
		if key.Name == level {
			return i, nil
		}
	}
	names := make([]string, len(def.Keys))
	for i, key := range def.Keys {
		names[i] = key.Name
	}
	return 0, fmt.Errorf("unknown reference level %q; levels are: %s", level, strings.Join(names, ", "))
}

// Keys returns the identifier key schema valid for a dataset type at a
// reference level: every key from the coarsest through the level itself.
func (r *Repository) Keys(datasetType, level string) (map[string]cty.Type, error) {
	def, err := r.mapper.Dataset(datasetType)
	if err != nil {
		return nil, err
	}
	idx, err := r.resolveLevel(def, level)
	if err != nil {
		return nil, err
	}
	schema := make(map[string]cty.Type, idx+1)
	for _, key := range def.Keys[:idx+1] {
		schema[key.Name] = key.Type
	}
	return schema, nil
}

// Subset enumerates the references matching a partial identifier at the
// given level. Each reference carries sub-references down to the finest
// level, one per concrete record.
func (r *Repository) Subset(ctx context.Context, datasetType, level string, id dataid.Typed) ([]*Ref, error) {
	def, err := r.mapper.Dataset(datasetType)
	if err != nil {
		return nil, err
	}
	idx, err := r.resolveLevel(def, level)
	if err != nil {
		return nil, err
	}

	var matched []record
	for _, rec := range r.records {
		if rec.dataset == datasetType && matches(rec.id, id) {
			matched = append(matched, rec)
		}
	}
	return r.buildRefs(datasetType, def, idx, matched), nil
}

// recordRoots is where record indexes are searched: the input chain, then
// the calibration root.
func (r *Repository) recordRoots() []string {
	roots := r.roots
	if r.calib != "" {
		roots = append(append([]string{}, roots...), r.calib)
	}
	return roots
}

// matches reports whether a record satisfies every constraint of a partial
// identifier.
func matches(rec dataid.Typed, partial dataid.Typed) bool {
	for key, want := range partial {
		got, ok := rec[key]
		if !ok || !got.RawEquals(want) {
			return false
		}
	}
	return true
}

// buildRefs groups records by the keys through level and recurses one level
// finer for sub-references. Group order follows first appearance in the
// record index.
func (r *Repository) buildRefs(datasetType string, def *DatasetDef, level int, records []record) []*Ref {
	var order []string
	groups := map[string][]record{}
	ids := map[string]dataid.Typed{}

	for _, rec := range records {
		id := make(dataid.Typed, level+1)
		for _, key := range def.Keys[:level+1] {
			id[key.Name] = rec.id[key.Name]
		}
		fp := id.String()
		if _, ok := groups[fp]; !ok {
			order = append(order, fp)
			ids[fp] = id
		}
		groups[fp] = append(groups[fp], rec)
	}

	refs := make([]*Ref, 0, len(order))
	for _, fp := range order {
		ref := &Ref{repo: r, DatasetType: datasetType, ID: ids[fp]}
		if level < len(def.Keys)-1 {
			ref.subs = r.buildRefs(datasetType, def, level+1, groups[fp])
		}
		refs = append(refs, ref)
	}
	return refs
}

// DatasetExists reports whether the bytes for a concrete identifier are
// present in the input chain or the calibration root.
func (r *Repository) DatasetExists(datasetType string, id dataid.Typed) bool {
	def, err := r.mapper.Dataset(datasetType)
	if err != nil {
		return false
	}
	rel := def.Template
	for _, key := range def.Keys {
		value, ok := id[key.Name]
		if !ok {
			return false
		}
		rel = strings.ReplaceAll(rel, "{"+key.Name+"}", dataid.ValueString(value))
	}
	if strings.Contains(rel, "{") {
		return false
	}
	for _, root := range r.recordRoots() {
		if _, err := os.Stat(filepath.Join(root, rel)); err == nil {
			return true
		}
	}
	return false
}

// Ref is one data reference: a concrete identifier at some level plus the
// finer-grained references beneath it.
type Ref struct {
	DatasetType string
	ID          dataid.Typed

	repo *Repository
	subs []*Ref
}

// SubItems returns the references one level finer than ref, nil for a leaf.
func (ref *Ref) SubItems() []*Ref { return ref.subs }

// Exists reports whether this reference's own bytes are present. Callers
// interested in descendants should walk SubItems.
func (ref *Ref) Exists() bool {
	return ref.repo.DatasetExists(ref.DatasetType, ref.ID)
}
