package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/gcmshadow/pipe-base/internal/ctxlog"
	"github.com/gcmshadow/pipe-base/internal/dataid"
)

// registryName is the record index file in a repository root.
const registryName = "registry.hcl"

// record is one concrete dataset entry from a registry.hcl index.
type record struct {
	dataset string
	id      dataid.Typed
}

// loadRecords reads the record index of one repository root. A root without
// an index contributes no records; that is normal for output repositories.
func loadRecords(ctx context.Context, root string, mapper Mapper) ([]record, error) {
	logger := ctxlog.FromContext(ctx)
	path := filepath.Join(root, registryName)
	src, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("Repository has no record index.", "root", root)
			return nil, nil
		}
		return nil, fmt.Errorf("cannot read record index %s: %w", path, err)
	}

	file, diags := hclsyntax.ParseConfig(src, path, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("cannot parse record index %s: %w", path, diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("cannot parse record index %s: unexpected body type", path)
	}

	var records []record
	for _, block := range body.Blocks {
		if block.Type != "record" || len(block.Labels) != 1 {
			return nil, fmt.Errorf("record index %s: want record blocks with one dataset-type label", path)
		}
		datasetType := block.Labels[0]
		def, err := mapper.Dataset(datasetType)
		if err != nil {
			return nil, fmt.Errorf("record index %s: %w", path, err)
		}
		id := make(dataid.Typed, len(block.Body.Attributes))
		// Attributes come back as a map; order them for stable errors.
		names := make([]string, 0, len(block.Body.Attributes))
		for name := range block.Body.Attributes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			keyType, ok := keyTypeOf(def, name)
			if !ok {
				return nil, fmt.Errorf("record index %s: dataset %q has no key %q", path, datasetType, name)
			}
			value, diags := block.Body.Attributes[name].Expr.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("record index %s: key %q: %w", path, name, diags)
			}
			cast, err := convert.Convert(value, keyType)
			if err != nil {
				return nil, fmt.Errorf("record index %s: key %q: %w", path, name, err)
			}
			id[name] = cast
		}
		for _, key := range def.Keys {
			if _, ok := id[key.Name]; !ok {
				return nil, fmt.Errorf("record index %s: record for %q is missing key %q", path, datasetType, key.Name)
			}
		}
		records = append(records, record{dataset: datasetType, id: id})
	}
	logger.Debug("Loaded record index.", "root", root, "records", len(records))
	return records, nil
}

// keyTypeOf finds the declared type of one key of a dataset definition.
func keyTypeOf(def *DatasetDef, name string) (cty.Type, bool) {
	for _, key := range def.Keys {
		if key.Name == name {
			return key.Type, true
		}
	}
	return cty.NilType, false
}
