package repo

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/gcmshadow/pipe-base/internal/ctxlog"
)

func init() {
	Register("fs", NewFSMapper)
}

// manifestName is the mapper manifest file expected next to _mapper.
const manifestName = "mapper.hcl"

// mapperManifest is the top-level structure of a mapper.hcl file.
type mapperManifest struct {
	Camera       string          `hcl:"camera"`
	ConfigDir    string          `hcl:"config_dir,optional"`
	DefaultLevel string          `hcl:"default_level,optional"`
	Datasets     []*datasetBlock `hcl:"dataset,block"`
}

type datasetBlock struct {
	Type     string      `hcl:"type,label"`
	Template string      `hcl:"template"`
	Keys     []*keyBlock `hcl:"key,block"`
}

type keyBlock struct {
	Name string `hcl:"name,label"`
	Type string `hcl:"type"`
}

// FSMapper is a filesystem-backed mapper configured by an HCL manifest in the
// repository root that declares it.
type FSMapper struct {
	root         string
	camera       string
	configDir    string
	defaultLevel string
	datasets     map[string]*DatasetDef
}

// NewFSMapper loads mapper.hcl from root and builds the mapper.
func NewFSMapper(ctx context.Context, root string) (Mapper, error) {
	logger := ctxlog.FromContext(ctx)
	path := filepath.Join(root, manifestName)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse mapper manifest %s: %w", path, diags)
	}
	var manifest mapperManifest
	if diags := gohcl.DecodeBody(file.Body, nil, &manifest); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode mapper manifest %s: %w", path, diags)
	}

	m := &FSMapper{
		root:         root,
		camera:       manifest.Camera,
		defaultLevel: manifest.DefaultLevel,
		datasets:     make(map[string]*DatasetDef, len(manifest.Datasets)),
	}
	if manifest.ConfigDir != "" {
		dir := manifest.ConfigDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		m.configDir = dir
	}
	for _, ds := range manifest.Datasets {
		if len(ds.Keys) == 0 {
			return nil, fmt.Errorf("mapper manifest %s: dataset %q declares no keys", path, ds.Type)
		}
		def := &DatasetDef{Template: ds.Template}
		for _, key := range ds.Keys {
			ty, err := parseKeyType(key.Type)
			if err != nil {
				return nil, fmt.Errorf("mapper manifest %s: dataset %q key %q: %w", path, ds.Type, key.Name, err)
			}
			def.Keys = append(def.Keys, KeyDef{Name: key.Name, Type: ty})
		}
		m.datasets[ds.Type] = def
	}
	logger.Debug("Loaded mapper manifest.", "path", path, "camera", m.camera, "datasets", len(m.datasets))
	return m, nil
}

// parseKeyType maps manifest type names onto cty types. int and float both
// map to cty.Number; the distinction the original schema drew between them is
// carried by the number value itself.
func parseKeyType(name string) (cty.Type, error) {
	switch name {
	case "int", "float", "number":
		return cty.Number, nil
	case "string":
		return cty.String, nil
	case "bool":
		return cty.Bool, nil
	}
	return cty.NilType, fmt.Errorf("unknown key type %q", name)
}

// Name implements Mapper.
func (m *FSMapper) Name() string { return "fs" }

// CameraName implements Mapper.
func (m *FSMapper) CameraName() string { return m.camera }

// ConfigDir implements Mapper.
func (m *FSMapper) ConfigDir() string { return m.configDir }

// DefaultLevel implements Mapper.
func (m *FSMapper) DefaultLevel() string { return m.defaultLevel }

// Dataset implements Mapper.
func (m *FSMapper) Dataset(datasetType string) (*DatasetDef, error) {
	def, ok := m.datasets[datasetType]
	if !ok {
		return nil, fmt.Errorf("dataset type %q not known to mapper for camera %s", datasetType, m.camera)
	}
	return def, nil
}
