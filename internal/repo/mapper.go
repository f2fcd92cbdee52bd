package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// KeyDef declares one identifier key of a dataset type. Key order is coarse
// to fine; key names double as reference level names.
type KeyDef struct {
	Name string
	Type cty.Type
}

// DatasetDef describes how one dataset type is laid out in a repository.
type DatasetDef struct {
	Keys     []KeyDef
	Template string // relative path with {key} placeholders
}

// Mapper defines the identifier schema and physical layout for one camera.
type Mapper interface {
	// Name is the registered mapper name; it stands in for class identity
	// when two roots must be checked for mapper compatibility.
	Name() string
	// CameraName identifies the camera, used to locate camera-specific
	// override files.
	CameraName() string
	// ConfigDir is the directory holding packaged override files, empty if
	// the mapper ships none.
	ConfigDir() string
	// DefaultLevel is the reference level used when the caller configures
	// none; empty means the finest level of each dataset type.
	DefaultLevel() string
	// Dataset returns the definition for a dataset type.
	Dataset(datasetType string) (*DatasetDef, error)
}

// Factory constructs a mapper for the repository root that declared it.
type Factory func(ctx context.Context, root string) (Mapper, error)

var (
	factoryMu sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a mapper factory available under a name. Names appear in
// repository _mapper files. Registering a duplicate name panics.
func Register(name string, factory Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if _, ok := factories[name]; ok {
		panic(fmt.Sprintf("repo: mapper %q already registered", name))
	}
	factories[name] = factory
}

func lookupFactory(name string) (Factory, error) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	factory, ok := factories[name]
	if !ok {
		names := make([]string, 0, len(factories))
		for n := range factories {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown mapper %q; registered mappers: %s", name, strings.Join(names, ", "))
	}
	return factory, nil
}

// maxParentDepth bounds the _parent chain walk so a cyclic chain fails
// instead of spinning.
const maxParentDepth = 16

// findMapper locates the _mapper file for root, following _parent links, and
// returns the mapper name and the root that declared it.
func findMapper(root string) (name, defRoot string, err error) {
	current := root
	for range maxParentDepth {
		if b, err := os.ReadFile(filepath.Join(current, "_mapper")); err == nil {
			name := strings.TrimSpace(string(b))
			if name == "" {
				return "", "", fmt.Errorf("repository %s has an empty _mapper file", current)
			}
			return name, current, nil
		}
		b, err := os.ReadFile(filepath.Join(current, "_parent"))
		if err != nil {
			return "", "", fmt.Errorf("no mapper found in repository %s", root)
		}
		parent := strings.TrimSpace(string(b))
		if !filepath.IsAbs(parent) {
			parent = filepath.Join(current, parent)
		}
		current = parent
	}
	return "", "", fmt.Errorf("repository %s: _parent chain too deep", root)
}

// MapperName reports the mapper name a repository root resolves to. It is
// the cheap form of ResolveMapper used for the rerun compatibility check.
func MapperName(root string) (string, error) {
	name, _, err := findMapper(root)
	return name, err
}

// ResolveMapper resolves and constructs the mapper for a repository root.
func ResolveMapper(ctx context.Context, root string) (Mapper, error) {
	name, defRoot, err := findMapper(root)
	if err != nil {
		return nil, err
	}
	factory, err := lookupFactory(name)
	if err != nil {
		return nil, err
	}
	mapper, err := factory(ctx, defRoot)
	if err != nil {
		return nil, fmt.Errorf("mapper %q for repository %s: %w", name, root, err)
	}
	return mapper, nil
}

// parentChain returns root followed by its _parent ancestors, nearest first.
func parentChain(root string) []string {
	chain := []string{root}
	current := root
	for range maxParentDepth {
		b, err := os.ReadFile(filepath.Join(current, "_parent"))
		if err != nil {
			return chain
		}
		parent := strings.TrimSpace(string(b))
		if !filepath.IsAbs(parent) {
			parent = filepath.Join(current, parent)
		}
		chain = append(chain, parent)
		current = parent
	}
	return chain
}
