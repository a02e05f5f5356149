// Package preset 加载预设包目录：内置的 packs/*.yaml 加上可选的覆盖目录。
package preset

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/creamcroissant/inboundpanel/internal/inbound"
)

//go:embed packs/*.yaml
var builtin embed.FS

var (
	// ErrInvalidPack 表示预设文件缺少名称或条目。
	ErrInvalidPack = errors.New("preset: invalid pack / 预设包无效")
)

// Catalog is an immutable set of packs keyed by lower-case name.
type Catalog struct {
	packs map[string]inbound.Pack
}

// Load reads the embedded packs and then every *.yaml / *.yml file in dir, if dir is
// set. A file in dir replaces the embedded pack with the same name.
func Load(dir string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{packs: make(map[string]inbound.Pack)}
	if err := c.loadFS(builtin, "packs"); err != nil {
		return nil, fmt.Errorf("load builtin packs: %w", err)
	}
	if dir = strings.TrimSpace(dir); dir == "" {
		return c, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("preset directory not found, using builtin packs", "dir", dir)
			return c, nil
		}
		return nil, fmt.Errorf("stat preset dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("preset dir %s is not a directory / 预设路径不是目录", dir)
	}
	if err := c.loadFS(os.DirFS(dir), "."); err != nil {
		return nil, fmt.Errorf("load presets from %s: %w", dir, err)
	}
	logger.Info("preset packs loaded", "dir", dir, "count", len(c.packs))
	return c, nil
}

// Builtin returns the catalog of embedded packs only.
func Builtin() *Catalog {
	c, err := Load("", nil)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) loadFS(fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := fs.ReadFile(fsys, pathJoin(root, entry.Name()))
		if err != nil {
			return err
		}
		pack, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", entry.Name(), err)
		}
		c.packs[pack.Name] = pack
	}
	return nil
}

// Parse decodes one YAML pack definition.
func Parse(data []byte) (inbound.Pack, error) {
	var pack inbound.Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return inbound.Pack{}, fmt.Errorf("decode pack: %w", err)
	}
	pack.Name = strings.ToLower(strings.TrimSpace(pack.Name))
	if pack.Name == "" {
		return inbound.Pack{}, fmt.Errorf("%w: name is required", ErrInvalidPack)
	}
	if len(pack.Entries) == 0 {
		return inbound.Pack{}, fmt.Errorf("%w: pack %s has no entries", ErrInvalidPack, pack.Name)
	}
	for i := range pack.Entries {
		if pack.Entries[i].Fields == nil {
			pack.Entries[i].Fields = map[string]any{}
		}
	}
	if pack.Title == "" {
		pack.Title = pack.Name
	}
	return pack, nil
}

// Get looks up a pack by name, ignoring case.
func (c *Catalog) Get(name string) (inbound.Pack, bool) {
	if c == nil {
		return inbound.Pack{}, false
	}
	pack, ok := c.packs[strings.ToLower(strings.TrimSpace(name))]
	return pack, ok
}

// List returns every pack sorted by name.
func (c *Catalog) List() []inbound.Pack {
	if c == nil {
		return nil
	}
	out := make([]inbound.Pack, 0, len(c.packs))
	for _, pack := range c.packs {
		out = append(out, pack)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func pathJoin(root, name string) string {
	if root == "." || root == "" {
		return name
	}
	return root + "/" + name
}
