package data

import (
	"fmt"
	"os"
	"sort"

	"github.com/l1jgo/ecs/internal/core/ecs"
	"gopkg.in/yaml.v3"
)

// ComponentDef declares a component type and its default fields.
type ComponentDef struct {
	Name     string         `yaml:"name"`
	Defaults map[string]any `yaml:"defaults"`
}

// Prefab is a named bundle of components with per-component field overrides.
type Prefab struct {
	Name       string                    `yaml:"name"`
	Components map[string]map[string]any `yaml:"components"`
}

// Spawn instantiates a prefab Count times. Label is only allowed for a
// single instance.
type Spawn struct {
	Prefab    string                    `yaml:"prefab"`
	Count     int                       `yaml:"count"`
	Label     string                    `yaml:"label"`
	Overrides map[string]map[string]any `yaml:"overrides"`
}

// SystemDef binds a built-in Go system to a query.
type SystemDef struct {
	Name    string   `yaml:"name"`
	Query   []string `yaml:"query"`
	Builtin string   `yaml:"builtin"`
}

// Manifest is the YAML description of a world's initial contents.
type Manifest struct {
	Components []ComponentDef `yaml:"components"`
	Prefabs    []Prefab       `yaml:"prefabs"`
	Spawns     []Spawn        `yaml:"spawns"`
	Systems    []SystemDef    `yaml:"systems"`

	prefabs map[string]*Prefab
}

// ApplyStats counts what Apply created.
type ApplyStats struct {
	Components int
	Entities   int
	Systems    int
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(raw)
}

// ParseManifest decodes and validates a manifest.
func ParseManifest(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.index(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) index() error {
	seen := make(map[string]bool, len(m.Components))
	for _, c := range m.Components {
		if c.Name == "" {
			return fmt.Errorf("manifest: component without a name")
		}
		if seen[c.Name] {
			return fmt.Errorf("manifest: component %q declared twice", c.Name)
		}
		seen[c.Name] = true
	}

	m.prefabs = make(map[string]*Prefab, len(m.Prefabs))
	for i := range m.Prefabs {
		p := &m.Prefabs[i]
		if p.Name == "" {
			return fmt.Errorf("manifest: prefab without a name")
		}
		if _, dup := m.prefabs[p.Name]; dup {
			return fmt.Errorf("manifest: prefab %q declared twice", p.Name)
		}
		m.prefabs[p.Name] = p
	}

	for i := range m.Spawns {
		s := &m.Spawns[i]
		if _, ok := m.prefabs[s.Prefab]; !ok {
			return fmt.Errorf("manifest: spawn %d references unknown prefab %q", i, s.Prefab)
		}
		if s.Count == 0 {
			s.Count = 1
		}
		if s.Count < 0 {
			return fmt.Errorf("manifest: spawn %d has negative count", i)
		}
		if s.Label != "" && s.Count != 1 {
			return fmt.Errorf("manifest: spawn %d: label %q needs count 1", i, s.Label)
		}
	}

	for _, sd := range m.Systems {
		if sd.Name == "" || sd.Builtin == "" {
			return fmt.Errorf("manifest: system needs name and builtin")
		}
		if len(sd.Query) == 0 {
			return fmt.Errorf("manifest: system %q has an empty query", sd.Name)
		}
	}
	return nil
}

// Prefab returns the prefab with the given name.
func (m *Manifest) Prefab(name string) (*Prefab, bool) {
	p, ok := m.prefabs[name]
	return p, ok
}

// Apply registers the manifest's components, spawns its entities and
// binds its systems to builtins. It stops at the first failure.
func (m *Manifest) Apply(w *ecs.World, builtins map[string]ecs.UpdateFunc) (ApplyStats, error) {
	var st ApplyStats
	for _, c := range m.Components {
		if err := w.RegisterComponent(c.Name, c.Defaults); err != nil {
			return st, fmt.Errorf("component %s: %w", c.Name, err)
		}
		st.Components++
	}
	for i, s := range m.Spawns {
		p := m.prefabs[s.Prefab]
		for n := 0; n < s.Count; n++ {
			if _, err := m.instantiate(w, p, s); err != nil {
				return st, fmt.Errorf("spawn %d (%s): %w", i, s.Prefab, err)
			}
			st.Entities++
		}
	}
	for _, sd := range m.Systems {
		fn, ok := builtins[sd.Builtin]
		if !ok {
			return st, fmt.Errorf("system %s: unknown builtin %q", sd.Name, sd.Builtin)
		}
		if err := w.RegisterSystem(sd.Name, ecs.ParseQuery(sd.Query), fn); err != nil {
			return st, fmt.Errorf("system %s: %w", sd.Name, err)
		}
		st.Systems++
	}
	return st, nil
}

// Instantiate creates one entity from the named prefab.
func (m *Manifest) Instantiate(w *ecs.World, prefab string) (ecs.Entity, error) {
	p, ok := m.prefabs[prefab]
	if !ok {
		return 0, fmt.Errorf("unknown prefab %q", prefab)
	}
	return m.instantiate(w, p, Spawn{Prefab: prefab, Count: 1})
}

func (m *Manifest) instantiate(w *ecs.World, p *Prefab, s Spawn) (ecs.Entity, error) {
	// sorted so entity component masks and notifications are reproducible
	names := make([]string, 0, len(p.Components))
	for name := range p.Components {
		if !w.Components().Registered(name) {
			return 0, fmt.Errorf("prefab %s: component %q not registered", p.Name, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var e ecs.Entity
	if s.Label != "" {
		e = w.CreateLabeledEntity(s.Label)
	} else {
		e = w.CreateEntity()
	}
	for _, name := range names {
		fields := merge(p.Components[name], s.Overrides[name])
		if _, err := w.AddComponent(e, name, fields); err != nil {
			// a listener may have attached it first; never leave a partial entity
			_ = w.Pool().Destroy(e)
			return 0, err
		}
	}
	return e, nil
}

func merge(base, over map[string]any) map[string]any {
	if len(over) == 0 {
		return base
	}
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
