// Package persona holds the interviewer identities a session can be assigned.
package persona

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownPersona is returned for a selector that is not in the catalog.
var ErrUnknownPersona = errors.New("unknown persona")

// Persona is a named interviewer: voice, avatar and tone.
type Persona struct {
	ID           string            `yaml:"id" json:"id"`
	Name         string            `yaml:"name" json:"name"`
	Role         string            `yaml:"role" json:"role"`
	Tone         string            `yaml:"tone" json:"tone"`
	Background   string            `yaml:"background" json:"background"`
	Voices       map[string]string `yaml:"voices" json:"-"`  // backend name -> vendor voice id
	Avatars      map[string]string `yaml:"avatars" json:"-"` // backend name -> vendor presenter/avatar id
	DemoAudioURL string            `yaml:"demo_audio_url" json:"-"`
	DemoVideoURL string            `yaml:"demo_video_url" json:"-"`
	SystemPrompt string            `yaml:"system_prompt" json:"-"`
}

// Voice returns the vendor voice id for backend, or "" when none is configured.
func (p Persona) Voice(backend string) string { return p.Voices[backend] }

// Avatar returns the vendor avatar id for backend, or "" when none is configured.
func (p Persona) Avatar(backend string) string { return p.Avatars[backend] }

// Catalog is the read-only set of personas available to sessions.
type Catalog struct {
	byID  map[string]Persona
	order []string
	def   string
}

// File is the on-disk YAML shape of a persona override file.
type File struct {
	Default  string    `yaml:"default"`
	Personas []Persona `yaml:"personas"`
}

// Default returns the built-in catalog with defaultID as the fallback persona.
// An unknown defaultID falls back to the first built-in persona.
func Default(defaultID string) *Catalog {
	c := &Catalog{byID: make(map[string]Persona)}
	for _, p := range builtin() {
		c.add(p)
	}
	c.setDefault(defaultID)
	return c
}

// Load reads a YAML override file and merges it over the built-in catalog. Entries with
// an existing id replace the built-in; new ids are appended. An empty path returns Default.
func Load(path, defaultID string) (*Catalog, error) {
	c := Default(defaultID)
	if strings.TrimSpace(path) == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading personas: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing personas: %w", err)
	}
	for i, p := range f.Personas {
		if strings.TrimSpace(p.ID) == "" {
			return nil, fmt.Errorf("persona %d: id is required", i)
		}
		if base, ok := c.byID[p.ID]; ok {
			p = merge(base, p)
		} else if p.SystemPrompt == "" {
			p.SystemPrompt = systemPrompt(p)
		}
		c.add(p)
	}
	if f.Default != "" {
		defaultID = f.Default
	}
	c.setDefault(defaultID)
	return c, nil
}

// Resolve returns the persona for selector; an empty selector yields the default.
func (c *Catalog) Resolve(selector string) (Persona, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		selector = c.def
	}
	p, ok := c.byID[selector]
	if !ok {
		return Persona{}, fmt.Errorf("%w: %q", ErrUnknownPersona, selector)
	}
	return p, nil
}

// DefaultID is the persona used when a session does not pick one.
func (c *Catalog) DefaultID() string { return c.def }

// List returns personas in catalog order.
func (c *Catalog) List() []Persona {
	out := make([]Persona, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

func (c *Catalog) add(p Persona) {
	if _, ok := c.byID[p.ID]; !ok {
		c.order = append(c.order, p.ID)
	}
	c.byID[p.ID] = p
}

func (c *Catalog) setDefault(id string) {
	if _, ok := c.byID[id]; ok {
		c.def = id
		return
	}
	if len(c.order) > 0 {
		c.def = c.order[0]
	}
}

// merge overlays the non-empty fields of override on base.
func merge(base, override Persona) Persona {
	if override.Name != "" {
		base.Name = override.Name
	}
	if override.Role != "" {
		base.Role = override.Role
	}
	if override.Tone != "" {
		base.Tone = override.Tone
	}
	if override.Background != "" {
		base.Background = override.Background
	}
	if override.DemoAudioURL != "" {
		base.DemoAudioURL = override.DemoAudioURL
	}
	if override.DemoVideoURL != "" {
		base.DemoVideoURL = override.DemoVideoURL
	}
	if override.SystemPrompt != "" {
		base.SystemPrompt = override.SystemPrompt
	}
	base.Voices = mergeMap(base.Voices, override.Voices)
	base.Avatars = mergeMap(base.Avatars, override.Avatars)
	return base
}

func mergeMap(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
