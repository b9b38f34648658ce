package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/magiconair/properties"
)

// SelfEditingIDMatchingProperty names the property whose value identifies
// an individual to an external identity system.
const SelfEditingIDMatchingProperty = "selfEditing.idMatchingProperty"

// Properties is a concurrency-safe view of application properties.
// The watcher swaps its contents when the backing files change.
type Properties struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewProperties creates a Properties holding a copy of values
func NewProperties(values map[string]string) *Properties {
	p := &Properties{}
	p.Replace(values)
	return p
}

// Property returns the value for key and whether it is set
func (p *Properties) Property(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok
}

// Replace swaps all values atomically
func (p *Properties) Replace(values map[string]string) {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	p.mu.Lock()
	p.values = cp
	p.mu.Unlock()
}

// Keys returns the property names in sorted order
func (p *Properties) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadRuntimeProperties reads a Java-style properties file
func LoadRuntimeProperties(path string) (map[string]string, error) {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("failed to load runtime properties: %w", err)
	}
	return p.Map(), nil
}

// ResolveProperties merges the runtime properties file (if any) beneath the
// inline properties. A relative runtime path is resolved against baseDir.
func (c *Config) ResolveProperties(baseDir string) (map[string]string, error) {
	out := make(map[string]string)

	if c.RuntimeProperties != "" {
		path := c.RuntimeProperties
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		fromFile, err := LoadRuntimeProperties(path)
		if err != nil {
			return nil, err
		}
		for k, v := range fromFile {
			out[k] = v
		}
	}

	for k, v := range c.Properties {
		out[k] = v
	}
	return out, nil
}
