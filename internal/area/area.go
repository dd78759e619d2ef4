// Package area exposes the host's per-area settings as resources the
// schedule synchronizer can read and write.
package area

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Resource is one area's settings handle.
type Resource interface {
	// ScheduleValue returns the currently persisted schedule string.
	ScheduleValue() string

	// SetScheduleValue stages a new schedule string; it is not durable
	// until Save.
	SetScheduleValue(value string)

	// Save persists staged changes.
	Save() error
}

// Provider looks up area resources by identifier.
type Provider interface {
	Get(areaID string) (Resource, bool)
}

// LoadTemplates reads an area template file: one "area-id template" pair per
// line, blank lines and #-comments ignored.
func LoadTemplates(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, tpl, ok := strings.Cut(line, " ")
		if !ok || strings.TrimSpace(tpl) == "" {
			return nil, fmt.Errorf("%s:%d: expected \"area-id template\"", path, lineNo)
		}
		out[id] = strings.TrimSpace(tpl)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FileProvider is a Provider backed by a YAML state file mapping area IDs to
// their persisted schedule values. It stands in for the host application's
// settings store.
type FileProvider struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// NewFileProvider loads (or initializes) the state file and registers the
// given area IDs, so lookups for configured areas always succeed.
func NewFileProvider(path string, areaIDs []string) (*FileProvider, error) {
	p := &FileProvider{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &p.values); err != nil {
			return nil, fmt.Errorf("area state %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	if p.values == nil {
		p.values = make(map[string]string)
	}

	for _, id := range areaIDs {
		if _, ok := p.values[id]; !ok {
			p.values[id] = ""
		}
	}
	return p, nil
}

// Get returns the resource for areaID, or false if the area is unknown.
func (p *FileProvider) Get(areaID string) (Resource, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.values[areaID]; !ok {
		return nil, false
	}
	return &fileResource{provider: p, areaID: areaID}, true
}

func (p *FileProvider) flush() error {
	data, err := yaml.Marshal(p.values)
	if err != nil {
		return err
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, p.path)
}

type fileResource struct {
	provider *FileProvider
	areaID   string
	staged   *string
}

func (r *fileResource) ScheduleValue() string {
	r.provider.mu.Lock()
	defer r.provider.mu.Unlock()
	if r.staged != nil {
		return *r.staged
	}
	return r.provider.values[r.areaID]
}

func (r *fileResource) SetScheduleValue(value string) {
	r.staged = &value
}

func (r *fileResource) Save() error {
	if r.staged == nil {
		return nil
	}
	r.provider.mu.Lock()
	defer r.provider.mu.Unlock()
	r.provider.values[r.areaID] = *r.staged
	r.staged = nil
	return r.provider.flush()
}
