package detector

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// Manifest describes a detector service found in the services directory.
type Manifest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Interpreter string   `json:"interpreter,omitempty"`
	Args        []string `json:"args,omitempty"`
}

// Service is a discovered detector service ready to be launched.
type Service struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Command builds the process invocation for the service. A non-empty
// python overrides the interpreter named in the manifest.
func (s *Service) Command(python string) *exec.Cmd {
	interp := s.Manifest.Interpreter
	if python != "" && interp != "" {
		interp = python
	}
	if interp == "" {
		return exec.Command(s.Executable, s.Manifest.Args...)
	}
	args := append([]string{s.Executable}, s.Manifest.Args...)
	return exec.Command(interp, args...)
}

// Registry discovers detector services. Each service is looked up at most
// once per registry; see Load.
type Registry struct {
	dir      string
	services map[string]*Service
	loaders  map[string]*Loader[*Service]
	mu       sync.RWMutex
}

// NewRegistry creates a Registry rooted at dir.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:      dir,
		services: make(map[string]*Service),
		loaders:  make(map[string]*Loader[*Service]),
	}
}

// Discover scans the services directory for service.json manifests.
// Each subdirectory is expected to hold one service.
func (r *Registry) Discover() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.services = make(map[string]*Service)

	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		servicePath := filepath.Join(r.dir, entry.Name())
		data, err := os.ReadFile(filepath.Join(servicePath, "service.json"))
		if err != nil {
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(data, &manifest); err != nil || manifest.Name == "" {
			continue
		}

		r.services[manifest.Name] = &Service{
			Manifest:   manifest,
			Path:       servicePath,
			Executable: filepath.Join(servicePath, manifest.Executable),
		}
	}

	return nil
}

// Get returns a discovered service by name.
func (r *Registry) Get(name string) (*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, ok := r.services[name]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return svc, nil
}

// List returns all discovered services.
func (r *Registry) List() []*Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Service, 0, len(r.services))
	for _, svc := range r.services {
		out = append(out, svc)
	}
	return out
}

// Load resolves the named service, rescanning the directory and checking
// that its executable exists. Concurrent callers share a single lookup, a
// success is cached for the life of the registry and a failure is forgotten
// so the next call tries again.
func (r *Registry) Load(ctx context.Context, name string) (*Service, error) {
	return r.loader(name).Load(ctx)
}

func (r *Registry) loader(name string) *Loader[*Service] {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.loaders[name]
	if !ok {
		l = NewLoader(func(ctx context.Context) (*Service, error) {
			if err := r.Discover(); err != nil {
				return nil, err
			}
			svc, err := r.Get(name)
			if err != nil {
				return nil, err
			}
			if _, err := os.Stat(svc.Executable); err != nil {
				return nil, err
			}
			return svc, nil
		})
		r.loaders[name] = l
	}
	return l
}

// Dir returns the services directory.
func (r *Registry) Dir() string {
	return r.dir
}
