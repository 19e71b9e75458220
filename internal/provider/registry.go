package provider

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Registry holds the set of configured providers and the task-routing
// rules that map a task type onto an ordered candidate list.
//
// Routing resolution: an explicit task-routing list from configuration
// takes precedence; otherwise candidates are all enabled providers
// declaring the task type as a capability, sorted ascending by
// priority. A preferred provider is hoisted to the front when it
// exists and declares the capability.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Config
	routing   map[string][]string
	logger    zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		providers: make(map[string]Config),
		routing:   make(map[string][]string),
		logger:    logger,
	}
}

// Register adds or replaces a named provider. The config is validated
// before it is accepted; an invalid config leaves the registry
// unchanged.
func (r *Registry) Register(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[cfg.Name] = cfg

	r.logger.Info().
		Str("provider", cfg.Name).
		Str("family", string(cfg.Family)).
		Str("model", cfg.Model).
		Int("priority", cfg.Priority).
		Bool("enabled", cfg.Enabled).
		Msg("Provider registered")

	return nil
}

// SetRouting installs an explicit ordered candidate list for a task
// type, replacing any previous rule.
func (r *Registry) SetRouting(taskType string, providerNames []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routing[taskType] = providerNames
}

// Get returns the configuration of a named provider.
func (r *Registry) Get(name string) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.providers[name]
	return cfg, ok
}

// Names returns the names of all registered providers, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Candidates returns the ordered provider candidates for a task type.
// The preferred provider comes first when it is usable for the task;
// the returned slice is empty when no provider can serve the task
// (callers must treat that as "no provider available").
func (r *Registry) Candidates(taskType, preferred string) []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []Config

	if names, ok := r.routing[taskType]; ok {
		// Explicit routing rule: keep the configured order, skip
		// unknown or disabled providers.
		for _, name := range names {
			cfg, ok := r.providers[name]
			if !ok || !cfg.Enabled {
				continue
			}
			candidates = append(candidates, cfg)
		}
	} else {
		for _, cfg := range r.providers {
			if cfg.Enabled && cfg.HasCapability(taskType) {
				candidates = append(candidates, cfg)
			}
		}
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].Priority != candidates[j].Priority {
				return candidates[i].Priority < candidates[j].Priority
			}
			return candidates[i].Name < candidates[j].Name
		})
	}

	// Hoist the preferred provider to the front if it is usable.
	if preferred != "" {
		found := false
		for i, cfg := range candidates {
			if cfg.Name == preferred {
				if i > 0 {
					hoisted := append([]Config{cfg}, candidates[:i]...)
					candidates = append(hoisted, candidates[i+1:]...)
				}
				found = true
				break
			}
		}
		if !found {
			if cfg, ok := r.providers[preferred]; ok && cfg.Enabled && cfg.HasCapability(taskType) {
				candidates = append([]Config{cfg}, candidates...)
			}
		}
	}

	return candidates
}
