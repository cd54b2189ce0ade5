package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const schemaVersion = 1

const (
	ProviderGemini = "gemini"
	ProviderLocal  = "local"

	TaskLocator  = "locator"
	TaskRewriter = "rewriter"
	TaskDefault  = "default"
)

// ProviderSettings configures one LLM provider. API keys and local base URLs
// are never stored in the file; the *_env fields name the environment
// variables to read them from.
type ProviderSettings struct {
	Enabled    bool   `json:"enabled"`
	Model      string `json:"model"`
	APIKeyEnv  string `json:"api_key_env,omitempty"`
	BaseURLEnv string `json:"base_url_env,omitempty"`
}

type Settings struct {
	SchemaVersion int                         `json:"schema_version"`
	Providers     map[string]ProviderSettings `json:"providers"`
	TaskProviders map[string]string           `json:"task_providers"`
	SystemPrompts map[string]string           `json:"system_prompts,omitempty"`
}

// ProviderFor resolves the provider for a task, falling back to the default
// mapping and then to any enabled provider.
func (s *Settings) ProviderFor(task string) string {
	if name := s.TaskProviders[task]; name != "" {
		if p, ok := s.Providers[name]; ok && p.Enabled {
			return name
		}
	}
	if name := s.TaskProviders[TaskDefault]; name != "" {
		if p, ok := s.Providers[name]; ok && p.Enabled {
			return name
		}
	}
	for _, name := range []string{ProviderGemini, ProviderLocal} {
		if p, ok := s.Providers[name]; ok && p.Enabled {
			return name
		}
	}
	return ""
}

type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Load() (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultSettings(), nil
		}
		return nil, err
	}
	var out Settings
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	backfill(&out)
	return &out, nil
}

func (s *Store) Save(settings *Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	backfill(settings)
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *Store) Update(fn func(*Settings)) (*Settings, error) {
	settings, err := s.Load()
	if err != nil {
		return nil, err
	}
	fn(settings)
	return settings, s.Save(settings)
}

func defaultSettings() *Settings {
	return &Settings{
		SchemaVersion: schemaVersion,
		Providers: map[string]ProviderSettings{
			ProviderGemini: {
				Enabled:   true,
				Model:     "gemini-1.5-flash-latest",
				APIKeyEnv: "GOOGLE_API_KEY",
			},
			ProviderLocal: {
				Enabled:    true,
				Model:      "deepseek/deepseek-r1-0528-qwen3-8b",
				BaseURLEnv: "LOCAL_LLM_BASE_URL",
			},
		},
		TaskProviders: map[string]string{
			TaskLocator:  ProviderGemini,
			TaskRewriter: ProviderLocal,
			TaskDefault:  ProviderGemini,
		},
	}
}

func backfill(settings *Settings) {
	defaults := defaultSettings()
	if settings.SchemaVersion == 0 {
		settings.SchemaVersion = schemaVersion
	}
	if settings.Providers == nil {
		settings.Providers = map[string]ProviderSettings{}
	}
	for name, entry := range defaults.Providers {
		if _, ok := settings.Providers[name]; !ok {
			settings.Providers[name] = entry
		}
	}
	if settings.TaskProviders == nil {
		settings.TaskProviders = map[string]string{}
	}
	for task, provider := range defaults.TaskProviders {
		if settings.TaskProviders[task] == "" {
			settings.TaskProviders[task] = provider
		}
	}
}
