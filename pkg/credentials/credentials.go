package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/mathpad/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// Credential slots. A slot is the key an upstream authenticates with; several
// models can share one slot.
const (
	DashScope = "dashscope"
	Google    = "google"
	DMX       = "dmx"
)

// providerEnvVars maps slots to the environment variables consulted when no
// key is stored, in order of preference.
var providerEnvVars = map[string][]string{
	DashScope: {"DASHSCOPE_API_KEY"},
	Google:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	DMX:       {"DMX_API_KEY"},
}

// Manager manages reading and writing credentials.toml in the .mathpad/ directory.
type Manager struct {
	ddm        *dotdir.Manager
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it is
// used as the .mathpad/ directory; otherwise the standard dotdir resolution
// applies.
func NewManager(override string) (*Manager, error) {
	mgr := &Manager{}
	mgr.ddm = dotdir.NewManager()

	target, err := mgr.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	mgr.targetPath = filepath.Join(target, credentialsFile)

	return mgr, nil
}

// Load reads credentials.toml from the target directory.
// Returns an empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{
				Version:   currentVersion,
				Providers: make(map[string]ProviderCredential),
			}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Providers == nil {
		creds.Providers = make(map[string]ProviderCredential)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetKey stores an API key for the given slot.
func (m *Manager) SetKey(provider, key string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Providers[provider] = ProviderCredential{APIKey: key}

	return m.Save(creds)
}

// GetKey returns the stored API key for the given slot.
// Returns an empty string if no key is stored.
func (m *Manager) GetKey(provider string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}

	pc, ok := creds.Providers[provider]
	if !ok {
		return "", nil
	}

	return pc.APIKey, nil
}

// RemoveKey deletes the stored credential for a slot.
func (m *Manager) RemoveKey(provider string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	delete(creds.Providers, provider)

	return m.Save(creds)
}

// ListProviders returns the names of slots that have stored credentials.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	providers := make([]string, 0, len(creds.Providers))
	for name := range creds.Providers {
		providers = append(providers, name)
	}

	sort.Strings(providers)

	return providers, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// Lookup returns the key for slot: the stored key if present, otherwise the
// first non-empty environment variable for the slot. Returns an empty string
// when neither is set.
func (m *Manager) Lookup(slot string) (string, error) {
	key, err := m.GetKey(slot)
	if err != nil {
		return "", err
	}
	if key != "" {
		return key, nil
	}
	return lookupEnv(slot), nil
}

func lookupEnv(slot string) string {
	for _, name := range providerEnvVars[slot] {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// EnvVarForProvider returns the primary environment variable name for a slot.
// Returns an empty string for unknown slots.
func EnvVarForProvider(provider string) string {
	vars := providerEnvVars[provider]
	if len(vars) == 0 {
		return ""
	}
	return vars[0]
}

// SupportedProviders returns the list of credential slots.
func SupportedProviders() []string {
	return []string{DashScope, Google, DMX}
}

// IsSupportedProvider returns true if the given slot is supported.
func IsSupportedProvider(provider string) bool {
	return slices.Contains(SupportedProviders(), provider)
}
