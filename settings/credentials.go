// Package settings stores dstrans user credentials.
//
// Credentials live in the XDG data directory:
//
//	$XDG_DATA_HOME/dstrans/auth.json  (default: ~/.local/share/dstrans/auth.json)
//
// The file is a JSON object keyed by entry ID. Each value is a
// discriminated union on the "type" field:
//
//   - "api"      — bearer token for an inference server (vllm, ollama, custom-openai)
//   - "registry" — access/secret key pair for the dataset registry bucket
//
// File permissions are 0600 (owner read/write only).
//
// Lookup order for API keys:
//  1. --api-key flag (highest priority)
//  2. DSTRANS_API_KEY environment variable
//  3. This credential store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	dataDirName = "dstrans"
	fileName    = "auth.json"

	// APIKeyEnv overrides stored API keys.
	APIKeyEnv = "DSTRANS_API_KEY"

	// RegistryID is the store entry holding registry credentials.
	RegistryID = "registry"
)

// Entry types.
const (
	TypeAPI      = "api"
	TypeRegistry = "registry"
)

// Info is the entry stored per ID in auth.json.
type Info struct {
	// Type discriminator: "api" or "registry".
	Type string `json:"type"`

	// API key fields (type == "api")
	Key     string `json:"key,omitempty"`
	BaseURL string `json:"baseUrl,omitempty"`

	// Registry fields (type == "registry")
	AccessKey string `json:"accessKey,omitempty"`
	SecretKey string `json:"secretKey,omitempty"`
}

// IsAPI returns true if this is an API key entry.
func (i *Info) IsAPI() bool {
	return i.Type == TypeAPI
}

// IsRegistry returns true if this is a registry key pair.
func (i *Info) IsRegistry() bool {
	return i.Type == TypeRegistry
}

// Store holds all credentials, keyed by entry ID.
type Store map[string]*Info

// IDs returns the stored entry IDs, sorted.
func (s Store) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// dataDir respects $XDG_DATA_HOME and falls back to ~/.local/share.
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the auth.json file path for display purposes.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// DataDir returns the dstrans data directory path.
func DataDir() (string, error) {
	return dataDir()
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the credential store from disk.
// Returns an empty store if the file doesn't exist or is invalid.
func Load() Store {
	path, err := filePath()
	if err != nil {
		return make(Store)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}
	var store Store
	if err := json.Unmarshal(data, &store); err != nil || store == nil {
		return make(Store)
	}
	return store
}

// Save writes the credential store to disk with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}
	return nil
}

// Get returns the entry for id, or nil if not found.
func Get(id string) *Info {
	return Load()[id]
}

// Set stores an entry (upsert).
func Set(id string, info *Info) error {
	store := Load()
	store[id] = info
	return Save(store)
}

// Remove deletes the entry for id. Removing a missing entry is not an error.
func Remove(id string) error {
	store := Load()
	if _, ok := store[id]; !ok {
		return nil
	}
	delete(store, id)
	return Save(store)
}

// RemoveAll removes all stored credentials.
func RemoveAll() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing auth file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// API keys
// ---------------------------------------------------------------------------

// SetAPIKey stores an API key (and optional base URL) for a provider.
func SetAPIKey(providerID, key, baseURL string) error {
	return Set(providerID, &Info{
		Type:    TypeAPI,
		Key:     key,
		BaseURL: baseURL,
	})
}

// GetAPIKey returns the stored API key for a provider, or "".
func GetAPIKey(providerID string) string {
	info := Get(providerID)
	if info == nil || !info.IsAPI() {
		return ""
	}
	return info.Key
}

// GetBaseURL returns the stored base URL for a provider, or "".
func GetBaseURL(providerID string) string {
	info := Get(providerID)
	if info == nil || !info.IsAPI() {
		return ""
	}
	return info.BaseURL
}

// ResolveAPIKey applies the lookup order: flag, environment, store.
func ResolveAPIKey(providerID, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(APIKeyEnv); env != "" {
		return env
	}
	return GetAPIKey(providerID)
}

// ---------------------------------------------------------------------------
// Registry keys
// ---------------------------------------------------------------------------

// SetRegistryKeys stores the registry access key pair.
func SetRegistryKeys(accessKey, secretKey string) error {
	return Set(RegistryID, &Info{
		Type:      TypeRegistry,
		AccessKey: accessKey,
		SecretKey: secretKey,
	})
}

// GetRegistryKeys returns the stored registry key pair; ok is false when
// none is stored.
func GetRegistryKeys() (accessKey, secretKey string, ok bool) {
	info := Get(RegistryID)
	if info == nil || !info.IsRegistry() {
		return "", "", false
	}
	return info.AccessKey, info.SecretKey, true
}

// ---------------------------------------------------------------------------
// Display helpers
// ---------------------------------------------------------------------------

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// Describe returns a one-line, masked summary of an entry.
func (i *Info) Describe() string {
	switch i.Type {
	case TypeAPI:
		if i.BaseURL != "" {
			return fmt.Sprintf("API key %s (%s)", MaskKey(i.Key), i.BaseURL)
		}
		return "API key " + MaskKey(i.Key)
	case TypeRegistry:
		return fmt.Sprintf("access key %s, secret %s", MaskKey(i.AccessKey), MaskKey(i.SecretKey))
	default:
		return "unknown entry type " + i.Type
	}
}
