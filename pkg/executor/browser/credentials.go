package browser

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Credentials is one site's login pair.
type Credentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SavedAt  string `yaml:"saved_at,omitempty"`
}

// CredentialStore holds login credentials keyed by site host, backing the
// auto_login action. Passwords never appear in step results, page
// descriptions, or logs; they flow only from the store into the page.
type CredentialStore struct {
	path  string
	creds map[string]Credentials
}

// DefaultCredentialsPath returns ~/.wayfind/credentials.yaml.
func DefaultCredentialsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".wayfind", "credentials.yaml"), nil
}

// LoadCredentials reads the credential file at path, or the default
// location when path is empty. A missing file yields an empty store; an
// unreadable or malformed file yields an empty store alongside the error,
// so auto_login stays registered and fails per-site instead of crashing
// the run.
func LoadCredentials(path string) (*CredentialStore, error) {
	if path == "" {
		var err error
		path, err = DefaultCredentialsPath()
		if err != nil {
			return &CredentialStore{creds: map[string]Credentials{}}, err
		}
	}

	store := &CredentialStore{path: path, creds: map[string]Credentials{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return store, fmt.Errorf("failed to read credential file: %w", err)
	}
	if err := yaml.Unmarshal(data, &store.creds); err != nil {
		store.creds = map[string]Credentials{}
		return store, fmt.Errorf("failed to parse credential file %s: %w", path, err)
	}
	return store, nil
}

// Lookup returns the credentials for a host. A bare registration under
// "example.com" also serves "www.example.com" and other subdomains.
func (s *CredentialStore) Lookup(host string) (Credentials, bool) {
	host = strings.ToLower(host)
	if c, ok := s.creds[host]; ok {
		return c, true
	}
	for domain, c := range s.creds {
		if strings.HasSuffix(host, "."+strings.ToLower(domain)) {
			return c, true
		}
	}
	return Credentials{}, false
}

// Set registers credentials for a host.
func (s *CredentialStore) Set(host string, c Credentials) {
	if c.SavedAt == "" {
		c.SavedAt = time.Now().Format(time.RFC3339)
	}
	s.creds[strings.ToLower(host)] = c
}

// Len returns the number of sites with stored credentials.
func (s *CredentialStore) Len() int { return len(s.creds) }

// Save writes the store back to its file atomically with owner-only
// permissions.
func (s *CredentialStore) Save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	data, err := yaml.Marshal(s.creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp credential file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp credential file: %w", err)
	}
	return nil
}

// hostOf extracts the lowercase host of a URL, without any port.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
