package keystore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/spf13/viper"
)

// ConfigSource is a key-value store holding persisted key material.
type ConfigSource interface {
	// Get returns the value for key and whether it is set to a non-empty value.
	Get(key string) (string, bool, error)
	// Set durably stores value under key.
	Set(key, value string) error
}

var (
	_ ConfigSource = (*DotEnvSource)(nil)
	_ ConfigSource = (*MemorySource)(nil)
)

// DotEnvSource is a ConfigSource backed by a dotenv file such as ".env". A missing file is an
// empty source; it is created with mode 0600 on the first Set. The process environment is never
// consulted.
type DotEnvSource struct {
	path string
}

// NewDotEnvSource returns a source reading and writing the dotenv file at path.
func NewDotEnvSource(path string) *DotEnvSource {
	return &DotEnvSource{path: path}
}

// Path returns the dotenv file path.
func (s *DotEnvSource) Path() string {
	return s.path
}

// read loads the dotenv file into a fresh viper instance.
func (s *DotEnvSource) read() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("env")
	v.SetConfigPermissions(0o600)

	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return v, nil
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read dotenv file %s: %w", s.path, err)
	}

	return v, nil
}

// Get implements ConfigSource. Keys are case-insensitive.
func (s *DotEnvSource) Get(key string) (string, bool, error) {
	v, err := s.read()
	if err != nil {
		return "", false, err
	}

	val := v.GetString(key)

	return val, val != "", nil
}

// Set implements ConfigSource. Other keys present in the file are preserved; comments are not.
func (s *DotEnvSource) Set(key, value string) error {
	v, err := s.read()
	if err != nil {
		return err
	}

	v.Set(key, value)
	if err = v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write dotenv file %s: %w", s.path, err)
	}

	// WriteConfigAs only applies the permissions when it creates the file.
	if err = os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict permissions of %s: %w", s.path, err)
	}

	return nil
}

// MemorySource is an in-memory ConfigSource. It counts writes so callers can assert that a load
// did not persist anything.
type MemorySource struct {
	mu     sync.Mutex
	values map[string]string
	writes int
}

// NewMemorySource returns a source pre-populated with values.
func NewMemorySource(values map[string]string) *MemorySource {
	m := &MemorySource{values: make(map[string]string, len(values))}
	for k, v := range values {
		m.values[k] = v
	}

	return m
}

// Get implements ConfigSource.
func (m *MemorySource) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	val := m.values[key]

	return val, val != "", nil
}

// Set implements ConfigSource.
func (m *MemorySource) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	m.writes++

	return nil
}

// Writes returns the number of Set calls.
func (m *MemorySource) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.writes
}
