package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/peterbourgon/diskv/v3"
)

const (
	KeySelectedCalendars      = "selected-calendars"
	KeySelectedReminderLists  = "selected-reminder-lists"
	KeyShowCompleted          = "show-completed"
	KeyHasInitializedDefaults = "has-initialized-defaults"
)

var ErrNotFound = errors.New("preference not found")

// Store is a flat key/value preference store. Each key is one file holding a
// JSON value.
type Store struct {
	d        *diskv.Diskv
	basePath string
}

func Open(basePath string) (*Store, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("preferences directory is empty")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create preferences dir: %w", err)
	}

	return &Store{d: diskv.New(diskv.Options{
		BasePath:          basePath,
		AdvancedTransform: flatTransform,
		InverseTransform:  flatInverse,
		CacheSizeMax:      64 * 1024,
		FilePerm:          0o644,
		PathPerm:          0o755,
	}), basePath: basePath}, nil
}

func (s *Store) Path() string {
	return s.basePath
}

// GetStringList reports ok=false when the key has never been written.
func (s *Store) GetStringList(key string) ([]string, bool, error) {
	var values []string
	if err := s.read(key, &values); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if values == nil {
		values = []string{}
	}
	return values, true, nil
}

func (s *Store) SetStringList(key string, values []string) error {
	if values == nil {
		values = []string{}
	}
	return s.write(key, values)
}

func (s *Store) GetBool(key string) (bool, bool, error) {
	var value bool
	if err := s.read(key, &value); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, false, nil
		}
		return false, false, err
	}
	return value, true, nil
}

func (s *Store) SetBool(key string, value bool) error {
	return s.write(key, value)
}

func (s *Store) Delete(key string) error {
	if !s.d.Has(key) {
		return nil
	}
	if err := s.d.Erase(key); err != nil {
		return fmt.Errorf("erase %s: %w", key, err)
	}
	return nil
}

func (s *Store) read(key string, target any) error {
	raw, err := s.d.Read(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) write(key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.d.Write(key, payload); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func flatTransform(key string) *diskv.PathKey {
	return &diskv.PathKey{Path: []string{}, FileName: key}
}

func flatInverse(pathKey *diskv.PathKey) string {
	return pathKey.FileName
}
