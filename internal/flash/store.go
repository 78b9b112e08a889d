// Package flash keeps the small pieces of state maintd persists on the flash
// partition: web UI properties, the alert queue and the user level.
package flash

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/conn-castle/maintd/internal/messages"
)

const (
	propertyPrefix = "p44_property_"
	alertDir       = "p44alerts"
	alertPrefix    = "alert_"
	userLevelFile  = "p44userlevel"
)

// ErrInvalidName is returned for property keys and alert ids that could escape their directory.
var ErrInvalidName = errors.New(messages.FlashInvalidName)

// Store reads and writes files below one flash directory.
type Store struct {
	dir   string
	newID func() string
}

// New returns a store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir, newID: func() string { return uuid.New().String() }}
}

// ValidName reports whether name can be used as a property key or alert id.
func ValidName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "/.")
}

// PropertyPath returns the file holding the property key.
func (s *Store) PropertyPath(key string) string {
	return filepath.Join(s.dir, propertyPrefix+strings.ToLower(key))
}

// Property returns the stored JSON value of key. ok is false when nothing is stored
// or the stored content is not valid JSON.
func (s *Store) Property(key string) (json.RawMessage, bool, error) {
	if !ValidName(key) {
		return nil, false, ErrInvalidName
	}
	var (
		value json.RawMessage
		ok    bool
	)
	err := s.read(scopeProperties, func() error {
		var err error
		value, ok, err = readJSON(s.PropertyPath(key))
		return err
	})
	return value, ok, err
}

// SetProperty stores value as compact JSON followed by a newline.
func (s *Store) SetProperty(key string, value json.RawMessage) error {
	if !ValidName(key) {
		return ErrInvalidName
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return fmt.Errorf(messages.FlashEncodeFmt, key, err)
	}
	buf.WriteByte('\n')
	return s.write(scopeProperties, func() error {
		return writeFileAtomic(s.PropertyPath(key), buf.Bytes())
	})
}

// DeleteProperty removes key. Deleting a missing property is not an error.
func (s *Store) DeleteProperty(key string) error {
	if !ValidName(key) {
		return ErrInvalidName
	}
	return s.write(scopeProperties, func() error {
		return removeIfExists(s.PropertyPath(key))
	})
}

// SetUserLevel persists level so it survives a reboot.
func (s *Store) SetUserLevel(level int) error {
	return s.write(scopeUserLevel, func() error {
		return writeFileAtomic(filepath.Join(s.dir, userLevelFile), []byte(strconv.Itoa(level)))
	})
}

// AddAlert queues alert and returns its id. A string "id" member is used as the id;
// otherwise a new id is generated and added to the alert.
func (s *Store) AddAlert(alert map[string]json.RawMessage) (string, error) {
	id, err := alertID(alert)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = s.newID()
		encoded, _ := json.Marshal(id)
		alert["id"] = encoded
	}
	if !ValidName(id) {
		return "", ErrInvalidName
	}
	data, err := json.Marshal(alert)
	if err != nil {
		return "", fmt.Errorf(messages.FlashEncodeFmt, id, err)
	}
	dir := filepath.Join(s.dir, alertDir)
	err = s.write(scopeAlerts, func() error {
		if err := os.MkdirAll(dir, 0o775); err != nil {
			return fmt.Errorf(messages.FlashCreateDirFmt, dir, err)
		}
		return writeFileAtomic(filepath.Join(dir, alertPrefix+id), data)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// alertID extracts the id member. Non-string ids are used in their JSON form.
func alertID(alert map[string]json.RawMessage) (string, error) {
	raw, ok := alert["id"]
	if !ok {
		return "", nil
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf(messages.FlashEncodeFmt, "id", err)
	}
	return buf.String(), nil
}

// ConfirmAlert removes the alert id and reports whether it existed.
func (s *Store) ConfirmAlert(id string) (bool, error) {
	if !ValidName(id) {
		return false, ErrInvalidName
	}
	path := filepath.Join(s.dir, alertDir, alertPrefix+id)
	existed := false
	err := s.write(scopeAlerts, func() error {
		if _, err := os.Stat(path); err == nil {
			existed = true
		}
		return removeIfExists(path)
	})
	return existed, err
}

// NextAlert returns the pending alert that sorts first by file name. ok is false
// when the queue is empty or the first entry is unreadable.
func (s *Store) NextAlert() (json.RawMessage, bool, error) {
	var (
		alert json.RawMessage
		ok    bool
	)
	err := s.read(scopeAlerts, func() error {
		var err error
		alert, ok, err = s.firstAlert()
		return err
	})
	return alert, ok, err
}

func (s *Store) firstAlert() (json.RawMessage, bool, error) {
	dir := filepath.Join(s.dir, alertDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf(messages.FlashReadDirFmt, dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") || entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return nil, false, nil
	}
	sort.Strings(names)
	return readJSON(filepath.Join(dir, names[0]))
}

// read runs fn holding sc shared. A flash directory that does not exist yet
// has nothing to lock.
func (s *Store) read(sc scope, fn func() error) error {
	lock, err := lockScope(s.dir, sc, unix.LOCK_SH)
	if errors.Is(err, fs.ErrNotExist) {
		return fn()
	}
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.unlock()
	}()
	return fn()
}

// write runs fn holding sc exclusively, creating the flash directory first.
func (s *Store) write(sc scope, fn func() error) error {
	if err := os.MkdirAll(s.dir, 0o775); err != nil {
		return fmt.Errorf(messages.FlashCreateDirFmt, s.dir, err)
	}
	lock, err := lockScope(s.dir, sc, unix.LOCK_EX)
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.unlock()
	}()
	return fn()
}

func readJSON(path string) (json.RawMessage, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf(messages.FlashReadFmt, path, err)
	}
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, false, nil
	}
	return json.RawMessage(data), true, nil
}

// writeFileAtomic writes data to a temporary file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf(messages.FlashCreateTempFmt, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf(messages.FlashWriteFmt, path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf(messages.FlashSyncFmt, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf(messages.FlashCloseFmt, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf(messages.FlashWriteFmt, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf(messages.FlashRenameFmt, path, err)
	}
	committed = true
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf(messages.FlashRemoveFmt, path, err)
	}
	return nil
}
