// Package defs holds the unit definitions (platform, product, producer, firmware,
// status and unit values) resolved for one maintd run.
package defs

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/conn-castle/maintd/internal/defsfile"
	"github.com/conn-castle/maintd/internal/messages"
)

// Well-known definition keys.
const (
	KeyStatusTime             = "STATUS_TIME"
	KeyStatusUserLevel        = "STATUS_USER_LEVEL"
	KeyStatusIPv4             = "STATUS_IPV4"
	KeyPlatformIdentifier     = "PLATFORM_IDENTIFIER"
	KeyPlatformIDGetter       = "PLATFORM_IDENTIFIER_GETTER"
	KeyPlatformName           = "PLATFORM_NAME"
	KeyPlatformOS             = "PLATFORM_OS_IDENTIFIER"
	KeyPlatformComputeModule  = "PLATFORM_COMPUTINGMODULE"
	KeyPlatformProductGetter  = "PLATFORM_PRODUCT_IDENTIFIER_GETTER"
	KeyPlatformVariantGetter  = "PLATFORM_VARIANT_GETTER"
	KeyProductIdentifier      = "PRODUCT_IDENTIFIER"
	KeyProductModel           = "PRODUCT_MODEL"
	KeyProductVariant         = "PRODUCT_VARIANT"
	KeyProductGTIN            = "PRODUCT_GTIN"
	KeyProductHostPrefix      = "PRODUCT_HOSTPREFIX"
	KeyProductDefaultUserLvl  = "PRODUCT_DEFAULT_USER_LEVEL"
	KeyProductWebAdminUser    = "PRODUCT_WEBADMIN_USER"
	KeyProductCopyrightYears  = "PRODUCT_COPYRIGHT_YEARS"
	KeyProductCopyrightHolder = "PRODUCT_COPYRIGHT_HOLDER"
	KeyProducer               = "PRODUCER"
	KeyProducerGetter         = "PRODUCER_GETTER"
	KeyFirmwareFeed           = "FIRMWARE_FEED"
	KeyFirmwareVersion        = "FIRMWARE_VERSION"
	KeyUnitSerial             = "UNIT_SERIALNO"
	KeyUnitMACDecimal         = "UNIT_MAC_DECIMAL"
	KeyUnitMACAddress         = "UNIT_MACADDRESS"
	KeyUnitHostname           = "UNIT_HOSTNAME"
)

// Store is a string map of definitions. It is not safe for concurrent use;
// maintd only touches it from the event loop.
type Store struct {
	values map[string]string
}

// New returns an empty store.
func New() *Store {
	return &Store{values: make(map[string]string)}
}

// Load reads a definition file into a fresh store and reports whether it held
// at least one definition. A missing, empty or comment-only file reads nothing.
// It is used for definitions that do not belong to the running unit, such as
// the copy stored in a configuration archive.
func Load(path string) (*Store, bool, error) {
	s := New()
	entries, err := defsfile.ReadFile(path)
	if err != nil {
		return s, false, err
	}
	return s, s.merge(entries), nil
}

// Get returns the value for key and whether it is defined.
func (s *Store) Get(key string) (string, bool) {
	value, ok := s.values[key]
	return value, ok
}

// Value returns the value for key or an empty string.
func (s *Store) Value(key string) string {
	return s.values[key]
}

// GetOr returns the value for key or fallback when key is not defined.
func (s *Store) GetOr(key string, fallback string) string {
	if value, ok := s.values[key]; ok {
		return value
	}
	return fallback
}

// Has reports whether key is defined, even with an empty value.
func (s *Store) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Set defines key, replacing any previous value.
func (s *Store) Set(key string, value string) {
	s.values[key] = value
}

// SetDefault defines key only when it is not defined yet and reports whether it did.
func (s *Store) SetDefault(key string, value string) bool {
	if _, ok := s.values[key]; ok {
		return false
	}
	s.values[key] = value
	return true
}

// SetAll defines every key of values, replacing previous values.
func (s *Store) SetAll(values map[string]string) {
	for key, value := range values {
		s.values[key] = value
	}
}

// MergeFile merges the definitions in path with last-wins semantics.
// It reports whether at least one definition was read; a missing file merges nothing.
func (s *Store) MergeFile(path string) bool {
	entries, err := defsfile.ReadFile(path)
	if err != nil {
		return false
	}
	return s.merge(entries)
}

// MergeFirstLine sets key to the first line of path and reports whether it did.
func (s *Store) MergeFirstLine(path string, key string) bool {
	line, ok := defsfile.ReadFirstLine(path)
	if !ok {
		return false
	}
	s.values[key] = line
	return true
}

func (s *Store) merge(entries []defsfile.Entry) bool {
	for _, entry := range entries {
		s.values[entry.Key] = entry.Value
	}
	return len(entries) > 0
}

// IsTrue reports whether key holds a truthy value: "1", "ok", or anything starting with t or y.
func (s *Store) IsTrue(key string) bool {
	value, ok := s.values[key]
	if !ok || value == "" {
		return false
	}
	if value == "1" || value == "ok" {
		return true
	}
	switch value[0] {
	case 't', 'T', 'y', 'Y':
		return true
	}
	return false
}

// Int returns the leading decimal integer of key, or fallback when key is undefined or not numeric.
func (s *Store) Int(key string, fallback int) int {
	value, ok := s.values[key]
	if !ok {
		return fallback
	}
	n, ok := leadingInt(value)
	if !ok {
		return fallback
	}
	return n
}

// leadingInt parses an optionally signed decimal prefix of value.
func leadingInt(value string) (int, bool) {
	value = strings.TrimLeft(value, " \t")
	end := 0
	if end < len(value) && (value[end] == '-' || value[end] == '+') {
		end++
	}
	digits := end
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(value[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Len returns the number of definitions.
func (s *Store) Len() int {
	return len(s.values)
}

// Keys returns all keys in ascending order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of all definitions.
func (s *Store) Snapshot() map[string]string {
	out := make(map[string]string, len(s.values))
	for key, value := range s.values {
		out[key] = value
	}
	return out
}

// Reset removes all definitions.
func (s *Store) Reset() {
	clear(s.values)
}

// WriteShell writes all definitions as KEY='value' lines in key order.
func (s *Store) WriteShell(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, key := range s.Keys() {
		if _, err := fmt.Fprintln(bw, defsfile.FormatAssignment(key, s.values[key])); err != nil {
			return fmt.Errorf(messages.DefsWriteShellFmt, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf(messages.DefsWriteShellFmt, err)
	}
	return nil
}

// Text renders the definitions as key=value lines in key order. It is used to diff
// two definition sets for display.
func (s *Store) Text() string {
	var b strings.Builder
	for _, key := range s.Keys() {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(s.values[key])
		b.WriteByte('\n')
	}
	return b.String()
}
