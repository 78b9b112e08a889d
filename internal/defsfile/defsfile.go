// Package defsfile reads the key=value definition files found in the
// firmware image and on the flash partition.
package defsfile

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/conn-castle/maintd/internal/messages"
)

// Entry is one assignment in file order.
type Entry struct {
	Key   string
	Value string
}

// Parse reads definition content into entries in file order.
// Lines that do not form an assignment are skipped. Lines have no length limit.
func Parse(content string) []Entry {
	var entries []Entry
	for line := range strings.Lines(content) {
		key, value, ok := ParseLine(strings.TrimSuffix(line, "\n"))
		if !ok {
			continue
		}
		entries = append(entries, Entry{Key: key, Value: value})
	}
	return entries
}

// ParseLine parses a single definition line.
// line is the raw line without terminator; returns key/value and whether the line is an assignment.
func ParseLine(line string) (string, string, bool) {
	line = strings.TrimSuffix(line, "\r")
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	idx := strings.IndexByte(line, '=')
	if idx < 0 {
		return "", "", false
	}
	key := strings.TrimSpace(line[:idx])
	if key == "" {
		return "", "", false
	}
	value := strings.TrimLeft(line[idx+1:], " \t")
	if value != "" && (value[0] == '"' || value[0] == '\'') {
		value = dequote(value)
	}
	return key, value, true
}

// dequote returns the payload of a quoted value.
// Backslash takes the next character literally, the value ends at the matching unescaped
// quote and an unterminated quote runs to the end of the line.
func dequote(value string) string {
	quote := value[0]
	var b strings.Builder
	b.Grow(len(value))
	escaped := false
	for i := 1; i < len(value); i++ {
		c := value[i]
		if !escaped {
			if c == quote {
				break
			}
			if c == '\\' {
				escaped = true
				continue
			}
		}
		b.WriteByte(c)
		escaped = false
	}
	return b.String()
}

// ReadFile reads and parses the definition file at path.
// A missing file is reported with an error wrapping fs.ErrNotExist.
func ReadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf(messages.DefsReadFileFmt, path, err)
	}
	return Parse(string(data)), nil
}

// ReadFirstLine returns the first line of the file at path without its terminator.
// ok is false when the file is missing, unreadable or starts with an empty line.
func ReadFirstLine(path string) (string, bool) {
	file, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer func() {
		_ = file.Close()
	}()
	reader := bufio.NewReader(file)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
	if line == "" {
		return "", false
	}
	return line, true
}

// ShellQuote quotes value for POSIX shells using single quotes.
func ShellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

// FormatAssignment renders key and value as a shell variable assignment.
func FormatAssignment(key string, value string) string {
	return key + "=" + ShellQuote(value)
}
