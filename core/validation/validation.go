// Package validation extracts typed values from untyped JSON objects.
//
// Every accessor takes the decoded object, the key to read and the dotted path
// of the object inside the response (empty for the top level). Failures are
// reported as *Error with a message naming the full field path, for example
// "Missing required field: connectedConfiguration.firmware.version".
//
// Type names in messages use the vocabulary of the vendor's reference client
// (str, int, float, bool, list, dict, NoneType) so that error strings are the
// same regardless of which binding produced them.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Error is returned when a value does not have the expected shape.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Join returns the dotted path of key inside path.
func Join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// Index returns the path of the i-th element of the list at path.
func Index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

// TypeName returns the name used in error messages for the type of v.
func TypeName(v any) string {
	switch x := v.(type) {
	case nil:
		return "NoneType"
	case string:
		return "str"
	case bool:
		return "bool"
	case json.Number:
		if strings.ContainsAny(x.String(), ".eE") {
			return "float"
		}
		return "int"
	case float32, float64:
		return "float"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "int"
	case []any:
		return "list"
	case map[string]any:
		return "dict"
	}
	return fmt.Sprintf("%T", v)
}

// Decode parses a JSON document. Numbers are kept as json.Number so that
// integers and floats can be told apart in error messages.
func Decode(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var trailing any
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level JSON value")
	}
	return v, nil
}

// Response checks that a decoded response body is an object.
func Response(v any, typeName string) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errorf("Expected dict for %s, got %s", typeName, TypeName(v))
	}
	return m, nil
}

func required(m map[string]any, key, path string) (any, error) {
	v, ok := m[key]
	if !ok {
		return nil, errorf("Missing required field: %s", Join(path, key))
	}
	return v, nil
}

// String returns the string at key. A missing key, null or any other type is an error.
func String(m map[string]any, key, path string) (string, error) {
	v, err := required(m, key, path)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", errorf("Expected str for %s, got %s", Join(path, key), TypeName(v))
	}
	return s, nil
}

// OptionalString returns the string at key, or nil when the key is missing or null.
func OptionalString(m map[string]any, key, path string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, errorf("Expected str or None for %s, got %s", Join(path, key), TypeName(v))
	}
	return &s, nil
}

// Bool returns the boolean at key.
func Bool(m map[string]any, key, path string) (bool, error) {
	v, err := required(m, key, path)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, errorf("Expected bool for %s, got %s", Join(path, key), TypeName(v))
	}
	return b, nil
}

// OptionalBool returns the boolean at key, or nil when the key is missing or null.
func OptionalBool(m map[string]any, key, path string) (*bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil, errorf("Expected bool or None for %s, got %s", Join(path, key), TypeName(v))
	}
	return &b, nil
}

// List returns the array at key.
func List(m map[string]any, key, path string) ([]any, error) {
	v, err := required(m, key, path)
	if err != nil {
		return nil, err
	}
	l, ok := v.([]any)
	if !ok {
		return nil, errorf("Expected list for %s, got %s", Join(path, key), TypeName(v))
	}
	return l, nil
}

// OptionalList returns the array at key. The second return value is false
// when the key is missing or null.
func OptionalList(m map[string]any, key, path string) ([]any, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	l, ok := v.([]any)
	if !ok {
		return nil, false, errorf("Expected list or None for %s, got %s", Join(path, key), TypeName(v))
	}
	return l, true, nil
}

// Dict returns the object at key.
func Dict(m map[string]any, key, path string) (map[string]any, error) {
	v, err := required(m, key, path)
	if err != nil {
		return nil, err
	}
	d, ok := v.(map[string]any)
	if !ok {
		return nil, errorf("Expected dict for %s, got %s", Join(path, key), TypeName(v))
	}
	return d, nil
}

// OptionalDict returns the object at key, or nil when the key is missing or null.
func OptionalDict(m map[string]any, key, path string) (map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	d, ok := v.(map[string]any)
	if !ok {
		return nil, errorf("Expected dict or None for %s, got %s", Join(path, key), TypeName(v))
	}
	return d, nil
}

// ParseUUID parses a UUID string. path names the field in the error message.
func ParseUUID(value, path string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, errorf("Invalid UUID format for %s", path)
	}
	return id, nil
}

// UUID reads the string at key and parses it as a UUID.
func UUID(m map[string]any, key, path string) (uuid.UUID, error) {
	s, err := String(m, key, path)
	if err != nil {
		return uuid.Nil, err
	}
	return ParseUUID(s, Join(path, key))
}

// StringList returns the array at key as strings. Every element must be a string.
func StringList(m map[string]any, key, path string) ([]string, bool, error) {
	l, ok, err := OptionalList(m, key, path)
	if err != nil || !ok {
		return nil, ok, err
	}
	res := make([]string, 0, len(l))
	for i, v := range l {
		s, ok := v.(string)
		if !ok {
			return nil, false, errorf("Expected str for %s, got %s", Index(Join(path, key), i), TypeName(v))
		}
		res = append(res, s)
	}
	return res, true, nil
}

// Enum reads the string at key and checks it against the closed set allowed.
func Enum[T ~string](m map[string]any, key, path string, allowed ...T) (T, error) {
	s, err := String(m, key, path)
	if err != nil {
		return "", err
	}
	for _, a := range allowed {
		if string(a) == s {
			return a, nil
		}
	}
	return "", errorf("Invalid %s value: %s", Join(path, key), s)
}
