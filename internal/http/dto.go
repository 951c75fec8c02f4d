package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const timestampLayout = time.RFC3339

// flexID decodes an identifier sent as a JSON number, a numeric string, an empty
// string or null. Browser forms submit select values as strings.
type flexID struct {
	set   bool
	valid bool
	value int64
}

func (f *flexID) UnmarshalJSON(data []byte) error {
	f.set = true
	raw, ok, err := scalarText(data)
	if err != nil || !ok {
		return err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid identifier %q", raw)
	}
	f.valid = true
	f.value = v
	return nil
}

// orZero returns the value, or 0 when absent or blank.
func (f flexID) orZero() int64 {
	if !f.valid {
		return 0
	}
	return f.value
}

// optional returns nil when the field is absent or blank.
func (f flexID) optional() *int64 {
	if !f.valid {
		return nil
	}
	v := f.value
	return &v
}

// patch returns nil when absent and 0 when sent blank, which clears the reference.
func (f flexID) patch() *int64 {
	if !f.set {
		return nil
	}
	v := f.orZero()
	return &v
}

// flexFloat is the decimal counterpart of flexID.
type flexFloat struct {
	set   bool
	valid bool
	value float64
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	f.set = true
	raw, ok, err := scalarText(data)
	if err != nil || !ok {
		return err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", raw)
	}
	f.valid = true
	f.value = v
	return nil
}

func (f flexFloat) optional() *float64 {
	if !f.valid {
		return nil
	}
	v := f.value
	return &v
}

// optionalString distinguishes an absent field from null. In patches null and ""
// both clear the field.
type optionalString struct {
	set   bool
	value string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.value = ""
		return nil
	}
	return json.Unmarshal(data, &o.value)
}

func (o optionalString) ptr() *string {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// scalarText unwraps a JSON number or string. ok is false for null and blank strings.
func scalarText(data []byte) (raw string, ok bool, err error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return "", false, nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false, err
		}
		s = strings.TrimSpace(s)
		return s, s != "", nil
	}
	return string(trimmed), true, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

func parsePathID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}
