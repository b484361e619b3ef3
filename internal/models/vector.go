package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Vector is a float32 slice stored in a Postgres VECTOR column. It
// implements sql.Scanner and driver.Valuer for the pgvector text
// format "[1,2,3]".
type Vector []float32

// Scan parses the pgvector text format from a string or []byte value.
func (v *Vector) Scan(value any) error {
	if value == nil {
		*v = nil
		return nil
	}

	var raw string
	switch val := value.(type) {
	case string:
		raw = val
	case []byte:
		raw = string(val)
	default:
		return fmt.Errorf("cannot scan %T into Vector", value)
	}

	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	if raw == "" {
		*v = Vector{}
		return nil
	}

	parts := strings.Split(raw, ",")
	floats := make(Vector, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return fmt.Errorf("parse vector element %d: %w", i, err)
		}
		floats[i] = float32(f)
	}
	*v = floats
	return nil
}

// Value serializes the vector to the pgvector text literal.
func (v Vector) Value() (driver.Value, error) {
	return v.String(), nil
}

func (v Vector) String() string {
	var b strings.Builder
	b.Grow(len(v)*12 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
