package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Validator is implemented by payloads stored in JSON columns.
type Validator interface {
	Validate() error
}

// Blob stores a semi-structured payload in a jsonb column. The payload is
// validated on both write (Value) and read (Scan) so a malformed row surfaces
// as an error instead of propagating.
type Blob[T any] struct {
	Data T
}

// NewBlob wraps v.
func NewBlob[T any](v T) Blob[T] {
	return Blob[T]{Data: v}
}

func (b Blob[T]) validate() error {
	if v, ok := any(b.Data).(Validator); ok {
		return v.Validate()
	}
	if v, ok := any(&b.Data).(Validator); ok {
		return v.Validate()
	}
	return nil
}

// Value implements driver.Valuer.
func (b Blob[T]) Value() (driver.Value, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(b.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal blob: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (b *Blob[T]) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		var zero T
		b.Data = zero
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported blob source %T", src)
	}
	if len(raw) == 0 {
		var zero T
		b.Data = zero
		return nil
	}
	if err := json.Unmarshal(raw, &b.Data); err != nil {
		return fmt.Errorf("unmarshal blob: %w", err)
	}
	return b.validate()
}

// MarshalJSON emits the payload without the wrapper.
func (b Blob[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Data)
}

// UnmarshalJSON reads the payload and validates it.
func (b *Blob[T]) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &b.Data); err != nil {
		return err
	}
	return b.validate()
}
