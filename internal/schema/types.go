// Package schema describes the fields a query may reference and provides the
// lookup sources the field resolver consults: static maps, Elasticsearch
// mappings, SQLite tables and PostgreSQL tables.
package schema

import (
	"context"
	"strings"
)

// FieldType is a backend-neutral field type, named after the Elasticsearch
// mapping types it most closely follows.
type FieldType string

const (
	TypeUnknown  FieldType = ""
	TypeText     FieldType = "text"
	TypeKeyword  FieldType = "keyword"
	TypeLong     FieldType = "long"
	TypeInteger  FieldType = "integer"
	TypeDouble   FieldType = "double"
	TypeFloat    FieldType = "float"
	TypeBoolean  FieldType = "boolean"
	TypeDate     FieldType = "date"
	TypeIP       FieldType = "ip"
	TypeGeoPoint FieldType = "geo_point"
	TypeObject   FieldType = "object"
	TypeNested   FieldType = "nested"
)

// ParseFieldType normalizes a type name. Unknown names are kept verbatim so
// that backend-specific types survive a round trip.
func ParseFieldType(s string) FieldType {
	switch t := FieldType(strings.ToLower(strings.TrimSpace(s))); t {
	case "string":
		return TypeText
	case "int", "short", "byte":
		return TypeInteger
	case "half_float", "scaled_float":
		return TypeFloat
	case "bool":
		return TypeBoolean
	case "date_nanos", "datetime", "timestamp":
		return TypeDate
	default:
		return t
	}
}

// IsAnalyzed reports whether values of this type are tokenized text.
func (t FieldType) IsAnalyzed() bool {
	return t == TypeText
}

// IsStringLike reports whether include/exclude patterns apply to the type.
func (t FieldType) IsStringLike() bool {
	return t == TypeText || t == TypeKeyword
}

// IsNumeric reports whether the type holds numbers.
func (t FieldType) IsNumeric() bool {
	switch t {
	case TypeLong, TypeInteger, TypeDouble, TypeFloat:
		return true
	}
	return false
}

// Field is a canonical schema field.
type Field struct {
	// Name is the canonical dotted path.
	Name string
	Type FieldType
}

// Lookup resolves a written dotted field path to its canonical field.
//
// Lookup returns (nil, nil) when the field is unknown. A non-nil error means
// the source itself failed and the compilation must stop.
type Lookup interface {
	Field(ctx context.Context, name string) (*Field, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, name string) (*Field, error)

// Field calls f.
func (f LookupFunc) Field(ctx context.Context, name string) (*Field, error) {
	return f(ctx, name)
}

// Chain consults each lookup in order and returns the first hit.
func Chain(lookups ...Lookup) Lookup {
	return LookupFunc(func(ctx context.Context, name string) (*Field, error) {
		for _, l := range lookups {
			if l == nil {
				continue
			}
			f, err := l.Field(ctx, name)
			if err != nil || f != nil {
				return f, err
			}
		}
		return nil, nil
	})
}

// RuntimeField is an ad hoc field that exists only for one compilation, e.g.
// a computed field the backend evaluates with a script.
type RuntimeField struct {
	Name   string    `json:"name" yaml:"name"`
	Type   FieldType `json:"type,omitempty" yaml:"type,omitempty"`
	Script string    `json:"script,omitempty" yaml:"script,omitempty"`
}

// RuntimeFieldResolver discovers a runtime field by name. It returns
// (nil, nil) when the name is not a runtime field.
type RuntimeFieldResolver func(ctx context.Context, name string) (*RuntimeField, error)
