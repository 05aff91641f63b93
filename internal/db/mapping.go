package db

import (
	"errors"
	"strconv"
)

// FieldType enumerates supported mapping field types.
type FieldType string

const (
	// FieldText is a full-text analyzed field.
	FieldText FieldType = "text"
	// FieldKeyword is an exact-value field.
	FieldKeyword FieldType = "keyword"
	// FieldInteger is a 32-bit integer field.
	FieldInteger FieldType = "integer"
	// FieldFloat is a single-precision float field.
	FieldFloat FieldType = "float"
	// FieldBoolean is a boolean field.
	FieldBoolean FieldType = "boolean"
	// FieldDate is a date field (RFC 3339 values).
	FieldDate FieldType = "date"
	// FieldGeoPoint is a lat/lon point field.
	FieldGeoPoint FieldType = "geo_point"
	// FieldDenseVector is an indexed dense vector field with cosine similarity.
	FieldDenseVector FieldType = "dense_vector"
)

// MappingField describes a single field in an index mapping.
type MappingField struct {
	Name string
	Type FieldType

	// VectorDims is the dimension count for dense_vector fields.
	VectorDims int
}

// Mapping is a complete index definition: settings plus field mappings.
type Mapping struct {
	Shards   int
	Replicas int
	Fields   []MappingField
}

// Validate checks that the mapping is well-formed.
func (m *Mapping) Validate() error {
	if len(m.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool)
	for i := range m.Fields {
		f := &m.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if !IsValidIdentifier(f.Name) {
			return errors.New("field name contains invalid characters: " + f.Name)
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true

		if f.Type == FieldDenseVector && f.VectorDims <= 0 {
			return errors.New("dense_vector field requires positive dims")
		}
	}

	return nil
}

// Body renders the create-index request body.
func (m *Mapping) Body() map[string]any {
	shards := m.Shards
	if shards <= 0 {
		shards = 1
	}

	props := make(map[string]any, len(m.Fields))
	for _, f := range m.Fields {
		switch f.Type {
		case FieldDenseVector:
			props[f.Name] = map[string]any{
				"type":       string(FieldDenseVector),
				"dims":       f.VectorDims,
				"index":      true,
				"similarity": "cosine",
			}
		default:
			props[f.Name] = map[string]any{"type": string(f.Type)}
		}
	}

	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   shards,
			"number_of_replicas": m.Replicas,
		},
		"mappings": map[string]any{
			"properties": props,
		},
	}
}

// MappingBuilder is a fluent builder for index mappings.
type MappingBuilder struct {
	m Mapping
}

// NewMapping starts building an index mapping.
func NewMapping() *MappingBuilder {
	return &MappingBuilder{m: Mapping{Shards: 1}}
}

// Shards sets the primary shard count.
func (b *MappingBuilder) Shards(n int) *MappingBuilder {
	b.m.Shards = n
	return b
}

// Replicas sets the replica count.
func (b *MappingBuilder) Replicas(n int) *MappingBuilder {
	b.m.Replicas = n
	return b
}

// Text adds a full-text field.
func (b *MappingBuilder) Text(name string) *MappingBuilder {
	return b.field(name, FieldText)
}

// Keyword adds an exact-value field.
func (b *MappingBuilder) Keyword(name string) *MappingBuilder {
	return b.field(name, FieldKeyword)
}

// Integer adds an integer field.
func (b *MappingBuilder) Integer(name string) *MappingBuilder {
	return b.field(name, FieldInteger)
}

// Float adds a float field.
func (b *MappingBuilder) Float(name string) *MappingBuilder {
	return b.field(name, FieldFloat)
}

// Boolean adds a boolean field.
func (b *MappingBuilder) Boolean(name string) *MappingBuilder {
	return b.field(name, FieldBoolean)
}

// Date adds a date field.
func (b *MappingBuilder) Date(name string) *MappingBuilder {
	return b.field(name, FieldDate)
}

// GeoPoint adds a lat/lon point field.
func (b *MappingBuilder) GeoPoint(name string) *MappingBuilder {
	return b.field(name, FieldGeoPoint)
}

// DenseVector adds an indexed dense vector field.
func (b *MappingBuilder) DenseVector(name string, dims int) *MappingBuilder {
	b.m.Fields = append(b.m.Fields, MappingField{
		Name:       name,
		Type:       FieldDenseVector,
		VectorDims: dims,
	})
	return b
}

func (b *MappingBuilder) field(name string, t FieldType) *MappingBuilder {
	b.m.Fields = append(b.m.Fields, MappingField{Name: name, Type: t})
	return b
}

// Build validates and returns the mapping.
func (b *MappingBuilder) Build() (*Mapping, error) {
	if err := b.m.Validate(); err != nil {
		return nil, err
	}
	return &b.m, nil
}

// MustBuild calls Build and panics on error.
func (b *MappingBuilder) MustBuild() *Mapping {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_.-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == '.' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
