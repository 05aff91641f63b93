package docdex

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/kailas-cloud/docdex/internal/db"
)

const tagKey = "docdex"

// fieldKind classifies a struct field for mapping and conversion.
type fieldKind string

const (
	kindID      fieldKind = "id"
	kindText    fieldKind = "text"
	kindKeyword fieldKind = "keyword"
	kindTag     fieldKind = "tag"
	kindNumeric fieldKind = "numeric"
	kindDate    fieldKind = "date"
	kindGeo     fieldKind = "geo"
)

// fieldMapping binds a struct field to a document field.
type fieldMapping struct {
	structIdx int
	name      string
	kind      fieldKind
	goKind    reflect.Kind
}

// schemaMeta holds parsed struct tag metadata, cached per Index.
type schemaMeta struct {
	typ reflect.Type // struct type for reconstruction

	idIdx   int
	geoIdx  int // -1 if no geo field
	geoName string

	// fields in struct order, excluding the id and geo roles.
	fields []fieldMapping

	// textFields lists the full-text field names; the first one feeds
	// the embedder.
	textFields []string
}

// parseSchema reflects on T and extracts docdex struct tag metadata.
// Tags read `docdex:"name,kind"`; an omitted kind is inferred from the Go
// type (string -> keyword, numbers -> numeric, []string -> tag,
// time.Time -> date, GeoPoint -> geo).
func parseSchema[T any]() (*schemaMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return nil, fmt.Errorf("docdex: type is not a struct")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("docdex: type %s is not a struct", t)
	}

	meta := &schemaMeta{typ: t, idIdx: -1, geoIdx: -1}

	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" {
			continue
		}
		if err := applyTag(meta, i, f, tag); err != nil {
			return nil, err
		}
	}

	return validateSchema(meta, t)
}

// applyTag processes a single struct field's docdex tag.
func applyTag(meta *schemaMeta, idx int, f reflect.StructField, tag string) error {
	name, kindStr, _ := strings.Cut(tag, ",")
	if name == "" {
		return fmt.Errorf("docdex: empty field name in tag on %s", f.Name)
	}
	if !db.IsValidIdentifier(name) {
		return fmt.Errorf("docdex: invalid field name %q on %s", name, f.Name)
	}

	kind := fieldKind(kindStr)
	if kindStr == "" {
		inferred, err := inferKind(f.Type)
		if err != nil {
			return fmt.Errorf("docdex: field %s: %w", f.Name, err)
		}
		kind = inferred
	}

	switch kind {
	case kindID:
		if meta.idIdx != -1 {
			return fmt.Errorf("docdex: duplicate id tag on field %s", f.Name)
		}
		if f.Type.Kind() != reflect.String {
			return fmt.Errorf("docdex: id field %s must be a string", f.Name)
		}
		meta.idIdx = idx
	case kindGeo:
		if meta.geoIdx != -1 {
			return fmt.Errorf("docdex: duplicate geo tag on field %s", f.Name)
		}
		if f.Type != reflect.TypeOf(GeoPoint{}) {
			return fmt.Errorf("docdex: geo field %s must be a docdex.GeoPoint", f.Name)
		}
		meta.geoIdx = idx
		meta.geoName = name
	case kindText, kindKeyword:
		if f.Type.Kind() != reflect.String {
			return fmt.Errorf("docdex: %s field %s must be a string", kind, f.Name)
		}
		meta.fields = append(meta.fields, fieldMapping{
			structIdx: idx, name: name, kind: kind, goKind: reflect.String,
		})
		if kind == kindText {
			meta.textFields = append(meta.textFields, name)
		}
	case kindTag:
		if f.Type.Kind() != reflect.Slice || f.Type.Elem().Kind() != reflect.String {
			return fmt.Errorf("docdex: tag field %s must be a []string", f.Name)
		}
		meta.fields = append(meta.fields, fieldMapping{
			structIdx: idx, name: name, kind: kindTag, goKind: reflect.Slice,
		})
	case kindNumeric:
		k := f.Type.Kind()
		if !isNumericKind(k) {
			return fmt.Errorf("docdex: numeric field %s must be an integer or float", f.Name)
		}
		meta.fields = append(meta.fields, fieldMapping{
			structIdx: idx, name: name, kind: kindNumeric, goKind: k,
		})
	case kindDate:
		if f.Type != reflect.TypeOf(time.Time{}) {
			return fmt.Errorf("docdex: date field %s must be a time.Time", f.Name)
		}
		meta.fields = append(meta.fields, fieldMapping{
			structIdx: idx, name: name, kind: kindDate, goKind: reflect.Struct,
		})
	default:
		return fmt.Errorf("docdex: unknown kind %q on field %s", kindStr, f.Name)
	}
	return nil
}

// inferKind maps a Go type to a field kind when the tag names none.
func inferKind(t reflect.Type) (fieldKind, error) {
	switch {
	case t == reflect.TypeOf(time.Time{}):
		return kindDate, nil
	case t == reflect.TypeOf(GeoPoint{}):
		return kindGeo, nil
	case t.Kind() == reflect.String:
		return kindKeyword, nil
	case isNumericKind(t.Kind()):
		return kindNumeric, nil
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.String:
		return kindTag, nil
	default:
		return "", fmt.Errorf("cannot infer kind for type %s", t)
	}
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func validateSchema(meta *schemaMeta, t reflect.Type) (*schemaMeta, error) {
	if meta.idIdx == -1 {
		return nil, fmt.Errorf("docdex: no field with `docdex:\"...,id\"` tag in %s", t)
	}
	seen := make(map[string]bool, len(meta.fields)+1)
	if meta.geoIdx != -1 {
		seen[meta.geoName] = true
	}
	for _, f := range meta.fields {
		if f.name == vectorField {
			return nil, fmt.Errorf("docdex: field name %q is reserved in %s", vectorField, t)
		}
		if seen[f.name] {
			return nil, fmt.Errorf("docdex: duplicate field name %q in %s", f.name, t)
		}
		seen[f.name] = true
	}
	return meta, nil
}

// mapping builds the index definition. A dense vector field rides along
// when the client embeds text fields.
func (m *schemaMeta) mapping(dims int, withVector bool) (*db.Mapping, error) {
	b := db.NewMapping()
	for _, f := range m.fields {
		switch f.kind {
		case kindText:
			b.Text(f.name)
		case kindKeyword, kindTag:
			b.Keyword(f.name)
		case kindNumeric:
			if f.goKind == reflect.Float32 || f.goKind == reflect.Float64 {
				b.Float(f.name)
			} else {
				b.Integer(f.name)
			}
		case kindDate:
			b.Date(f.name)
		}
	}
	if m.geoIdx != -1 {
		b.GeoPoint(m.geoName)
	}
	if withVector && len(m.textFields) > 0 {
		b.DenseVector(vectorField, dims)
	}
	return b.Build()
}

// sourceFields lists the stored fields searches return, keeping the
// vector out of responses.
func (m *schemaMeta) sourceFields() []string {
	out := make([]string, 0, len(m.fields)+1)
	for _, f := range m.fields {
		out = append(out, f.name)
	}
	if m.geoIdx != -1 {
		out = append(out, m.geoName)
	}
	return out
}

// toDoc converts a typed item to a stored document. The last return is the
// text the embedder vectorizes (the first text field, may be empty).
func (m *schemaMeta) toDoc(item any) (string, map[string]any, string) {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}

	id := v.Field(m.idIdx).String()
	doc := make(map[string]any, len(m.fields)+1)
	var embedText string

	for _, f := range m.fields {
		fv := v.Field(f.structIdx)
		switch f.kind {
		case kindText:
			s := fv.String()
			doc[f.name] = s
			if embedText == "" {
				embedText = s
			}
		case kindKeyword:
			doc[f.name] = fv.String()
		case kindTag:
			doc[f.name] = fv.Interface()
		case kindNumeric:
			doc[f.name] = toFloat64(fv)
		case kindDate:
			t := fv.Interface().(time.Time)
			doc[f.name] = t.UTC().Format(time.RFC3339Nano)
		}
	}
	if m.geoIdx != -1 {
		p := v.Field(m.geoIdx).Interface().(GeoPoint)
		doc[m.geoName] = map[string]any{"lat": p.Lat, "lon": p.Lon}
	}
	return id, doc, embedText
}

// fromDoc converts a stored document back to a typed struct.
func (m *schemaMeta) fromDoc(id string, doc map[string]any) (any, error) {
	v := reflect.New(m.typ).Elem()
	v.Field(m.idIdx).SetString(id)

	for _, f := range m.fields {
		raw, ok := doc[f.name]
		if !ok || raw == nil {
			continue
		}
		fv := v.Field(f.structIdx)
		switch f.kind {
		case kindText, kindKeyword:
			if s, ok := raw.(string); ok {
				fv.SetString(s)
			}
		case kindTag:
			vals, ok := raw.([]any)
			if !ok {
				continue
			}
			out := make([]string, 0, len(vals))
			for _, item := range vals {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
			fv.Set(reflect.ValueOf(out))
		case kindNumeric:
			if n, ok := raw.(float64); ok {
				setFloat(fv, n)
			}
		case kindDate:
			s, ok := raw.(string)
			if !ok {
				continue
			}
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, fmt.Errorf("docdex: parse date field %s: %w", f.name, err)
			}
			fv.Set(reflect.ValueOf(t))
		}
	}

	if m.geoIdx != -1 {
		if loc, ok := doc[m.geoName].(map[string]any); ok {
			lat, _ := loc["lat"].(float64)
			lon, _ := loc["lon"].(float64)
			v.Field(m.geoIdx).Set(reflect.ValueOf(GeoPoint{Lat: lat, Lon: lon}))
		}
	}
	return v.Interface(), nil
}

func toFloat64(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	default:
		return 0
	}
}

func setFloat(v reflect.Value, f float64) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		v.SetFloat(f)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(int64(f))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v.SetUint(uint64(f))
	}
}
