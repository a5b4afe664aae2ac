// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package entity

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// PivotPrefix prefixes the columns of a pivot record when an entity is read
// through a many-to-many relation
const PivotPrefix = "pivot_"

// Entity is a persisted record, held as an attribute bag over the columns of its
// row. The original values are kept to detect changes, and hidden attributes stay
// on the entity but are never serialized.
type Entity struct {
	Type       string
	attributes map[string]interface{}
	original   map[string]interface{}
	hidden     map[string]bool
	relations  map[string]interface{}
}

// New returns a new, unsaved entity of the given type
func New(entityType string) *Entity {
	return &Entity{
		Type:       entityType,
		attributes: map[string]interface{}{},
		original:   map[string]interface{}{},
		hidden:     map[string]bool{},
	}
}

// FromRow returns an entity for a row read from the database. All values become
// original values.
func FromRow(entityType string, row map[string]interface{}) *Entity {
	e := New(entityType)
	for k, v := range row {
		e.attributes[k] = Normalize(v)
	}
	e.SyncOriginal()
	return e
}

// Get returns the value of field, or nil
func (e *Entity) Get(field string) interface{} {
	return e.attributes[field]
}

// Lookup returns the value of field and whether it is set
func (e *Entity) Lookup(field string) (interface{}, bool) {
	v, ok := e.attributes[field]
	return v, ok
}

// Has returns true if the field is set, even if its value is nil
func (e *Entity) Has(field string) bool {
	_, ok := e.attributes[field]
	return ok
}

// Set sets field to value
func (e *Entity) Set(field string, value interface{}) {
	e.attributes[field] = Normalize(value)
}

// Unset removes field from the entity
func (e *Entity) Unset(field string) {
	delete(e.attributes, field)
}

// Fields returns the names of all set fields in sorted order
func (e *Entity) Fields() []string {
	fields := make([]string, 0, len(e.attributes))
	for k := range e.attributes {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// Hide hides fields from the external representation
func (e *Entity) Hide(fields ...string) {
	for _, f := range fields {
		e.hidden[f] = true
	}
}

// IsHidden returns true if field is hidden
func (e *Entity) IsHidden(field string) bool {
	return e.hidden[field]
}

// Original returns the value field had when the entity was read
func (e *Entity) Original(field string) (interface{}, bool) {
	v, ok := e.original[field]
	return v, ok
}

// IsDirty returns true if field differs from its original value
func (e *Entity) IsDirty(field string) bool {
	v, ok := e.attributes[field]
	if !ok {
		return false
	}
	o, had := e.original[field]
	return !had || !SameValue(v, o)
}

// Dirty returns all fields which differ from their original values
func (e *Entity) Dirty() map[string]interface{} {
	dirty := map[string]interface{}{}
	for k, v := range e.attributes {
		if e.IsDirty(k) {
			dirty[k] = v
		}
	}
	return dirty
}

// SyncOriginal makes the current values the original values
func (e *Entity) SyncOriginal() {
	e.original = make(map[string]interface{}, len(e.attributes))
	for k, v := range e.attributes {
		e.original[k] = v
	}
}

// ID returns the internal identifier, or 0 for unsaved entities
func (e *Entity) ID() int64 {
	id, _ := AsInt64(e.attributes["id"])
	return id
}

// UUID returns the external identifier
func (e *Entity) UUID() string {
	s, _ := e.attributes["uuid"].(string)
	return s
}

// SetRelation stores an eager loaded relation, either an *Entity or a []*Entity
func (e *Entity) SetRelation(name string, value interface{}) {
	if e.relations == nil {
		e.relations = map[string]interface{}{}
	}
	e.relations[name] = value
}

// Relation returns an eager loaded relation
func (e *Entity) Relation(name string) interface{} {
	return e.relations[name]
}

// Map returns the external representation. Hidden fields are left out, pivot
// fields are nested as "pivot" and eager loaded relations are added by name.
func (e *Entity) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(e.attributes))
	var pivot map[string]interface{}
	for k, v := range e.attributes {
		if e.hidden[k] {
			continue
		}
		if t, ok := v.(time.Time); ok {
			v = t.UTC().Format(time.RFC3339)
		}
		if strings.HasPrefix(k, PivotPrefix) {
			if pivot == nil {
				pivot = map[string]interface{}{}
			}
			pivot[strings.TrimPrefix(k, PivotPrefix)] = v
			continue
		}
		m[k] = v
	}
	if pivot != nil {
		m["pivot"] = pivot
	}
	for name, rel := range e.relations {
		switch r := rel.(type) {
		case *Entity:
			if r == nil {
				m[name] = nil
			} else {
				m[name] = r.Map()
			}
		case []*Entity:
			list := make([]map[string]interface{}, 0, len(r))
			for _, c := range r {
				list = append(list, c.Map())
			}
			m[name] = list
		}
	}
	return m
}

// MarshalJSON is a custom JSON marshaller producing the external representation
func (e *Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Map())
}

// Normalize brings values read from drivers or decoded from JSON into one
// representation: byte slices become strings and integral numbers become int64.
func Normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
	}
	return v
}

// AsInt64 converts an identifier value to int64
func AsInt64(v interface{}) (int64, bool) {
	switch x := Normalize(v).(type) {
	case int64:
		return x, true
	case string:
		i, err := strconv.ParseInt(x, 10, 64)
		return i, err == nil
	}
	return 0, false
}

// SameValue compares two attribute values independent of their driver representation
func SameValue(a, b interface{}) bool {
	a, b = Normalize(a), Normalize(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.DeepEqual(a, b) {
		return true
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// IsEmpty returns true for nil, empty strings and the zero identifier
func IsEmpty(v interface{}) bool {
	switch x := Normalize(v).(type) {
	case nil:
		return true
	case string:
		return x == ""
	case int64:
		return x == 0
	}
	return false
}
