// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package entity

// Configuration is the JSON description of all entity types
type Configuration struct {
	Entities []Config `json:"entities"`
}

// Config is the static declaration of one entity type
type Config struct {
	// Type is the entity type, it equals the table name
	Type string `json:"type"`
	// Fillable lists the fields which can be mass assigned from input
	Fillable []string `json:"fillable"`
	// Hidden lists fields which are never part of the external representation.
	// The internal id is always hidden.
	Hidden []string `json:"hidden,omitempty"`
	// With lists relations which are eager loaded on retrieval
	With []string `json:"with,omitempty"`
	// Relations declares the named accessors of this entity
	Relations []RelationConfig `json:"relations,omitempty"`
	// Parents maps parent resources to the parent type and the accessor on the
	// parent which reaches entities of this type
	Parents map[string]ParentResource `json:"parents,omitempty"`
	// UnconventionalForeignKeys declares foreign keys whose names do not follow
	// the <singular>_id and <singular>_uuid convention
	UnconventionalForeignKeys map[string]UnconventionalForeignKey `json:"unconventional_foreign_keys,omitempty"`
	// NonForeignKeys lists fields which follow the naming convention but are not
	// foreign keys
	NonForeignKeys []string `json:"non_foreign_keys,omitempty"`
	// Sortable lists computed or foreign fields accepted as sort_by beyond the
	// columns of the table
	Sortable []string `json:"sortable,omitempty"`
	// SoftDeletes marks deleted rows with deleted_at instead of removing them
	SoftDeletes bool `json:"soft_deletes,omitempty"`
	// Checkable lists fields which can be probed for existence
	Checkable []string `json:"checkable,omitempty"`
	// NullableOnEmpty lists unique fields for which an empty input becomes null
	NullableOnEmpty []string `json:"nullable_on_empty,omitempty"`

	relations map[string]Relation
	parents   map[string]Parent
	hooks     Hooks
	mutators  map[string]Mutator
}

// RelationConfig declares a relation. Kind is one of "belongs_to", "has_many"
// and "belongs_to_many".
type RelationConfig struct {
	Name            string   `json:"name"`
	Kind            string   `json:"kind"`
	Related         string   `json:"related"`
	ForeignKey      string   `json:"foreign_key,omitempty"`
	PivotTable      string   `json:"pivot_table,omitempty"`
	ForeignPivotKey string   `json:"foreign_pivot_key,omitempty"`
	RelatedPivotKey string   `json:"related_pivot_key,omitempty"`
	PivotColumns    []string `json:"pivot_columns,omitempty"`
	PivotTimestamps bool     `json:"pivot_timestamps,omitempty"`
}

// ParentResource declares how an entity is reached from a parent resource
type ParentResource struct {
	// Type is the entity type of the parent
	Type string `json:"type"`
	// Accessor is the name of the relation on the parent
	Accessor string `json:"accessor"`
}

// Parent is a resolved parent resource
type Parent struct {
	Resource string
	Type     string
	Relation Relation
}

// UnconventionalForeignKey declares an irregular foreign key.
//
// A declaration with KeepHidden converts an internal id field and keeps the
// original field hidden on the entity. Without KeepHidden it converts an
// external uuid field and removes the original field.
type UnconventionalForeignKey struct {
	Table      string `json:"table"`
	Rename     string `json:"rename"`
	KeepHidden bool   `json:"keep_hidden,omitempty"`
}

// Relation returns the named relation
func (c *Config) Relation(name string) (Relation, bool) {
	r, ok := c.relations[name]
	return r, ok
}

// Parent returns the resolved parent resource
func (c *Config) Parent(resource string) (Parent, bool) {
	p, ok := c.parents[resource]
	return p, ok
}

// ParentResources returns the names of all parent resources
func (c *Config) ParentResources() []string {
	var names []string
	for name := range c.parents {
		names = append(names, name)
	}
	return sortedStrings(names)
}

// Hooks returns the hooks of this entity type. Never nil.
func (c *Config) Hooks() Hooks {
	if c.hooks == nil {
		return NopHooks{}
	}
	return c.hooks
}

// Mutator returns the input mutator for field
func (c *Config) Mutator(field string) (Mutator, bool) {
	m, ok := c.mutators[field]
	return m, ok
}

// IsFillable returns true if field can be mass assigned
func (c *Config) IsFillable(field string) bool {
	return contains(c.Fillable, field)
}

// IsCheckable returns true if field can be probed for existence
func (c *Config) IsCheckable(field string) bool {
	return contains(c.Checkable, field)
}

// IsSortable returns true if field is in the sortable whitelist
func (c *Config) IsSortable(field string) bool {
	return contains(c.Sortable, field)
}

// IsNonForeignKey returns true if field is excluded from foreign key treatment
func (c *Config) IsNonForeignKey(field string) bool {
	return contains(c.NonForeignKeys, field)
}

// HiddenFields returns the fields hidden on every entity of this type
func (c *Config) HiddenFields() []string {
	return append([]string{"id"}, c.Hidden...)
}

func contains(list []string, s string) bool {
	for _, l := range list {
		if l == s {
			return true
		}
	}
	return false
}
