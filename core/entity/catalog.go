// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package entity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/restkit/core"
)

// Catalog holds the configuration of all entity types. It is immutable once built.
type Catalog struct {
	configs map[string]*Config
	types   []string
}

// CatalogBuilder is a builder helper for the Catalog
type CatalogBuilder struct {
	// Config is the JSON description of all entity types. This is mandatory.
	Config string
	// Hooks are the entity specific hooks by entity type. This is optional.
	Hooks map[string]Hooks
	// Mutators are the input mutators by entity type and field. This is optional.
	Mutators map[string]map[string]Mutator
}

// NewCatalog parses the configuration, resolves all relations and parent
// resources and returns the catalog. Any inconsistency is an error.
func NewCatalog(cb *CatalogBuilder) (*Catalog, error) {
	var config Configuration
	if err := json.Unmarshal([]byte(cb.Config), &config); err != nil {
		return nil, fmt.Errorf("parse error in entity configuration: %w", err)
	}

	c := &Catalog{configs: map[string]*Config{}}
	for i := range config.Entities {
		ec := config.Entities[i]
		if ec.Type == "" {
			return nil, fmt.Errorf("entity %d has no type", i)
		}
		if _, ok := c.configs[ec.Type]; ok {
			return nil, fmt.Errorf("entity type %s declared twice", ec.Type)
		}
		ec.hooks = cb.Hooks[ec.Type]
		ec.mutators = cb.Mutators[ec.Type]
		c.configs[ec.Type] = &ec
		c.types = append(c.types, ec.Type)
	}
	for entityType := range cb.Hooks {
		if _, ok := c.configs[entityType]; !ok {
			return nil, fmt.Errorf("hooks for unknown entity type %s", entityType)
		}
	}

	for _, entityType := range c.types {
		if err := c.resolveRelations(c.configs[entityType]); err != nil {
			return nil, err
		}
	}
	for _, entityType := range c.types {
		if err := c.resolveParents(c.configs[entityType]); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNewCatalog is NewCatalog which panics on error
func MustNewCatalog(cb *CatalogBuilder) *Catalog {
	c, err := NewCatalog(cb)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) resolveRelations(ec *Config) error {
	ec.relations = map[string]Relation{}
	for _, rc := range ec.Relations {
		if _, ok := c.configs[rc.Related]; !ok {
			return fmt.Errorf("%s: relation %s refers to unknown entity type %s", ec.Type, rc.Name, rc.Related)
		}
		var r Relation
		switch rc.Kind {
		case "belongs_to":
			fk := rc.ForeignKey
			if fk == "" {
				fk = core.Singular(rc.Related) + "_id"
			}
			r = &BelongsTo{name: rc.Name, related: rc.Related, ForeignKey: fk}
		case "has_many":
			fk := rc.ForeignKey
			if fk == "" {
				fk = core.Singular(ec.Type) + "_id"
			}
			r = &HasMany{name: rc.Name, related: rc.Related, ForeignKey: fk}
		case "belongs_to_many":
			if rc.PivotTable == "" {
				return fmt.Errorf("%s: relation %s has no pivot table", ec.Type, rc.Name)
			}
			fpk, rpk := rc.ForeignPivotKey, rc.RelatedPivotKey
			if fpk == "" {
				fpk = core.Singular(ec.Type) + "_id"
			}
			if rpk == "" {
				rpk = core.Singular(rc.Related) + "_id"
			}
			r = &BelongsToMany{
				name:            rc.Name,
				related:         rc.Related,
				Table:           rc.PivotTable,
				ForeignPivotKey: fpk,
				RelatedPivotKey: rpk,
				PivotColumns:    rc.PivotColumns,
				Timestamps:      rc.PivotTimestamps,
			}
		default:
			return fmt.Errorf("%s: relation %s has unknown kind '%s'", ec.Type, rc.Name, rc.Kind)
		}
		if _, ok := ec.relations[rc.Name]; ok {
			return fmt.Errorf("%s: relation %s declared twice", ec.Type, rc.Name)
		}
		ec.relations[rc.Name] = r
	}
	for _, with := range ec.With {
		if _, ok := ec.relations[with]; !ok {
			return fmt.Errorf("%s: eager load of undeclared relation %s", ec.Type, with)
		}
	}
	for field, fk := range ec.UnconventionalForeignKeys {
		if fk.Table == "" || fk.Rename == "" {
			return fmt.Errorf("%s: unconventional foreign key %s needs table and rename", ec.Type, field)
		}
	}
	return nil
}

func (c *Catalog) resolveParents(ec *Config) error {
	ec.parents = map[string]Parent{}
	for resource, pr := range ec.Parents {
		pc, ok := c.configs[pr.Type]
		if !ok {
			return fmt.Errorf("%s: parent resource %s refers to unknown entity type %s", ec.Type, resource, pr.Type)
		}
		r, ok := pc.relations[pr.Accessor]
		if !ok {
			return fmt.Errorf("%s: parent resource %s: %s has no accessor %s", ec.Type, resource, pr.Type, pr.Accessor)
		}
		switch r.(type) {
		case *HasMany, *BelongsToMany:
		default:
			return fmt.Errorf("%s: parent resource %s: accessor %s does not reach many entities", ec.Type, resource, pr.Accessor)
		}
		if r.Related() != ec.Type {
			return fmt.Errorf("%s: parent resource %s: accessor %s reaches %s", ec.Type, resource, pr.Accessor, r.Related())
		}
		ec.parents[resource] = Parent{Resource: resource, Type: pr.Type, Relation: r}
	}
	return nil
}

// Config returns the configuration of an entity type
func (c *Catalog) Config(entityType string) (*Config, bool) {
	ec, ok := c.configs[entityType]
	return ec, ok
}

// Types returns all entity types in declaration order
func (c *Catalog) Types() []string {
	return append([]string(nil), c.types...)
}

// IsForeignKeyField returns true if field is a foreign key by convention or by
// declaration on any entity type
func (c *Catalog) IsForeignKeyField(field string) bool {
	for _, ec := range c.configs {
		if _, ok := ec.UnconventionalForeignKeys[field]; ok {
			return true
		}
	}
	return ConventionalTable(field, "_id") != "" || ConventionalTable(field, "_uuid") != ""
}

// ConventionalTable returns the table a conventional foreign key field refers to,
// e.g. "clients" for "client_uuid" and "pivot_client_id". The empty string is
// returned for fields not following the convention.
func ConventionalTable(field, suffix string) string {
	return fkTable(strings.TrimPrefix(field, PivotPrefix), suffix)
}

func fkTable(field, suffix string) string {
	if !strings.HasSuffix(field, suffix) || len(field) == len(suffix) {
		return ""
	}
	return core.Plural(strings.TrimSuffix(field, suffix))
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}
