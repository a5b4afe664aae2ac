package entity

import (
	"context"

	"gorm.io/gorm"
)

// Hooks are the entity specific extension points of the resource engine. Embed
// NopHooks to implement only some of them.
type Hooks interface {
	// InsertAssociatedData runs in the create transaction after the entity row was inserted
	InsertAssociatedData(ctx context.Context, tx *gorm.DB, input map[string]interface{}, uuid string) error
	// DeleteAssociatedData runs in the delete transaction before the entity row is deleted
	DeleteAssociatedData(ctx context.Context, tx *gorm.DB, e *Entity) error
	// PreparePivotData returns the pivot attributes for attaching to a parent resource
	PreparePivotData(ctx context.Context, input map[string]interface{}, parentResource string) map[string]interface{}
	// SetAttributesBeforeAttach may modify the pivot attributes right before the pivot row is inserted
	SetAttributesBeforeAttach(ctx context.Context, parent *Entity, pivotTable string, attributes map[string]interface{}, id int64) map[string]interface{}
	// AfterAttach runs after the pivot row was inserted. An error fails the attach.
	AfterAttach(ctx context.Context, tx *gorm.DB, id int64, parentType string) error
	// Filter narrows a list query based on the request input
	Filter(query *gorm.DB, input map[string]interface{}) *gorm.DB
	// SortBy maps a whitelisted sort field to a column, joining what it needs
	SortBy(query *gorm.DB, sortBy string) (*gorm.DB, string)
}

// Mutator transforms an input value before it is assigned, e.g. hashing a password
type Mutator func(value interface{}) (interface{}, error)

// NopHooks implements Hooks without doing anything
type NopHooks struct{}

// InsertAssociatedData implements Hooks
func (NopHooks) InsertAssociatedData(context.Context, *gorm.DB, map[string]interface{}, string) error {
	return nil
}

// DeleteAssociatedData implements Hooks
func (NopHooks) DeleteAssociatedData(context.Context, *gorm.DB, *Entity) error {
	return nil
}

// PreparePivotData implements Hooks
func (NopHooks) PreparePivotData(context.Context, map[string]interface{}, string) map[string]interface{} {
	return map[string]interface{}{}
}

// SetAttributesBeforeAttach implements Hooks
func (NopHooks) SetAttributesBeforeAttach(_ context.Context, _ *Entity, _ string, attributes map[string]interface{}, _ int64) map[string]interface{} {
	return attributes
}

// AfterAttach implements Hooks
func (NopHooks) AfterAttach(context.Context, *gorm.DB, int64, string) error {
	return nil
}

// Filter implements Hooks
func (NopHooks) Filter(query *gorm.DB, _ map[string]interface{}) *gorm.DB {
	return query
}

// SortBy implements Hooks
func (NopHooks) SortBy(query *gorm.DB, sortBy string) (*gorm.DB, string) {
	return query, sortBy
}
