// Package association attaches and detaches entities related many to many,
// running the entity hooks around the pivot row insert.
package association

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/relabs-tech/restkit/core/entity"
)

// PivotEvent describes an update of a pivot row
type PivotEvent struct {
	Relation   *entity.BelongsToMany
	ParentID   int64
	ID         int64
	Attributes map[string]interface{}
}

// PivotObserver is notified about pivot rows being updated. Updating runs inside
// the enclosing transaction; an error aborts the update.
type PivotObserver interface {
	Updating(ctx context.Context, tx *gorm.DB, event PivotEvent) error
}

// PivotObserverFunc is a function implementing PivotObserver
type PivotObserverFunc func(ctx context.Context, tx *gorm.DB, event PivotEvent) error

// Updating implements PivotObserver
func (f PivotObserverFunc) Updating(ctx context.Context, tx *gorm.DB, event PivotEvent) error {
	return f(ctx, tx, event)
}

// ErrAfterAttach wraps errors returned by the AfterAttach hook
var ErrAfterAttach = errors.New("after attach hook failed")

// Attacher manages pivot rows of many to many relations
type Attacher struct {
	observers []PivotObserver
	now       func() time.Time
}

// New returns an Attacher which notifies observers about pivot updates
func New(observers ...PivotObserver) *Attacher {
	return &Attacher{
		observers: observers,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Attach inserts the pivot row linking the entity with the given id to parent.
//
// The hooks are those of the attached entity. SetAttributesBeforeAttach may
// modify the pivot attributes. If AfterAttach fails, the error wraps
// ErrAfterAttach and the inserted row is left to the enclosing transaction.
func (a *Attacher) Attach(ctx context.Context, tx *gorm.DB, parent *entity.Entity, relation *entity.BelongsToMany, id int64, attributes map[string]interface{}, hooks entity.Hooks) error {
	if hooks == nil {
		hooks = entity.NopHooks{}
	}
	copied := make(map[string]interface{}, len(attributes))
	for k, v := range attributes {
		copied[k] = v
	}
	attributes = hooks.SetAttributesBeforeAttach(ctx, parent, relation.Table, copied, id)

	row := make(map[string]interface{}, len(attributes)+4)
	for k, v := range attributes {
		row[k] = v
	}
	row[relation.ForeignPivotKey] = parent.ID()
	row[relation.RelatedPivotKey] = id
	if relation.Timestamps {
		now := a.now()
		row["created_at"] = now
		row["updated_at"] = now
	}

	if err := tx.WithContext(ctx).Table(relation.Table).Create(row).Error; err != nil {
		return fmt.Errorf("cannot attach %d to %s %d: %w", id, parent.Type, parent.ID(), err)
	}
	if err := hooks.AfterAttach(ctx, tx, id, parent.Type); err != nil {
		return fmt.Errorf("%w: %v", ErrAfterAttach, err)
	}
	return nil
}

// Detach removes the pivot rows linking ids to the parent and returns the number of removed rows
func (a *Attacher) Detach(ctx context.Context, tx *gorm.DB, relation *entity.BelongsToMany, parentID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := tx.WithContext(ctx).Table(relation.Table).
		Where(clause.Eq{Column: clause.Column{Name: relation.ForeignPivotKey}, Value: parentID}).
		Where(clause.IN{Column: clause.Column{Name: relation.RelatedPivotKey}, Values: int64s(ids)}).
		Delete(map[string]interface{}{})
	if res.Error != nil {
		return 0, fmt.Errorf("cannot detach from %s: %w", relation.Table, res.Error)
	}
	return res.RowsAffected, nil
}

// UpdateExistingPivot updates the attributes of an existing pivot row. The
// observers are notified before the update returns, so an observer error rolls
// back the enclosing transaction.
func (a *Attacher) UpdateExistingPivot(ctx context.Context, tx *gorm.DB, relation *entity.BelongsToMany, parentID, id int64, attributes map[string]interface{}) (int64, error) {
	values := make(map[string]interface{}, len(attributes)+1)
	for k, v := range attributes {
		values[k] = v
	}
	if relation.Timestamps {
		values["updated_at"] = a.now()
	}
	res := tx.WithContext(ctx).Table(relation.Table).
		Where(clause.Eq{Column: clause.Column{Name: relation.ForeignPivotKey}, Value: parentID}).
		Where(clause.Eq{Column: clause.Column{Name: relation.RelatedPivotKey}, Value: id}).
		Updates(values)
	if res.Error != nil {
		return 0, fmt.Errorf("cannot update pivot %s: %w", relation.Table, res.Error)
	}

	event := PivotEvent{Relation: relation, ParentID: parentID, ID: id, Attributes: attributes}
	for _, o := range a.observers {
		if err := o.Updating(ctx, tx, event); err != nil {
			return 0, fmt.Errorf("pivot observer rejected update of %s: %w", relation.Table, err)
		}
	}
	return res.RowsAffected, nil
}

// RelatedIDs returns the ids of all entities attached to the parent
func (a *Attacher) RelatedIDs(ctx context.Context, tx *gorm.DB, relation *entity.BelongsToMany, parentID int64) ([]int64, error) {
	var ids []int64
	err := tx.WithContext(ctx).Table(relation.Table).
		Where(clause.Eq{Column: clause.Column{Name: relation.ForeignPivotKey}, Value: parentID}).
		Pluck(relation.RelatedPivotKey, &ids).Error
	if err != nil {
		return nil, fmt.Errorf("cannot read related ids from %s: %w", relation.Table, err)
	}
	return ids, nil
}

func int64s(ids []int64) []interface{} {
	values := make([]interface{}, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return values
}
