package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/relabs-tech/restkit/core"
	"github.com/relabs-tech/restkit/core/association"
	"github.com/relabs-tech/restkit/core/entity"
	"github.com/relabs-tech/restkit/core/identity"
	"github.com/relabs-tech/restkit/core/schema"
)

// AttachExistingChildToParent attaches an existing entity to the parent. The
// entity is identified by the <singular type>_uuid field of input, e.g.
// "user_uuid" for users. The remaining input is passed to PreparePivotData.
func (r *Resource) AttachExistingChildToParent(ctx context.Context, parentResource, parentUUID string, input map[string]interface{}) (*entity.Entity, error) {
	input = r.normalize(input)
	childUUID, _ := input[core.Singular(r.Type)+"_uuid"].(string)

	var attached *entity.Entity
	err := r.engine.transactions.Run(ctx, func(tx *Tx) error {
		parent, p, err := r.engine.relations.Parent(ctx, tx, r.config, parentResource, parentUUID)
		if err != nil {
			return err
		}
		relation, err := many2many(p)
		if err != nil {
			return err
		}
		child, err := r.Load(ctx, tx, childUUID)
		if err != nil {
			return err
		}
		if err := r.attach(ctx, tx, parent, p, relation, child, input); err != nil {
			return err
		}
		attached, err = r.loadThrough(ctx, tx, parent, relation, childUUID)
		return err
	})
	return attached, err
}

// CreateOneUnderParent creates a new entity and links it to the parent. For many
// to many parents the entity is attached with the pivot data prepared from
// input, for has many parents it is created belonging to the parent.
func (r *Resource) CreateOneUnderParent(ctx context.Context, parentResource, parentUUID string, input map[string]interface{}) (*entity.Entity, error) {
	input = r.normalize(input)
	var created *entity.Entity
	err := r.engine.transactions.Run(ctx, func(tx *Tx) error {
		parent, p, err := r.engine.relations.Parent(ctx, tx, r.config, parentResource, parentUUID)
		if err != nil {
			return err
		}
		var fe schema.FieldErrors
		created, fe, err = r.createUnder(ctx, tx, parent, p, input)
		if err != nil {
			return err
		}
		if fe != nil {
			return &ValidationError{Fields: fe}
		}
		return nil
	})
	return created, err
}

// CreateOneBelongingToParent creates a new entity whose foreign key references
// the parent. The parent must reach the entity type through a has many relation.
func (r *Resource) CreateOneBelongingToParent(ctx context.Context, parentResource, parentUUID string, input map[string]interface{}) (*entity.Entity, error) {
	if p, ok := r.config.Parent(parentResource); ok {
		if _, ok := p.Relation.(*entity.HasMany); !ok {
			return nil, internal(1301, fmt.Errorf("parent resource %s of %s is not has many", parentResource, r.Type))
		}
	}
	return r.CreateOneUnderParent(ctx, parentResource, parentUUID, input)
}

func (r *Resource) createUnder(ctx context.Context, tx *Tx, parent *entity.Entity, p entity.Parent, input map[string]interface{}) (*entity.Entity, schema.FieldErrors, error) {
	switch relation := p.Relation.(type) {
	case *entity.HasMany:
		fk := relation.ForeignKey
		created, fe, err := r.create(ctx, tx, input, func(e *entity.Entity) {
			e.Unset(strings.TrimSuffix(fk, "_id") + "_uuid")
			e.Set(fk, parent.ID())
		})
		if err != nil || fe != nil {
			return nil, fe, err
		}
		return created, nil, nil

	case *entity.BelongsToMany:
		created, fe, err := r.create(ctx, tx, input, nil)
		if err != nil || fe != nil {
			return nil, fe, err
		}
		if err := r.attach(ctx, tx, parent, p, relation, created, input); err != nil {
			return nil, nil, err
		}
		created, err = r.loadThrough(ctx, tx, parent, relation, created.UUID())
		return created, nil, err
	}
	return nil, nil, internal(1302, fmt.Errorf("parent resource %s of %s cannot own entities", p.Resource, r.Type))
}

// attach attaches child to parent with the pivot data the hooks prepare from input
func (r *Resource) attach(ctx context.Context, tx *Tx, parent *entity.Entity, p entity.Parent, relation *entity.BelongsToMany, child *entity.Entity, input map[string]interface{}) error {
	hooks := r.config.Hooks()
	pivot, err := r.pivotToIDs(ctx, tx, relation, hooks.PreparePivotData(ctx, input, p.Resource))
	if err != nil {
		return err
	}
	if err := r.engine.attacher.Attach(ctx, tx.DB, parent, relation, child.ID(), pivot, hooks); err != nil {
		if errors.Is(err, association.ErrAfterAttach) {
			return internal(1311, err)
		}
		return r.persistenceError(1312, err)
	}
	tx.Notify(core.OperationAttach, child)
	return nil
}

// pivotToIDs translates the foreign key uuids of prepared pivot data to ids
func (r *Resource) pivotToIDs(ctx context.Context, tx *Tx, relation *entity.BelongsToMany, pivot map[string]interface{}) (map[string]interface{}, error) {
	if len(pivot) == 0 {
		return pivot, nil
	}
	e := entity.New(relation.Table)
	for k, v := range pivot {
		e.Set(k, v)
	}
	result, err := r.engine.translator.ToIDs(ctx, tx.lookup, e, false)
	if err != nil {
		return nil, internal(1313, err)
	}
	if !result.OK() {
		return nil, notFound("related record %v not found", result.Failed)
	}
	return e.Dirty(), nil
}

// DetachChildrenFromParent detaches the entities with the given uuids from the
// parent. Either all uuids exist and all are detached, or nothing changes.
func (r *Resource) DetachChildrenFromParent(ctx context.Context, parentResource, parentUUID string, uuids []string) error {
	if err := identity.ValidateUUIDs(uuids...); err != nil {
		return &NotFoundError{}
	}
	unique := uniqueStrings(uuids)
	return r.engine.transactions.Run(ctx, func(tx *Tx) error {
		children, err := findRows(r.scope(tx, false).Where(in(r.Type, "uuid", strings2values(unique))))
		if err != nil {
			return internal(1321, err)
		}
		if len(children) != len(unique) {
			return notFound("one or more records were not found")
		}
		parent, p, err := r.engine.relations.Parent(ctx, tx, r.config, parentResource, parentUUID)
		if err != nil {
			return err
		}
		relation, err := many2many(p)
		if err != nil {
			return err
		}
		entities, err := r.engine.shaper.HydrateAll(ctx, tx, r.Type, children, false)
		if err != nil {
			return internal(1322, err)
		}
		ids := make([]int64, len(entities))
		for i, e := range entities {
			ids[i] = e.ID()
		}
		if _, err := r.engine.attacher.Detach(ctx, tx.DB, relation, parent.ID(), ids); err != nil {
			return internal(1323, err)
		}
		for _, e := range entities {
			tx.Notify(core.OperationDetach, e)
		}
		return nil
	})
}

// DeleteChildrenBelongingToParent deletes the entities with the given uuids,
// which must all be reached from the parent. Either all are deleted or none.
func (r *Resource) DeleteChildrenBelongingToParent(ctx context.Context, parentResource, parentUUID string, uuids []string) error {
	if err := identity.ValidateUUIDs(uuids...); err != nil {
		return &NotFoundError{}
	}
	unique := uniqueStrings(uuids)
	return r.engine.transactions.Run(ctx, func(tx *Tx) error {
		parent, p, err := r.engine.relations.Parent(ctx, tx, r.config, parentResource, parentUUID)
		if err != nil {
			return err
		}
		q := r.engine.relations.Children(tx, parent, p.Relation, false).
			Select(quote(tx.DB, r.Type) + ".*").
			Where(in(r.Type, "uuid", strings2values(unique)))
		rows, err := findRows(q)
		if err != nil {
			return internal(1331, err)
		}
		if len(rows) != len(unique) {
			return notFound("one or more records were not found")
		}
		children, err := r.engine.shaper.HydrateAll(ctx, tx, r.Type, rows, false)
		if err != nil {
			return internal(1332, err)
		}
		for _, child := range children {
			if err := r.delete(ctx, tx, child); err != nil {
				return err
			}
		}
		return nil
	})
}

// AttachMultipleToDepthTwoParent attaches the entities with the given uuids to
// the parent, which must itself be reached from the grandparent. Entities
// already attached are skipped. It returns the parent.
func (r *Resource) AttachMultipleToDepthTwoParent(ctx context.Context, grandparentResource, grandparentUUID, parentResource, parentUUID string, uuids []string) (*entity.Entity, error) {
	if err := identity.ValidateUUIDs(uuids...); err != nil {
		return nil, &NotFoundError{}
	}
	unique := uniqueStrings(uuids)

	var result *entity.Entity
	err := r.engine.transactions.Run(ctx, func(tx *Tx) error {
		parent, p, err := r.engine.relations.Parent(ctx, tx, r.config, parentResource, parentUUID)
		if err != nil {
			return err
		}
		relation, err := many2many(p)
		if err != nil {
			return err
		}
		parentType := r.engine.Resource(p.Type)
		grandparent, gp, err := r.engine.relations.Parent(ctx, tx, parentType.config, grandparentResource, grandparentUUID)
		if err != nil {
			return err
		}
		linked, err := r.engine.relations.Linked(tx, grandparent, gp.Relation, parentUUID)
		if err != nil {
			return internal(1341, err)
		}
		if !linked {
			return notFound("association between %s and %s was not found", grandparentResource, parentResource)
		}

		rows, err := findRows(r.scope(tx, false).Where(in(r.Type, "uuid", strings2values(unique))))
		if err != nil {
			return internal(1342, err)
		}
		if len(rows) != len(unique) {
			return notFound("one or more records were not found")
		}
		children, err := r.engine.shaper.HydrateAll(ctx, tx, r.Type, rows, false)
		if err != nil {
			return internal(1343, err)
		}
		attachedIDs, err := r.engine.attacher.RelatedIDs(ctx, tx.DB, relation, parent.ID())
		if err != nil {
			return internal(1344, err)
		}
		attached := map[int64]bool{}
		for _, id := range attachedIDs {
			attached[id] = true
		}
		for _, child := range children {
			if attached[child.ID()] {
				continue
			}
			if err := r.attach(ctx, tx, parent, p, relation, child, nil); err != nil {
				return err
			}
		}
		result, err = parentType.Load(ctx, tx, parentUUID)
		return err
	})
	return result, err
}

// Sync makes items the complete set of entities owned by the parent. Items with
// a uuid update the existing entity, items without one create a new entity, and
// owned entities missing from items are deleted. If any item is not valid,
// nothing changes and a *SyncError reports the errors of every item.
func (r *Resource) Sync(ctx context.Context, parentResource, parentUUID string, items []map[string]interface{}) ([]*entity.Entity, error) {
	var synced []*entity.Entity
	err := r.engine.transactions.Run(ctx, func(tx *Tx) error {
		parent, p, err := r.engine.relations.Parent(ctx, tx, r.config, parentResource, parentUUID)
		if err != nil {
			return err
		}

		var keep []string
		for _, item := range items {
			if uuid, ok := item["uuid"].(string); ok && uuid != "" {
				keep = append(keep, uuid)
			}
		}
		q := r.engine.relations.Children(tx, parent, p.Relation, false).Select(quote(tx.DB, r.Type) + ".*")
		if len(keep) > 0 {
			q = q.Not(in(r.Type, "uuid", strings2values(keep)))
		}
		rows, err := findRows(q)
		if err != nil {
			return internal(1351, err)
		}
		obsolete, err := r.engine.shaper.HydrateAll(ctx, tx, r.Type, rows, false)
		if err != nil {
			return internal(1352, err)
		}
		for _, e := range obsolete {
			if err := r.delete(ctx, tx, e); err != nil {
				return err
			}
		}

		results := make([]SyncItemResult, len(items))
		failed := false
		for i, item := range items {
			item = r.normalize(item)
			var fe schema.FieldErrors
			if uuid, ok := item["uuid"].(string); ok && uuid != "" {
				result, err := r.updateUnder(ctx, tx, parent, p, uuid, item)
				if err != nil {
					return err
				}
				fe = result.Errors
			} else {
				_, fe, err = r.createUnder(ctx, tx, parent, p, item)
				if err != nil {
					return err
				}
			}
			if fe == nil {
				fe = schema.FieldErrors{}
			} else {
				failed = true
			}
			results[i] = SyncItemResult{Errors: fe}
		}
		if failed {
			return &SyncError{Items: results}
		}

		synced, err = r.list(ctx, tx, r.engine.relations.WithPivot(tx, r.engine.relations.Children(tx, parent, p.Relation, false), p.Relation))
		return err
	})
	return synced, err
}
