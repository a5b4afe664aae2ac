package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/relabs-tech/restkit/core"
	"github.com/relabs-tech/restkit/core/entity"
	"github.com/relabs-tech/restkit/core/identity"
	"github.com/relabs-tech/restkit/core/logger"
	"github.com/relabs-tech/restkit/core/schema"
)

// Resource is the engine bound to one entity type
type Resource struct {
	Type   string
	config *entity.Config
	engine *Engine
}

// UpdateResult is the outcome of a scoped update. Errors is set if the input
// was not valid, Entity otherwise.
type UpdateResult struct {
	Entity *entity.Entity
	Errors schema.FieldErrors
}

// Config returns the configuration of the entity type
func (r *Resource) Config() *entity.Config {
	return r.config
}

// Create validates input and creates a new entity from its fillable fields
func (r *Resource) Create(ctx context.Context, input map[string]interface{}) (*entity.Entity, error) {
	var created *entity.Entity
	err := r.engine.transactions.Run(ctx, func(tx *Tx) error {
		var err error
		created, err = r.CreateInTx(ctx, tx, input)
		return err
	})
	return created, err
}

// CreateInTx is Create within a running transaction
func (r *Resource) CreateInTx(ctx context.Context, tx *Tx, input map[string]interface{}) (*entity.Entity, error) {
	created, fe, err := r.create(ctx, tx, r.normalize(input), nil)
	if err != nil {
		return nil, err
	}
	if fe != nil {
		return nil, &ValidationError{Fields: fe}
	}
	return created, nil
}

// GetOne returns the entity with uuid
func (r *Resource) GetOne(ctx context.Context, uuid string) (*entity.Entity, error) {
	return r.Load(ctx, r.engine.transactions.Read(ctx), uuid)
}

// Load returns the entity with uuid, read through tx
func (r *Resource) Load(ctx context.Context, tx *Tx, uuid string) (*entity.Entity, error) {
	if err := identity.ValidateUUIDs(uuid); err != nil {
		return nil, &NotFoundError{}
	}
	return r.load(ctx, tx, "uuid", uuid)
}

// LoadByIDOrUUID returns the entity identified either by its internal id or by
// its uuid, read through tx. It serves server side code which holds internal
// ids, e.g. the hidden foreign keys of a loaded entity.
func (r *Resource) LoadByIDOrUUID(ctx context.Context, tx *Tx, value interface{}) (*entity.Entity, error) {
	if s, ok := value.(string); ok {
		if err := identity.ValidateIDsOrUUIDs(s); err != nil {
			return nil, &NotFoundError{}
		}
		if id, ok := identity.ParseID(s); ok {
			return r.load(ctx, tx, "id", id)
		}
		return r.load(ctx, tx, "uuid", s)
	}
	if !identity.LooksLikeIDOrUUID(value) {
		return nil, &NotFoundError{}
	}
	id, _ := entity.AsInt64(value)
	return r.load(ctx, tx, "id", id)
}

func (r *Resource) load(ctx context.Context, tx *Tx, column string, value interface{}) (*entity.Entity, error) {
	rows, err := findRows(r.scope(tx, false).Where(eq(r.Type, column, value)).Limit(1))
	if err != nil {
		return nil, internal(1101, err)
	}
	if len(rows) == 0 {
		return nil, &NotFoundError{}
	}
	e, err := r.engine.shaper.Hydrate(ctx, tx, r.Type, rows[0], true)
	if err != nil {
		return nil, internal(1102, err)
	}
	return e, nil
}

// GetOneUnderParent returns the entity with uuid if it is reached from the parent
func (r *Resource) GetOneUnderParent(ctx context.Context, parentResource, parentUUID, uuid string) (*entity.Entity, error) {
	tx := r.engine.transactions.Read(ctx)
	parent, p, err := r.engine.relations.Parent(ctx, tx, r.config, parentResource, parentUUID)
	if err != nil {
		return nil, err
	}
	return r.loadThrough(ctx, tx, parent, p.Relation, uuid)
}

// UpdateOne validates input and merges its fillable fields into the entity with uuid
func (r *Resource) UpdateOne(ctx context.Context, uuid string, input map[string]interface{}) (*entity.Entity, error) {
	var updated *entity.Entity
	err := r.engine.transactions.Run(ctx, func(tx *Tx) error {
		var err error
		updated, err = r.UpdateInTx(ctx, tx, uuid, input)
		return err
	})
	return updated, err
}

// UpdateInTx is UpdateOne within a running transaction
func (r *Resource) UpdateInTx(ctx context.Context, tx *Tx, uuid string, input map[string]interface{}) (*entity.Entity, error) {
	current, err := r.Load(ctx, tx, uuid)
	if err != nil {
		return nil, err
	}
	result, err := r.update(ctx, tx, current, r.normalize(input))
	if err != nil {
		return nil, err
	}
	if result.Errors != nil {
		return nil, &ValidationError{Fields: result.Errors}
	}
	return result.Entity, nil
}

// UpdateOneUnderParent is UpdateOne for an entity which must be reached from the parent
func (r *Resource) UpdateOneUnderParent(ctx context.Context, parentResource, parentUUID, uuid string, input map[string]interface{}) (*entity.Entity, error) {
	var updated *entity.Entity
	err := r.engine.transactions.Run(ctx, func(tx *Tx) error {
		result, err := r.UpdateScoped(ctx, tx, parentResource, parentUUID, uuid, input)
		if err != nil {
			return err
		}
		if result.Errors != nil {
			return &ValidationError{Fields: result.Errors}
		}
		updated = result.Entity
		return nil
	})
	return updated, err
}

// UpdateScoped updates the entity with uuid, which must be reached from the
// parent, within a running transaction. Validation errors are returned in the
// result rather than as error.
func (r *Resource) UpdateScoped(ctx context.Context, tx *Tx, parentResource, parentUUID, uuid string, input map[string]interface{}) (UpdateResult, error) {
	parent, p, err := r.engine.relations.Parent(ctx, tx, r.config, parentResource, parentUUID)
	if err != nil {
		return UpdateResult{}, err
	}
	return r.updateUnder(ctx, tx, parent, p, uuid, r.normalize(input))
}

func (r *Resource) updateUnder(ctx context.Context, tx *Tx, parent *entity.Entity, p entity.Parent, uuid string, input map[string]interface{}) (UpdateResult, error) {
	if err := identity.ValidateUUIDs(uuid); err != nil {
		return UpdateResult{}, &NotFoundError{}
	}
	linked, err := r.engine.relations.Linked(tx, parent, p.Relation, uuid)
	if err != nil {
		return UpdateResult{}, internal(1111, err)
	}
	if !linked {
		return UpdateResult{}, notFound("%s %s is not linked to %s %s", r.Type, uuid, p.Type, parent.Get("uuid"))
	}
	current, err := r.Load(ctx, tx, uuid)
	if err != nil {
		return UpdateResult{}, err
	}
	result, err := r.update(ctx, tx, current, input)
	if err != nil || result.Errors != nil {
		return result, err
	}
	if relation, ok := p.Relation.(*entity.BelongsToMany); ok {
		pivot, err := r.pivotToIDs(ctx, tx, relation, r.config.Hooks().PreparePivotData(ctx, input, p.Resource))
		if err != nil {
			return result, err
		}
		if len(pivot) > 0 {
			if _, err := r.engine.attacher.UpdateExistingPivot(ctx, tx.DB, relation, parent.ID(), current.ID(), pivot); err != nil {
				return result, r.persistenceError(1112, err)
			}
		}
	}
	result.Entity, err = r.loadThrough(ctx, tx, parent, p.Relation, uuid)
	return result, err
}

// DeleteOne deletes the entity with uuid after deleting its associated data
func (r *Resource) DeleteOne(ctx context.Context, uuid string) error {
	return r.engine.transactions.Run(ctx, func(tx *Tx) error {
		return r.DeleteInTx(ctx, tx, uuid)
	})
}

// DeleteInTx is DeleteOne within a running transaction
func (r *Resource) DeleteInTx(ctx context.Context, tx *Tx, uuid string) error {
	e, err := r.Load(ctx, tx, uuid)
	if err != nil {
		return err
	}
	return r.delete(ctx, tx, e)
}

// scope returns the query for all entities of the type
func (r *Resource) scope(tx *Tx, withTrashed bool) *gorm.DB {
	q := tx.DB.Table(r.Type)
	if r.config.SoftDeletes && !withTrashed {
		q = q.Where(notDeleted(tx.DB, r.Type))
	}
	return q
}

// normalize prepares raw input: numbers become int64 and empty strings in
// foreign key fields and nullable unique fields become null
func (r *Resource) normalize(input map[string]interface{}) map[string]interface{} {
	normalized := make(map[string]interface{}, len(input))
	for k, v := range input {
		v = entity.Normalize(v)
		if s, ok := v.(string); ok && s == "" {
			if r.engine.catalog.IsForeignKeyField(k) || contains(r.config.NullableOnEmpty, k) {
				v = nil
			}
		}
		normalized[k] = v
	}
	return normalized
}

func (r *Resource) validate(ctx context.Context, tx *Tx, operation core.Operation, input map[string]interface{}, current *entity.Entity) (schema.FieldErrors, error) {
	err := r.engine.validator.Validate(ctx, tx.DB, r.Type, operation, input, current)
	if err == nil {
		return nil, nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields, nil
	}
	return nil, internal(1121, err)
}

// fill assigns the fillable fields of input, passing them through the mutators
func (r *Resource) fill(e *entity.Entity, input map[string]interface{}) error {
	for _, field := range r.config.Fillable {
		value, ok := input[field]
		if !ok {
			continue
		}
		if mutate, ok := r.config.Mutator(field); ok {
			var err error
			if value, err = mutate(value); err != nil {
				return internal(1122, fmt.Errorf("cannot mutate %s.%s: %w", r.Type, field, err))
			}
		}
		e.Set(field, value)
	}
	return nil
}

// toIDs translates the foreign keys of e. Malformed or unknown references are
// reported as not found.
func (r *Resource) toIDs(ctx context.Context, tx *Tx, e *entity.Entity, changedOnly bool) error {
	for _, field := range e.Fields() {
		if !strings.HasSuffix(field, "_uuid") || !r.engine.catalog.IsForeignKeyField(field) || r.config.IsNonForeignKey(field) {
			continue
		}
		if v := e.Get(field); !entity.IsEmpty(v) && !identity.LooksLikeUUID(v) {
			return notFound("%s does not reference a record", field)
		}
	}
	result, err := r.engine.translator.ToIDs(ctx, tx.lookup, e, changedOnly)
	if err != nil {
		return internal(1123, err)
	}
	if !result.OK() {
		return notFound("related record %v not found", result.Failed)
	}
	return nil
}

// create creates an entity from normalized input. preset runs after the
// fillable fields were assigned.
func (r *Resource) create(ctx context.Context, tx *Tx, input map[string]interface{}, preset func(e *entity.Entity)) (*entity.Entity, schema.FieldErrors, error) {
	fe, err := r.validate(ctx, tx, core.OperationCreate, input, nil)
	if err != nil || fe != nil {
		return nil, fe, err
	}

	e := entity.New(r.Type)
	if err := r.fill(e, input); err != nil {
		return nil, nil, err
	}
	if preset != nil {
		preset(e)
	}
	uuid := identity.NewUUID()
	now := time.Now().UTC()
	e.Set("uuid", uuid)
	e.Set("created_at", now)
	e.Set("updated_at", now)
	if err := r.toIDs(ctx, tx, e, false); err != nil {
		return nil, nil, err
	}

	if err := tx.DB.Table(r.Type).Create(e.Dirty()).Error; err != nil {
		return nil, nil, r.persistenceError(1131, err)
	}
	if err := r.config.Hooks().InsertAssociatedData(ctx, tx.DB, input, uuid); err != nil {
		return nil, nil, internal(1132, fmt.Errorf("insert associated data of %s: %w", r.Type, err))
	}

	created, err := r.Load(ctx, tx, uuid)
	if err != nil {
		return nil, nil, err
	}
	tx.Notify(core.OperationCreate, created)
	return created, nil, nil
}

// update merges normalized input into current
func (r *Resource) update(ctx context.Context, tx *Tx, current *entity.Entity, input map[string]interface{}) (UpdateResult, error) {
	fe, err := r.validate(ctx, tx, core.OperationUpdate, input, current)
	if err != nil || fe != nil {
		return UpdateResult{Errors: fe}, err
	}

	uuid := current.UUID()
	if v, ok := input["uuid"]; ok && !entity.SameValue(v, uuid) {
		logger.FromContext(ctx).Debugf("%s %s: reverting change of uuid to %v", r.Type, uuid, v)
	}
	if err := r.fill(current, input); err != nil {
		return UpdateResult{}, err
	}
	current.Set("uuid", uuid)
	if err := r.toIDs(ctx, tx, current, true); err != nil {
		return UpdateResult{}, err
	}

	dirty := current.Dirty()
	if len(dirty) > 0 {
		dirty["updated_at"] = time.Now().UTC()
		err := tx.DB.Table(r.Type).Where(eq(r.Type, "id", current.ID())).Updates(dirty).Error
		if err != nil {
			return UpdateResult{}, r.persistenceError(1141, err)
		}
	}

	updated, err := r.Load(ctx, tx, uuid)
	if err != nil {
		return UpdateResult{}, err
	}
	if len(dirty) > 0 {
		tx.Notify(core.OperationUpdate, updated)
	}
	return UpdateResult{Entity: updated}, nil
}

// delete deletes e after its associated data
func (r *Resource) delete(ctx context.Context, tx *Tx, e *entity.Entity) error {
	if err := r.config.Hooks().DeleteAssociatedData(ctx, tx.DB, e); err != nil {
		return internal(1151, fmt.Errorf("delete associated data of %s %s: %w", r.Type, e.UUID(), err))
	}
	q := tx.DB.Table(r.Type).Where(eq(r.Type, "id", e.ID()))
	var err error
	if r.config.SoftDeletes {
		err = q.Updates(map[string]interface{}{"deleted_at": time.Now().UTC()}).Error
	} else {
		err = q.Delete(map[string]interface{}{}).Error
	}
	if err != nil {
		return r.persistenceError(1152, err)
	}
	tx.Notify(core.OperationDelete, e)
	return nil
}

// persistenceError classifies an error of a write statement
func (r *Resource) persistenceError(code int, err error) error {
	return classify(code, fmt.Errorf("%s: %w", r.Type, err))
}

func contains(list []string, s string) bool {
	for _, l := range list {
		if l == s {
			return true
		}
	}
	return false
}
