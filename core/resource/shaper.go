package resource

import (
	"context"
	"fmt"

	"github.com/relabs-tech/restkit/core/entity"
	"github.com/relabs-tech/restkit/core/identity"
	"github.com/relabs-tech/restkit/core/logger"
)

// ResponseShaper turns raw rows into entities as seen by clients: internal
// foreign keys translated to uuids, hidden fields hidden, pivot fields nested
// and configured relations eager loaded
type ResponseShaper struct {
	catalog    *entity.Catalog
	translator *identity.Translator
	relations  *RelationResolver
}

// Hydrate returns the entity of entityType for row. With eager, the relations
// in the With list of the type are loaded.
func (s *ResponseShaper) Hydrate(ctx context.Context, tx *Tx, entityType string, row map[string]interface{}, eager bool) (*entity.Entity, error) {
	e := entity.FromRow(entityType, row)
	config, ok := s.catalog.Config(entityType)
	if ok {
		e.Hide(config.HiddenFields()...)
	} else {
		e.Hide("id")
	}

	result, err := s.translator.ToUUIDs(ctx, tx.lookup, e)
	if err != nil {
		return nil, err
	}
	if !result.OK() {
		logger.FromContext(ctx).Warnf("%s %s references missing rows: %v", entityType, e.UUID(), result.Failed)
	}

	if eager && ok {
		for _, name := range config.With {
			relation, _ := config.Relation(name)
			if err := s.load(ctx, tx, e, relation); err != nil {
				return nil, fmt.Errorf("cannot load %s of %s: %w", name, entityType, err)
			}
		}
	}
	e.SyncOriginal()
	return e, nil
}

// HydrateAll hydrates all rows
func (s *ResponseShaper) HydrateAll(ctx context.Context, tx *Tx, entityType string, rows []map[string]interface{}, eager bool) ([]*entity.Entity, error) {
	entities := make([]*entity.Entity, 0, len(rows))
	for _, row := range rows {
		e, err := s.Hydrate(ctx, tx, entityType, row, eager)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func (s *ResponseShaper) load(ctx context.Context, tx *Tx, e *entity.Entity, relation entity.Relation) error {
	q := s.relations.Children(tx, e, relation, false)
	q = s.relations.WithPivot(tx, q, relation)
	if _, single := relation.(*entity.BelongsTo); single {
		if entity.IsEmpty(e.Get(relation.(*entity.BelongsTo).ForeignKey)) {
			e.SetRelation(relation.Name(), (*entity.Entity)(nil))
			return nil
		}
		rows, err := findRows(q.Limit(1))
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			e.SetRelation(relation.Name(), (*entity.Entity)(nil))
			return nil
		}
		related, err := s.Hydrate(ctx, tx, relation.Related(), rows[0], false)
		if err != nil {
			return err
		}
		e.SetRelation(relation.Name(), related)
		return nil
	}

	rows, err := findRows(q.Order(quote(tx.DB, relation.Related()+".id")))
	if err != nil {
		return err
	}
	related, err := s.HydrateAll(ctx, tx, relation.Related(), rows, false)
	if err != nil {
		return err
	}
	e.SetRelation(relation.Name(), related)
	return nil
}
