package resource

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/relabs-tech/restkit/core/entity"
	"github.com/relabs-tech/restkit/core/identity"
)

// RelationResolver resolves parent resources and builds the queries reaching
// entities through relations
type RelationResolver struct {
	catalog *entity.Catalog
}

// Parent resolves the parent resource of an entity of type config from the
// parent uuid of a request
func (rr *RelationResolver) Parent(ctx context.Context, tx *Tx, config *entity.Config, parentResource, parentUUID string) (*entity.Entity, entity.Parent, error) {
	p, ok := config.Parent(parentResource)
	if !ok {
		return nil, p, internal(1201, fmt.Errorf("%s has no parent resource %s", config.Type, parentResource))
	}
	if err := identity.ValidateUUIDs(parentUUID); err != nil {
		return nil, p, &NotFoundError{}
	}
	parentConfig, _ := rr.catalog.Config(p.Type)
	q := tx.DB.Table(p.Type).Where(eq(p.Type, "uuid", parentUUID)).Limit(1)
	if parentConfig.SoftDeletes {
		q = q.Where(notDeleted(tx.DB, p.Type))
	}
	rows, err := findRows(q)
	if err != nil {
		return nil, p, internal(1202, err)
	}
	if len(rows) == 0 {
		return nil, p, &NotFoundError{}
	}
	return entity.FromRow(p.Type, rows[0]), p, nil
}

// Children returns the query for all entities reached from parent through
// relation. withTrashed includes soft deleted entities. The query selects no
// pivot columns, see WithPivot.
func (rr *RelationResolver) Children(tx *Tx, parent *entity.Entity, relation entity.Relation, withTrashed bool) *gorm.DB {
	related := relation.Related()
	q := tx.DB.Table(related)
	switch r := relation.(type) {
	case *entity.HasMany:
		q = q.Where(eq(related, r.ForeignKey, parent.ID()))
	case *entity.BelongsToMany:
		q = q.Joins(fmt.Sprintf("JOIN %s ON %s = %s",
			quote(tx.DB, r.Table),
			quote(tx.DB, r.Table+"."+r.RelatedPivotKey),
			quote(tx.DB, related+".id"))).
			Where(eq(r.Table, r.ForeignPivotKey, parent.ID()))
	case *entity.BelongsTo:
		q = q.Where(eq(related, "id", parent.Get(r.ForeignKey)))
	}
	if config, ok := rr.catalog.Config(related); ok && config.SoftDeletes && !withTrashed {
		q = q.Where(notDeleted(tx.DB, related))
	}
	return q
}

// WithPivot selects the columns of the related table, plus the pivot columns
// prefixed with entity.PivotPrefix for many to many relations
func (rr *RelationResolver) WithPivot(tx *Tx, q *gorm.DB, relation entity.Relation) *gorm.DB {
	r, ok := relation.(*entity.BelongsToMany)
	if !ok {
		return q
	}
	selects := []string{quote(tx.DB, r.Related()) + ".*"}
	for _, f := range r.PivotFields() {
		selects = append(selects, fmt.Sprintf("%s AS %s", quote(tx.DB, r.Table+"."+f), quote(tx.DB, entity.PivotPrefix+f)))
	}
	return q.Select(strings.Join(selects, ", "))
}

// Linked returns true if the entity with uuid is reached from parent through relation
func (rr *RelationResolver) Linked(tx *Tx, parent *entity.Entity, relation entity.Relation, uuid string) (bool, error) {
	var count int64
	err := rr.Children(tx, parent, relation, false).Where(eq(relation.Related(), "uuid", uuid)).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ChildIDs returns the ids of all entities reached from parent through relation
func (rr *RelationResolver) ChildIDs(tx *Tx, parent *entity.Entity, relation entity.Relation) ([]int64, error) {
	var ids []int64
	err := rr.Children(tx, parent, relation, true).Pluck(quote(tx.DB, relation.Related()+".id"), &ids).Error
	return ids, err
}

// many2many returns the relation of parent p as many to many relation
func many2many(p entity.Parent) (*entity.BelongsToMany, error) {
	r, ok := p.Relation.(*entity.BelongsToMany)
	if !ok {
		return nil, internal(1203, fmt.Errorf("parent resource %s does not reach %s many to many", p.Resource, p.Relation.Related()))
	}
	return r, nil
}
