package resource

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/relabs-tech/restkit/core"
	"github.com/relabs-tech/restkit/core/entity"
	"github.com/relabs-tech/restkit/core/identity"
)

// Condition is a filter predicate. Conditions of a query are ANDed.
type Condition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

var operators = map[string]string{
	"=":    "=",
	"!=":   "<>",
	"<":    "<",
	"<=":   "<=",
	">":    ">",
	">=":   ">=",
	"like": "LIKE",
}

var conditionRegexp = regexp.MustCompile(`^([A-Za-z0-9_]+)\s*(<=|>=|!=|=|<|>|\s(?i:like)\s)\s*(.*)$`)

// ParseCondition parses a condition of the form field<op>value, e.g.
// "name=Acme", "created_at>=2021-01-01" or "name like Ac%"
func ParseCondition(s string) (Condition, error) {
	m := conditionRegexp.FindStringSubmatch(s)
	if m == nil {
		return Condition{}, &BadRequestError{Message: fmt.Sprintf("The filter %s is malformed", s)}
	}
	return Condition{Field: m[1], Operator: strings.ToLower(strings.TrimSpace(m[2])), Value: m[3]}, nil
}

// PageParams are the parameters of a paginated retrieval
type PageParams struct {
	SortBy   string
	SortType string
	PerPage  int
	Page     int
	// Input is the complete request input, passed to validation and the Filter hook
	Input map[string]interface{}
}

// Page is one page of entities and the total number of entities
type Page struct {
	Items []*entity.Entity
	Total int64
}

// GetAll returns all entities satisfying the conditions
func (r *Resource) GetAll(ctx context.Context, conditions []Condition) ([]*entity.Entity, error) {
	tx := r.engine.transactions.Read(ctx)
	q := r.scope(tx, false)
	for _, c := range conditions {
		op, ok := operators[strings.ToLower(c.Operator)]
		if !ok {
			return nil, &BadRequestError{Message: fmt.Sprintf("The operator %s is not supported", c.Operator)}
		}
		if !hasColumn(tx.DB, r.Type, c.Field) {
			return nil, &BadRequestError{Message: fmt.Sprintf("The field %s does not exist", c.Field)}
		}
		q = q.Where(fmt.Sprintf("%s %s ?", quote(tx.DB, r.Type+"."+c.Field), op), c.Value)
	}
	return r.list(ctx, tx, q)
}

// GetAllForParent returns all entities reached from the parent. withTrashed
// includes soft deleted entities.
func (r *Resource) GetAllForParent(ctx context.Context, parentResource, parentUUID string, withTrashed bool) ([]*entity.Entity, error) {
	tx := r.engine.transactions.Read(ctx)
	parent, p, err := r.engine.relations.Parent(ctx, tx, r.config, parentResource, parentUUID)
	if err != nil {
		return nil, err
	}
	q := r.engine.relations.Children(tx, parent, p.Relation, withTrashed)
	return r.list(ctx, tx, r.engine.relations.WithPivot(tx, q, p.Relation))
}

// GetAllNotAssociatedToParent returns all entities not reached from the parent
func (r *Resource) GetAllNotAssociatedToParent(ctx context.Context, parentResource, parentUUID string) ([]*entity.Entity, error) {
	tx := r.engine.transactions.Read(ctx)
	parent, p, err := r.engine.relations.Parent(ctx, tx, r.config, parentResource, parentUUID)
	if err != nil {
		return nil, err
	}
	ids, err := r.engine.relations.ChildIDs(tx, parent, p.Relation)
	if err != nil {
		return nil, internal(1401, err)
	}
	q := r.scope(tx, false)
	if len(ids) > 0 {
		q = q.Not(in(r.Type, "id", ids2values(ids)))
	}
	return r.list(ctx, tx, q)
}

// GetPaginated returns one page of entities, reached from the parent if
// parentResource is set. The sort field must be a column of the type or in its
// sortable list.
func (r *Resource) GetPaginated(ctx context.Context, parentResource, parentUUID string, params PageParams) (*Page, error) {
	tx := r.engine.transactions.Read(ctx)
	if params.Input == nil {
		params.Input = map[string]interface{}{}
	}
	if fe, err := r.validate(ctx, tx, core.OperationPaginate, params.Input, nil); err != nil {
		return nil, err
	} else if fe != nil {
		return nil, &ValidationError{Fields: fe}
	}

	sortColumn := false
	if params.SortBy != "" {
		sortColumn = hasColumn(tx.DB, r.Type, params.SortBy)
		if !sortColumn && !r.config.IsSortable(params.SortBy) {
			return nil, &BadRequestError{Message: fmt.Sprintf("The field %s does not exist", params.SortBy)}
		}
	}
	desc := false
	switch strings.ToLower(params.SortType) {
	case "", "asc":
	case "desc":
		desc = true
	default:
		return nil, &BadRequestError{Message: fmt.Sprintf("The sort type %s is not supported", params.SortType)}
	}
	if params.PerPage < 0 || params.Page < 0 {
		return nil, &BadRequestError{Message: "per_page and page must not be negative"}
	}

	var parent *entity.Entity
	var p entity.Parent
	if parentResource != "" {
		var err error
		if parent, p, err = r.engine.relations.Parent(ctx, tx, r.config, parentResource, parentUUID); err != nil {
			return nil, err
		}
	}
	hooks := r.config.Hooks()
	query := func() *gorm.DB {
		q := r.scope(tx, false)
		if parent != nil {
			q = r.engine.relations.Children(tx, parent, p.Relation, false)
		}
		return hooks.Filter(q, params.Input)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, internal(1411, err)
	}

	q := query()
	if parent != nil {
		q = r.engine.relations.WithPivot(tx, q, p.Relation)
	} else {
		q = q.Select(quote(tx.DB, r.Type) + ".*")
	}
	if params.SortBy != "" {
		column := clause.Column{Table: r.Type, Name: params.SortBy}
		if !sortColumn {
			var name string
			q, name = hooks.SortBy(q, params.SortBy)
			column = clause.Column{Name: name}
		}
		q = q.Order(clause.OrderByColumn{Column: column, Desc: desc})
	}
	if params.PerPage > 0 {
		page := params.Page
		if page < 1 {
			page = 1
		}
		q = q.Limit(params.PerPage).Offset((page - 1) * params.PerPage)
	}

	items, err := r.list(ctx, tx, q)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total}, nil
}

// CheckEntityByField returns true if an entity with value in field exists. The
// field must be checkable.
func (r *Resource) CheckEntityByField(ctx context.Context, field, value string) (bool, error) {
	if !r.config.IsCheckable(field) {
		return false, &BadRequestError{Message: fmt.Sprintf("The field %s cannot be checked", field)}
	}
	tx := r.engine.transactions.Read(ctx)
	var count int64
	if err := r.scope(tx, false).Where(eq(r.Type, field, value)).Count(&count).Error; err != nil {
		return false, internal(1421, err)
	}
	return count > 0, nil
}

// loadThrough returns the entity with uuid as reached from parent, including its pivot
func (r *Resource) loadThrough(ctx context.Context, tx *Tx, parent *entity.Entity, relation entity.Relation, uuid string) (*entity.Entity, error) {
	if err := identity.ValidateUUIDs(uuid); err != nil {
		return nil, &NotFoundError{}
	}
	q := r.engine.relations.Children(tx, parent, relation, false).Where(eq(r.Type, "uuid", uuid)).Limit(1)
	rows, err := findRows(r.engine.relations.WithPivot(tx, q, relation))
	if err != nil {
		return nil, internal(1431, err)
	}
	if len(rows) == 0 {
		return nil, &NotFoundError{}
	}
	e, err := r.engine.shaper.Hydrate(ctx, tx, r.Type, rows[0], true)
	if err != nil {
		return nil, internal(1432, err)
	}
	return e, nil
}

// list returns the hydrated entities of q, ordered by id after any order of q
func (r *Resource) list(ctx context.Context, tx *Tx, q *gorm.DB) ([]*entity.Entity, error) {
	rows, err := findRows(q.Order(quote(tx.DB, r.Type+".id")))
	if err != nil {
		return nil, internal(1441, err)
	}
	entities, err := r.engine.shaper.HydrateAll(ctx, tx, r.Type, rows, true)
	if err != nil {
		return nil, internal(1442, err)
	}
	return entities, nil
}
