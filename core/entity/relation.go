package entity

// Relation is a typed accessor from an entity to related entities. Relations are
// declared by name in the configuration and resolved once when the catalog is
// built.
type Relation interface {
	// Name is the accessor name, e.g. "password_resets"
	Name() string
	// Related is the entity type reached through the relation
	Related() string
}

// BelongsTo reaches the single entity referenced by ForeignKey on the owner
type BelongsTo struct {
	name       string
	related    string
	ForeignKey string
}

// Name implements Relation
func (r *BelongsTo) Name() string { return r.name }

// Related implements Relation
func (r *BelongsTo) Related() string { return r.related }

// HasMany reaches all related entities whose ForeignKey references the owner
type HasMany struct {
	name       string
	related    string
	ForeignKey string
}

// Name implements Relation
func (r *HasMany) Name() string { return r.name }

// Related implements Relation
func (r *HasMany) Related() string { return r.related }

// BelongsToMany reaches related entities through the pivot table Table.
// ForeignPivotKey references the owner, RelatedPivotKey the related entity.
// PivotColumns are the extra attributes carried by the pivot record.
type BelongsToMany struct {
	name            string
	related         string
	Table           string
	ForeignPivotKey string
	RelatedPivotKey string
	PivotColumns    []string
	Timestamps      bool
}

// Name implements Relation
func (r *BelongsToMany) Name() string { return r.name }

// Related implements Relation
func (r *BelongsToMany) Related() string { return r.related }

// PivotFields returns all pivot columns surfaced on related entities, with the
// two keys first
func (r *BelongsToMany) PivotFields() []string {
	fields := []string{r.ForeignPivotKey, r.RelatedPivotKey}
	fields = append(fields, r.PivotColumns...)
	if r.Timestamps {
		fields = append(fields, "created_at", "updated_at")
	}
	return fields
}
