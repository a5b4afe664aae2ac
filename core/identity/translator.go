package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/relabs-tech/restkit/core/entity"
)

// ErrNotFound is returned by a Lookup when no row carries the identifier
var ErrNotFound = errors.New("identifier not found")

// Lookup resolves identifiers in a table
type Lookup interface {
	UUIDForID(ctx context.Context, table string, id int64) (string, error)
	IDForUUID(ctx context.Context, table, uuid string) (int64, error)
}

// Direction is the direction of a translation
type Direction int

// the two translation directions
const (
	IDsToUUIDs Direction = iota
	UUIDsToIDs
)

func (d Direction) String() string {
	if d == IDsToUUIDs {
		return "ids to uuids"
	}
	return "uuids to ids"
}

// Result reports the fields for which a lookup found no row
type Result struct {
	Failed []string
}

// OK returns true if every qualifying field was translated
func (r Result) OK() bool {
	return len(r.Failed) == 0
}

// Translator rewrites the foreign key fields of entities between their internal
// and their external form, using the foreign key rules of the entity's type.
type Translator struct {
	catalog *entity.Catalog
}

// NewTranslator returns a translator for the entity types of catalog
func NewTranslator(catalog *entity.Catalog) *Translator {
	return &Translator{catalog: catalog}
}

// ToUUIDs replaces every internal foreign key id of e with the UUID of the
// referenced row. The id fields stay on the entity, hidden.
func (t *Translator) ToUUIDs(ctx context.Context, lookup Lookup, e *entity.Entity) (Result, error) {
	return t.translate(ctx, lookup, e, IDsToUUIDs, false)
}

// ToIDs replaces every external foreign key UUID of e with the id of the
// referenced row and removes the UUID fields. With changedOnly, fields equal to
// their original value are dropped without a lookup.
func (t *Translator) ToIDs(ctx context.Context, lookup Lookup, e *entity.Entity, changedOnly bool) (Result, error) {
	return t.translate(ctx, lookup, e, UUIDsToIDs, changedOnly)
}

func (t *Translator) translate(ctx context.Context, lookup Lookup, e *entity.Entity, dir Direction, changedOnly bool) (Result, error) {
	var result Result
	var config *entity.Config
	if t.catalog != nil {
		config, _ = t.catalog.Config(e.Type)
	}

	for _, field := range e.Fields() {
		table, rename, keepHidden, ok := match(config, field, dir)
		if !ok {
			continue
		}
		value := e.Get(field)
		empty := entity.IsEmpty(value)
		if !empty && LooksLikeUUID(value) != (dir == UUIDsToIDs) {
			// not in the shape this direction converts, never convert twice
			continue
		}
		if changedOnly && !e.IsDirty(field) {
			if !keepHidden {
				e.Unset(field)
			}
			continue
		}

		release := func(converted interface{}) {
			e.Set(rename, converted)
			if keepHidden {
				e.Hide(field)
			} else {
				e.Unset(field)
			}
		}
		if empty {
			release(nil)
			continue
		}

		var converted interface{}
		var err error
		if dir == IDsToUUIDs {
			id, _ := entity.AsInt64(value)
			converted, err = lookup.UUIDForID(ctx, table, id)
		} else {
			converted, err = lookup.IDForUUID(ctx, table, value.(string))
		}
		if errors.Is(err, ErrNotFound) {
			result.Failed = append(result.Failed, field)
			release(nil)
			continue
		}
		if err != nil {
			return result, fmt.Errorf("cannot translate %s.%s %s: %w", e.Type, field, dir, err)
		}
		release(converted)
	}
	return result, nil
}

// match decides if field is a foreign key in the given direction and returns the
// referenced table, the name of the converted field and whether the original
// field is kept hidden.
func match(config *entity.Config, field string, dir Direction) (table, rename string, keepHidden bool, ok bool) {
	stripped := strings.TrimPrefix(field, entity.PivotPrefix)
	prefix := strings.TrimSuffix(field, stripped)

	if config != nil {
		if config.IsNonForeignKey(field) || config.IsNonForeignKey(stripped) {
			return "", "", false, false
		}
		if fk, declared := config.UnconventionalForeignKeys[stripped]; declared {
			if fk.KeepHidden != (dir == IDsToUUIDs) {
				return "", "", false, false
			}
			return fk.Table, prefix + fk.Rename, fk.KeepHidden, true
		}
	}

	if dir == IDsToUUIDs {
		if table = entity.ConventionalTable(field, "_id"); table == "" {
			return "", "", false, false
		}
		return table, strings.TrimSuffix(field, "_id") + "_uuid", true, true
	}
	if table = entity.ConventionalTable(field, "_uuid"); table == "" {
		return "", "", false, false
	}
	return table, strings.TrimSuffix(field, "_uuid") + "_id", false, true
}
