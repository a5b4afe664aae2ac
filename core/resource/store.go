package resource

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/relabs-tech/restkit/core/identity"
)

// gormLookup implements identity.Lookup over the tables of the database. Results
// are cached for the lifetime of one Tx.
type gormLookup struct {
	db    *gorm.DB
	uuids map[string]string
	ids   map[string]int64
}

func newLookup(db *gorm.DB) *gormLookup {
	return &gormLookup{db: db, uuids: map[string]string{}, ids: map[string]int64{}}
}

func (l *gormLookup) UUIDForID(ctx context.Context, table string, id int64) (string, error) {
	key := table + "/" + strconv.FormatInt(id, 10)
	if u, ok := l.uuids[key]; ok {
		return u, nil
	}
	var uuids []string
	err := l.db.WithContext(ctx).Table(table).Where(eq(table, "id", id)).Limit(1).Pluck("uuid", &uuids).Error
	if err != nil {
		return "", fmt.Errorf("cannot look up uuid in %s: %w", table, err)
	}
	if len(uuids) == 0 {
		return "", identity.ErrNotFound
	}
	l.uuids[key] = uuids[0]
	return uuids[0], nil
}

func (l *gormLookup) IDForUUID(ctx context.Context, table, uuid string) (int64, error) {
	key := table + "/" + uuid
	if id, ok := l.ids[key]; ok {
		return id, nil
	}
	var ids []int64
	err := l.db.WithContext(ctx).Table(table).Where(eq(table, "uuid", uuid)).Limit(1).Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("cannot look up id in %s: %w", table, err)
	}
	if len(ids) == 0 {
		return 0, identity.ErrNotFound
	}
	l.ids[key] = ids[0]
	return ids[0], nil
}

func eq(table, column string, value interface{}) clause.Eq {
	return clause.Eq{Column: clause.Column{Table: table, Name: column}, Value: value}
}

func in(table, column string, values []interface{}) clause.IN {
	return clause.IN{Column: clause.Column{Table: table, Name: column}, Values: values}
}

func quote(db *gorm.DB, name string) string {
	return db.Statement.Quote(name)
}

func notDeleted(db *gorm.DB, table string) string {
	return quote(db, table+".deleted_at") + " IS NULL"
}

func findRows(q *gorm.DB) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func hasColumn(db *gorm.DB, table, column string) bool {
	if column == "" || strings.ContainsAny(column, " .;\"'`()") {
		return false
	}
	return db.Migrator().HasColumn(table, column)
}

func strings2values(s []string) []interface{} {
	values := make([]interface{}, len(s))
	for i, v := range s {
		values[i] = v
	}
	return values
}

func ids2values(ids []int64) []interface{} {
	values := make([]interface{}, len(ids))
	for i, v := range ids {
		values[i] = v
	}
	return values
}

func uniqueStrings(s []string) []string {
	seen := make(map[string]bool, len(s))
	var unique []string
	for _, v := range s {
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}
	return unique
}
