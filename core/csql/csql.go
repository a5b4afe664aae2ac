// Package csql opens the relational database underneath the resource engine.
//
// Production runs on Postgres through lib/pq, wrapped into gorm with the postgres
// dialector. Local development and tests run on SQLite through the pure-Go
// modernc driver.
package csql

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite" // load pure-Go database driver for sqlite

	"github.com/relabs-tech/restkit/core/logger"
)

// DB encapsulates a gorm database with a schema
type DB struct {
	*gorm.DB
	Schema string
}

// OpenWithSchema opens a postgres database with a schema.
// The schema gets created if it does not exist yet and becomes the search path of
// every connection.
func OpenWithSchema(dataSourceName, schema string) *DB {
	rlog := logger.Default()
	if len(schema) == 0 {
		schema = "public"
	}
	rlog.Infoln("connecting to postgres database, schema:", schema)
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		panic(err)
	}
	if err = db.Ping(); err != nil {
		panic(err)
	}
	if schema != "public" {
		_, err = db.Exec(`CREATE schema IF NOT EXISTS ` + pq.QuoteIdentifier(schema) + `;`)
		if err != nil {
			panic(err)
		}
		db.Close()
		db, err = sql.Open("postgres", withSearchPath(dataSourceName, schema))
		if err != nil {
			panic(err)
		}
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), gormConfig())
	if err != nil {
		panic(err)
	}
	return &DB{DB: gdb, Schema: schema}
}

// OpenSQLite opens (and creates) a sqlite database file.
func OpenSQLite(path string) (*DB, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	gdb, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        dsn,
	}, gormConfig())
	if err != nil {
		return nil, fmt.Errorf("cannot open sqlite database %s: %w", path, err)
	}
	return &DB{DB: gdb, Schema: "main"}, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}
}

func withSearchPath(dataSourceName, schema string) string {
	if strings.Contains(dataSourceName, "://") {
		if strings.Contains(dataSourceName, "?") {
			return dataSourceName + "&search_path=" + schema
		}
		return dataSourceName + "?search_path=" + schema
	}
	return dataSourceName + " search_path=" + schema
}

// IsPostgres returns true if the database runs on postgres
func (db *DB) IsPostgres() bool {
	return db.Dialector.Name() == "postgres"
}

// ClearSchema clears all the data contained in the database's schema.
// On postgres this is done by dropping the schema and then recreating it, on
// sqlite all tables except sqlite's internal ones are dropped.
func (db *DB) ClearSchema() error {
	if !db.IsPostgres() {
		tables, err := db.Migrator().GetTables()
		if err != nil {
			return err
		}
		for _, table := range tables {
			if strings.HasPrefix(table, "sqlite_") {
				continue
			}
			if err := db.Migrator().DropTable(table); err != nil {
				return err
			}
		}
		return nil
	}
	if db.Schema == "public" {
		return errors.New("refuse to drop public schema")
	}
	schema := pq.QuoteIdentifier(db.Schema)
	return db.Exec(`DROP SCHEMA ` + schema + ` CASCADE; CREATE schema IF NOT EXISTS ` + schema + `;`).Error
}

// Close closes the underlying connection pool
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
