package backend

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/relabs-tech/restkit/core"
	"github.com/relabs-tech/restkit/core/client"
	"github.com/relabs-tech/restkit/core/csql"
	"github.com/relabs-tech/restkit/core/entity"
	"github.com/relabs-tech/restkit/core/identity"
	"github.com/relabs-tech/restkit/core/resource"
	"github.com/relabs-tech/restkit/core/schema"
)

const testConfig = `{
	"entities": [
		{"type": "states", "fillable": ["name"], "relations": [{"name": "clients", "kind": "has_many", "related": "clients"}]},
		{
			"type": "users",
			"fillable": ["email"],
			"checkable": ["email"],
			"parents": {"clients": {"type": "clients", "accessor": "users"}}
		},
		{
			"type": "clients",
			"fillable": ["name", "state_uuid"],
			"relations": [
				{"name": "contacts", "kind": "has_many", "related": "contacts"},
				{"name": "users", "kind": "belongs_to_many", "related": "users", "pivot_table": "client_user"}
			],
			"parents": {"states": {"type": "states", "accessor": "clients"}}
		},
		{
			"type": "contacts",
			"fillable": ["name"],
			"parents": {"clients": {"type": "clients", "accessor": "contacts"}}
		}
	]
}`

var testTables = []string{
	`CREATE TABLE states (id INTEGER PRIMARY KEY AUTOINCREMENT, uuid TEXT NOT NULL UNIQUE, name TEXT,
		created_at DATETIME, updated_at DATETIME, deleted_at DATETIME)`,
	`CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, uuid TEXT NOT NULL UNIQUE, email TEXT UNIQUE,
		created_at DATETIME, updated_at DATETIME, deleted_at DATETIME)`,
	`CREATE TABLE clients (id INTEGER PRIMARY KEY AUTOINCREMENT, uuid TEXT NOT NULL UNIQUE, name TEXT,
		state_id INTEGER REFERENCES states(id),
		created_at DATETIME, updated_at DATETIME, deleted_at DATETIME)`,
	`CREATE TABLE contacts (id INTEGER PRIMARY KEY AUTOINCREMENT, uuid TEXT NOT NULL UNIQUE, name TEXT,
		client_id INTEGER REFERENCES clients(id) ON DELETE CASCADE,
		created_at DATETIME, updated_at DATETIME, deleted_at DATETIME)`,
	`CREATE TABLE client_user (client_id INTEGER NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE, PRIMARY KEY (client_id, user_id))`,
}

var testSchemas = []string{
	`{"$id": "contacts.create", "type": "object", "required": ["name"],
	  "properties": {"name": {"type": "string", "minLength": 1}}}`,
	`{"$id": "contacts.update", "type": "object", "properties": {"name": {"type": "string", "minLength": 1}}}`,
}

type contactHooks struct {
	entity.NopHooks
}

func (contactHooks) DeleteAssociatedData(_ context.Context, _ *gorm.DB, e *entity.Entity) error {
	if e.Get("name") == "undeletable" {
		return errors.New("secret database detail")
	}
	return nil
}

type testItem struct {
	UUID       string            `json:"uuid"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	ClientUUID string            `json:"client_uuid"`
	Pivot      map[string]string `json:"pivot"`
}

func newTestClient(t *testing.T, operations map[string][]core.Operation) client.Client {
	db, err := csql.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for _, table := range testTables {
		require.NoError(t, db.Exec(table).Error)
	}
	schemas, err := schema.NewValidator(testSchemas, nil)
	require.NoError(t, err)
	rules := map[string]map[core.Operation]resource.Rules{
		"states":   {core.OperationCreate: {}, core.OperationUpdate: {}},
		"users":    {core.OperationCreate: {Unique: []string{"email"}}, core.OperationUpdate: {Unique: []string{"email"}}},
		"clients":  {core.OperationCreate: {}, core.OperationUpdate: {}},
		"contacts": {core.OperationCreate: {Schema: "contacts.create"}, core.OperationUpdate: {Schema: "contacts.update"}},
	}
	engine := resource.MustNew(&resource.Builder{
		Catalog: entity.MustNewCatalog(&entity.CatalogBuilder{
			Config: testConfig,
			Hooks:  map[string]entity.Hooks{"contacts": contactHooks{}},
		}),
		DB:        db.DB,
		Validator: &resource.SchemaValidator{Schemas: schemas, Rules: rules},
	})
	router := mux.NewRouter()
	New(&Builder{Engine: engine, Router: router, Operations: operations})
	return client.NewWithRouter(router)
}

func TestEntityRoutes(t *testing.T) {
	c := newTestClient(t, nil)
	clients := c.Collection("clients")

	var created testItem
	status, err := clients.Create(map[string]interface{}{"name": "Acme"}, &created)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.True(t, identity.LooksLikeUUID(created.UUID))

	var raw map[string]interface{}
	_, err = clients.Item(created.UUID).Read(&raw)
	require.NoError(t, err)
	assert.Equal(t, "Acme", raw["name"])
	assert.NotContains(t, raw, "id")

	var updated testItem
	_, err = clients.Item(created.UUID).Update(map[string]interface{}{"name": "Acme Ltd", "uuid": identity.NewUUID()}, &updated)
	require.NoError(t, err)
	assert.Equal(t, created.UUID, updated.UUID)
	assert.Equal(t, "Acme Ltd", updated.Name)

	var list []testItem
	_, err = clients.WithFilter("name", " like ", "Acme%").List(&list)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	status, _ = clients.WithFilter("name", "~", "x").List(&list)
	assert.Equal(t, http.StatusBadRequest, status)

	status, err = clients.Item(created.UUID).Delete()
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, status)

	res, err := c.Do(http.MethodGet, "/clients/"+created.UUID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.JSONEq(t, `{"error":"Record not found"}`, string(res.Body))
	assert.Equal(t, "application/json; charset=utf-8", res.Header.Get("Content-Type"))

	for _, path := range []string{"/clients/not-a-uuid", "/clients/" + created.UUID + "/nothing", "/nothing"} {
		res, err = c.Do(http.MethodGet, path, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.StatusCode, path)
		assert.JSONEq(t, `{"error":"Record not found"}`, string(res.Body), path)
	}
	res, err = c.Do(http.MethodPut, "/clients", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)

	res, err = c.Do(http.MethodPost, "/clients", nil, []byte(`{"name":`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestChildRoutes(t *testing.T) {
	c := newTestClient(t, nil)
	var client testItem
	_, err := c.Collection("clients").Create(map[string]interface{}{"name": "Acme"}, &client)
	require.NoError(t, err)
	contacts := c.Collection("clients").Under(client.UUID, "contacts")

	var a, b testItem
	_, err = contacts.Create(map[string]interface{}{"name": "A"}, &a)
	require.NoError(t, err)
	_, err = contacts.Create(map[string]interface{}{"name": "B"}, &b)
	require.NoError(t, err)
	var raw map[string]interface{}
	_, err = contacts.Item(a.UUID).Read(&raw)
	require.NoError(t, err)
	assert.Equal(t, client.UUID, raw["client_uuid"])
	assert.NotContains(t, raw, "client_id")

	res, err := c.Do(http.MethodPost, contacts.Path(), nil, map[string]interface{}{"name": ""})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, string(res.Body), `"name":[`)

	res, err = c.Do(http.MethodPut, contacts.Path(), nil, map[string]interface{}{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.JSONEq(t, `{"error":"Request body must be an array of objects"}`, string(res.Body))

	res, err = c.Do(http.MethodPut, contacts.Path(), nil, []map[string]interface{}{{"uuid": a.UUID, "name": "A2"}, {"name": ""}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	var itemErrors []map[string]map[string][]string
	require.NoError(t, decode(res.Body, &itemErrors))
	require.Len(t, itemErrors, 2)
	assert.Empty(t, itemErrors[0]["errors"])
	assert.Contains(t, itemErrors[1]["errors"], "name")

	var synced []testItem
	_, err = contacts.Sync([]map[string]interface{}{{"uuid": a.UUID, "name": "A2"}, {"name": "C"}}, &synced)
	require.NoError(t, err)
	require.Len(t, synced, 2)
	assert.Equal(t, "A2", synced[0].Name)
	assert.Equal(t, "C", synced[1].Name)

	status, err := contacts.DeleteAll(synced[0].UUID, identity.NewUUID())
	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	var list []testItem
	_, err = contacts.List(&list)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// a failing hook is an internal error and its cause stays in the log
	_, err = contacts.Sync([]map[string]interface{}{{"name": "undeletable"}}, &synced)
	require.NoError(t, err)
	res, err = c.Do(http.MethodPut, contacts.Path(), nil, []map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.JSONEq(t, `{"error":"An internal error has occurred"}`, string(res.Body))
}

func TestManyToManyRoutes(t *testing.T) {
	c := newTestClient(t, nil)
	var state, client, u1, u2 testItem
	_, err := c.Collection("states").Create(map[string]interface{}{"name": "Victoria"}, &state)
	require.NoError(t, err)
	_, err = c.Collection("states").Under(state.UUID, "clients").Create(map[string]interface{}{"name": "Acme"}, &client)
	require.NoError(t, err)
	_, err = c.Collection("users").Create(map[string]interface{}{"email": "one@example.com"}, &u1)
	require.NoError(t, err)
	_, err = c.Collection("users").Create(map[string]interface{}{"email": "two@example.com"}, &u2)
	require.NoError(t, err)
	users := c.Collection("clients").Under(client.UUID, "users")

	var attached testItem
	status, err := users.Attach(map[string]interface{}{"user_uuid": u1.UUID}, &attached)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, client.UUID, attached.Pivot["client_uuid"])

	var unassociated []testItem
	_, err = users.Unassociated(&unassociated)
	require.NoError(t, err)
	require.Len(t, unassociated, 1)
	assert.Equal(t, u2.UUID, unassociated[0].UUID)

	var parent testItem
	status, err = c.RawPost("/states/"+state.UUID+"/clients/"+client.UUID+"/users",
		map[string]interface{}{"uuids": []string{u1.UUID, u2.UUID}}, &parent)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, client.UUID, parent.UUID)

	status, err = users.DeleteAll(u1.UUID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, status)
	var list []testItem
	_, err = users.List(&list)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, u2.UUID, list[0].UUID)
}

func TestCheckRoute(t *testing.T) {
	c := newTestClient(t, nil)
	_, err := c.Collection("users").Create(map[string]interface{}{"email": "jane@example.com"}, nil)
	require.NoError(t, err)

	status, err := c.RawHead("/users/jane@example.com/email")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	res, err := c.Do(http.MethodHead, "/users/john@example.com/email", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Empty(t, res.Body)

	res, err = c.Do(http.MethodGet, "/users/jane@example.com/email", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
	assert.Empty(t, res.Body)
}

func TestPagination(t *testing.T) {
	c := newTestClient(t, nil)
	clients := c.Collection("clients")
	for _, name := range []string{"Bravo", "Alpha", "Charlie"} {
		_, err := clients.Create(map[string]interface{}{"name": name}, nil)
		require.NoError(t, err)
	}

	page := clients.FirstPage("name", "desc", 2)
	var items []testItem
	_, err := page.Get(&items)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalCount())
	require.Len(t, items, 2)
	assert.Equal(t, "Charlie", items[0].Name)
	page = page.Next()
	_, err = page.Get(&items)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Alpha", items[0].Name)

	res, err := c.Do(http.MethodGet, "/clients?sort_by=bogus", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.JSONEq(t, `{"error":"The field bogus does not exist"}`, string(res.Body))

	res, err = c.Do(http.MethodGet, "/clients?per_page=many", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestOperationsRestrictRoutes(t *testing.T) {
	c := newTestClient(t, map[string][]core.Operation{
		"states": {core.OperationList},
	})
	var list []testItem
	status, err := c.Collection("states").List(&list)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	status, _ = c.Collection("states").Create(map[string]interface{}{"name": "x"}, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	status, _ = c.Collection("clients").List(&list)
	assert.Equal(t, http.StatusNotFound, status)

	var version map[string]string
	_, err = c.RawGet("/version", &version)
	require.NoError(t, err)
	assert.Equal(t, Version, version["version"])
}

func TestHandler(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	router.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	h := Handler(router)

	rec := serve(h, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serve(h, http.MethodOptions, "/ok", map[string]string{
		"Origin":                        "https://example.com",
		"Access-Control-Request-Method": "PATCH",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serve(h, http.MethodGet, "/ok", map[string]string{"Accept-Encoding": "gzip"})
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}
