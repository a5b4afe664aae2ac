package entity

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `{
	"entities": [
		{
			"type": "clients",
			"fillable": ["name", "abn", "state_uuid"],
			"relations": [
				{"name": "contacts", "kind": "has_many", "related": "contacts"},
				{"name": "users", "kind": "belongs_to_many", "related": "users", "pivot_table": "client_user", "pivot_columns": ["role_id"]}
			],
			"nullable_on_empty": ["abn"]
		},
		{
			"type": "contacts",
			"fillable": ["name", "email"],
			"with": ["client"],
			"relations": [
				{"name": "client", "kind": "belongs_to", "related": "clients"}
			],
			"parents": {"clients": {"type": "clients", "accessor": "contacts"}}
		},
		{
			"type": "users",
			"fillable": ["email"],
			"hidden": ["password"],
			"parents": {"clients": {"type": "clients", "accessor": "users"}},
			"unconventional_foreign_keys": {
				"manager_id": {"table": "users", "rename": "manager_uuid", "keep_hidden": true}
			}
		}
	]
}`

func TestCatalog_ResolvesRelationsAndParents(t *testing.T) {
	c, err := NewCatalog(&CatalogBuilder{Config: testConfig})
	require.NoError(t, err)
	assert.Equal(t, []string{"clients", "contacts", "users"}, c.Types())

	contacts, ok := c.Config("contacts")
	require.True(t, ok)
	parent, ok := contacts.Parent("clients")
	require.True(t, ok)
	hasMany, ok := parent.Relation.(*HasMany)
	require.True(t, ok)
	assert.Equal(t, "client_id", hasMany.ForeignKey)
	assert.Equal(t, "clients", parent.Type)

	client, ok := contacts.Relation("client")
	require.True(t, ok)
	assert.Equal(t, "client_id", client.(*BelongsTo).ForeignKey)

	users, _ := c.Config("users")
	parent, ok = users.Parent("clients")
	require.True(t, ok)
	m2m, ok := parent.Relation.(*BelongsToMany)
	require.True(t, ok)
	assert.Equal(t, "client_user", m2m.Table)
	assert.Equal(t, "client_id", m2m.ForeignPivotKey)
	assert.Equal(t, "user_id", m2m.RelatedPivotKey)
	assert.Equal(t, []string{"client_id", "user_id", "role_id"}, m2m.PivotFields())

	assert.Equal(t, []string{"id", "password"}, users.HiddenFields())
	assert.IsType(t, NopHooks{}, users.Hooks())
}

func TestCatalog_Misconfiguration(t *testing.T) {
	tests := map[string]string{
		"unknown accessor": `{"entities":[
			{"type":"clients"},
			{"type":"contacts","parents":{"clients":{"type":"clients","accessor":"contacts"}}}]}`,
		"unknown parent type": `{"entities":[
			{"type":"contacts","parents":{"clients":{"type":"clients","accessor":"contacts"}}}]}`,
		"unknown relation kind": `{"entities":[
			{"type":"clients","relations":[{"name":"contacts","kind":"has_some","related":"clients"}]}]}`,
		"undeclared eager load": `{"entities":[{"type":"clients","with":["contacts"]}]}`,
		"incomplete foreign key": `{"entities":[
			{"type":"clients","unconventional_foreign_keys":{"owner_id":{"table":"users"}}}]}`,
		"duplicate type": `{"entities":[{"type":"clients"},{"type":"clients"}]}`,
		"accessor reaches other type": `{"entities":[
			{"type":"clients","relations":[{"name":"contacts","kind":"has_many","related":"clients"}]},
			{"type":"contacts","parents":{"clients":{"type":"clients","accessor":"contacts"}}}]}`,
	}
	for name, config := range tests {
		_, err := NewCatalog(&CatalogBuilder{Config: config})
		assert.Error(t, err, name)
	}

	assert.Panics(t, func() {
		MustNewCatalog(&CatalogBuilder{Config: `{"entities":[{"type":"a"}]}`, Hooks: map[string]Hooks{"b": NopHooks{}}})
	})
}

func TestCatalog_IsForeignKeyField(t *testing.T) {
	c := MustNewCatalog(&CatalogBuilder{Config: testConfig})
	assert.True(t, c.IsForeignKeyField("state_uuid"))
	assert.True(t, c.IsForeignKeyField("client_id"))
	assert.True(t, c.IsForeignKeyField("manager_id"))
	assert.False(t, c.IsForeignKeyField("uuid"))
	assert.False(t, c.IsForeignKeyField("abn"))

	assert.Equal(t, "clients", ConventionalTable("pivot_client_id", "_id"))
	assert.Equal(t, "password_resets", ConventionalTable("password_reset_uuid", "_uuid"))
	assert.Equal(t, "", ConventionalTable("client_uuid", "_id"))
}

func TestEntity_DirtyTracking(t *testing.T) {
	e := FromRow("clients", map[string]interface{}{
		"id":   int64(3),
		"uuid": []byte("b3f2c1d0-5e4f-4a3b-8c2d-1e0f9a8b7c6d"),
		"name": "Acme",
	})
	assert.Equal(t, int64(3), e.ID())
	assert.Equal(t, "b3f2c1d0-5e4f-4a3b-8c2d-1e0f9a8b7c6d", e.UUID())
	assert.Empty(t, e.Dirty())

	e.Set("name", "Acme")
	assert.False(t, e.IsDirty("name"))
	e.Set("name", "Acme Ltd")
	e.Set("abn", nil)
	assert.Equal(t, map[string]interface{}{"name": "Acme Ltd", "abn": nil}, e.Dirty())

	e.SyncOriginal()
	assert.Empty(t, e.Dirty())
}

func TestEntity_Map(t *testing.T) {
	e := FromRow("users", map[string]interface{}{
		"id":              int64(1),
		"uuid":            "b3f2c1d0-5e4f-4a3b-8c2d-1e0f9a8b7c6d",
		"password":        "secret",
		"pivot_role_id":   int64(2),
		"pivot_role_uuid": "0c5a4e2b-1f3d-4b6a-9e8c-7d2f1a0b3c4e",
	})
	e.Hide("id", "password", "pivot_role_id")
	child := FromRow("password_resets", map[string]interface{}{"uuid": "x"})
	e.SetRelation("password_resets", []*Entity{child})
	e.SetRelation("manager", (*Entity)(nil))

	m := e.Map()
	assert.NotContains(t, m, "id")
	assert.NotContains(t, m, "password")
	assert.NotContains(t, m, "pivot_role_uuid")
	assert.Equal(t, map[string]interface{}{"role_uuid": "0c5a4e2b-1f3d-4b6a-9e8c-7d2f1a0b3c4e"}, m["pivot"])
	assert.Nil(t, m["manager"])

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"uuid": "b3f2c1d0-5e4f-4a3b-8c2d-1e0f9a8b7c6d",
		"pivot": {"role_uuid": "0c5a4e2b-1f3d-4b6a-9e8c-7d2f1a0b3c4e"},
		"password_resets": [{"uuid": "x"}],
		"manager": null
	}`, string(data))
}

func TestSameValue(t *testing.T) {
	assert.True(t, SameValue(int64(5), float64(5)))
	assert.True(t, SameValue("5", 5))
	assert.True(t, SameValue(nil, nil))
	assert.False(t, SameValue(nil, ""))
	assert.False(t, SameValue("a", "b"))
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(0))
	assert.False(t, IsEmpty("x"))
}
