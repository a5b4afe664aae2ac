package schema_test

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/restkit/core/schema"
)

const (
	ref1 = `{ "type" : "string" ,
		      "$id" : "http://some_host.com/string.json"}`
	ref2 = `{ "$id" : "http://some_host.com/maxlength.json",
	 		  "maxLength" : 5 }`

	topLevel1 = `
	{ "$id" : "http://some_host.com/top1.json",
	  "allOf" : [
		{ "$ref" : "http://some_host.com/string.json" },
		{ "$ref" : "http://some_host.com/maxlength.json" }
		]
	}`
	topLevel2 = `
	{ "$id" : "http://some_host.com/top2.json",
	  "allOf" : [
 		{ "$ref" : "http://some_host.com/string.json" },
 		{ "type": "string", "minLength": 3 }
	  ]
	}`

	usersCreate = `{
		"$id": "users.create",
		"type": "object",
		"required": ["first_name", "email", "password"],
		"properties": {
			"first_name": {"type": "string", "maxLength": 255},
			"email": {"type": "string", "format": "email", "maxLength": 255},
			"password": {"type": "string", "minLength": 4}
		}
	}`
)

func TestValidateString(t *testing.T) {
	v, err := schema.NewValidator([]string{topLevel1, topLevel2}, []string{ref1, ref2})
	require.NoError(t, err)

	schemaID1 := "http://some_host.com/top1.json"
	schemaID2 := "http://some_host.com/top2.json"

	assert.NoError(t, v.ValidateString(`"short"`, schemaID1))
	assert.Error(t, v.ValidateString(`"a very long string"`, schemaID1))
	assert.NoError(t, v.ValidateString(`"a very long string"`, schemaID2))
	assert.Error(t, v.ValidateString(`"ab"`, schemaID2))
	assert.Error(t, v.ValidateString(`"ab"`, "http://some_host.com/unknown.json"))
}

func TestHasSchema(t *testing.T) {
	v, err := schema.NewValidator([]string{topLevel1, topLevel2}, []string{ref1, ref2})
	require.NoError(t, err)

	assert.True(t, v.HasSchema("http://some_host.com/top1.json"))
	assert.True(t, v.HasSchema("http://some_host.com/top2.json"))
	assert.False(t, v.HasSchema("http://some_host.com/unknownscehma.json"))
}

func TestNewValidator_MissingID(t *testing.T) {
	_, err := schema.NewValidator([]string{`{"type": "string"}`}, nil)
	assert.Error(t, err)
}

func TestValidateFields(t *testing.T) {
	v, err := schema.NewValidator([]string{usersCreate}, nil)
	require.NoError(t, err)

	fe, err := v.ValidateFields(map[string]interface{}{
		"email":    "not-an-email",
		"password": "abc",
	}, "users.create")
	require.NoError(t, err)
	assert.Equal(t, schema.FieldErrors{
		"first_name": {"The first name field is required."},
		"email":      {"The email must be a valid email address."},
		"password":   {"The password must be at least 4 characters."},
	}, fe)
	assert.Contains(t, fe.Error(), "first_name")

	fe, err = v.ValidateFields(map[string]interface{}{
		"first_name": "Jane",
		"email":      "jane@example.com",
		"password":   "secret",
	}, "users.create")
	require.NoError(t, err)
	assert.Nil(t, fe)

	_, err = v.ValidateFields(map[string]interface{}{}, "users.update")
	assert.Error(t, err)
}

func TestNewValidatorFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"users.create.json": {Data: []byte(usersCreate)},
		"README.md":         {Data: []byte("not a schema")},
	}
	v, err := schema.NewValidatorFromFS(fsys)
	require.NoError(t, err)
	assert.True(t, v.HasSchema("users.create"))

	fsys["refs/string.json"] = &fstest.MapFile{Data: []byte(ref1)}
	fsys["top1.json"] = &fstest.MapFile{Data: []byte(`{"$id": "top1", "allOf": [{"$ref": "http://some_host.com/string.json"}]}`)}
	v, err = schema.NewValidatorFromFS(fsys)
	require.NoError(t, err)
	assert.NoError(t, v.ValidateString(`"x"`, "top1"))
	assert.Error(t, v.ValidateString(`5`, "top1"))
}
