package core

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
)

func TestOperations_JSON_Unmarshalling(t *testing.T) {

	type Object struct {
		Operations []Operation `json:"operations"`
	}
	var object Object
	jsonRead := `{"operations":["create","read","update","list","paginate"]}`
	err := json.Unmarshal([]byte(jsonRead), &object)
	if err != nil {
		t.Fatal(err)
	}
	assert.Len(t, object.Operations, 5)

	jsonRead = `{"operations":["invalid"]}`
	err = json.Unmarshal([]byte(jsonRead), &object)
	if err == nil {
		t.Fatal("invalid operation accepted")
	}
}

func TestPlural(t *testing.T) {
	tests := map[string]string{
		"client":         "clients",
		"user":           "users",
		"password_reset": "password_resets",
		"company":        "companies",
		"key":            "keys",
		"child":          "children",
		"address":        "addresses",
		"state":          "states",
		"status":         "statuses",
		"house":          "houses",
		"role":           "roles",
	}
	for singular, plural := range tests {
		assert.Equal(t, plural, Plural(singular), singular)
		assert.Equal(t, singular, Singular(plural), plural)
	}
}
