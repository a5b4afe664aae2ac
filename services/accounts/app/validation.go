package app

import (
	"embed"
	"io/fs"

	"github.com/relabs-tech/restkit/core"
	"github.com/relabs-tech/restkit/core/resource"
	"github.com/relabs-tech/restkit/core/schema"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// passwordSchema validates the body of password changes
const passwordSchema = "passwords.set"

func newSchemaValidator() (*schema.Validator, error) {
	sub, err := fs.Sub(schemaFiles, "schemas")
	if err != nil {
		return nil, err
	}
	return schema.NewValidatorFromFS(sub)
}

// validationRules returns the rules by entity type and operation
func validationRules() map[string]map[core.Operation]resource.Rules {
	return map[string]map[core.Operation]resource.Rules{
		"users": {
			core.OperationCreate: {Schema: "users.create", Unique: []string{"email"}},
			core.OperationUpdate: {Schema: "users.update", Unique: []string{"email"}},
		},
		"states": {
			core.OperationCreate: {Schema: "states.create", Unique: []string{"name", "short_name"}},
			core.OperationUpdate: {Schema: "states.update", Unique: []string{"name", "short_name"}},
		},
		"password_resets": {
			core.OperationCreate: {},
			core.OperationUpdate: {},
		},
		"clients": {
			core.OperationCreate:   {Schema: "clients.create", Unique: []string{"abn"}},
			core.OperationUpdate:   {Schema: "clients.update", Unique: []string{"abn"}},
			core.OperationPaginate: {Schema: "clients.paginate"},
		},
		"contacts": {
			core.OperationCreate: {Schema: "contacts.create"},
			core.OperationUpdate: {Schema: "contacts.update"},
		},
		"roles": {
			core.OperationCreate: {Schema: "roles.create", Unique: []string{"name"}},
			core.OperationUpdate: {Schema: "roles.create", Unique: []string{"name"}},
		},
	}
}
