package app

// entityConfiguration declares the entity types of the accounts service
const entityConfiguration = `
{
	"entities": [
		{
			"type": "users",
			"fillable": ["first_name", "last_name", "email", "password", "phone"],
			"hidden": ["password", "remember_token"],
			"checkable": ["email"],
			"soft_deletes": true,
			"relations": [
				{"name": "password_resets", "kind": "has_many", "related": "password_resets"},
				{"name": "clients", "kind": "belongs_to_many", "related": "clients", "pivot_table": "client_user", "pivot_columns": ["role_id"]}
			],
			"parents": {
				"clients": {"type": "clients", "accessor": "users"}
			}
		},
		{
			"type": "states",
			"fillable": ["name", "short_name"],
			"soft_deletes": true,
			"relations": [
				{"name": "clients", "kind": "has_many", "related": "clients"}
			]
		},
		{
			"type": "password_resets",
			"fillable": [],
			"with": ["user"],
			"soft_deletes": true,
			"relations": [
				{"name": "user", "kind": "belongs_to", "related": "users"}
			],
			"parents": {
				"users": {"type": "users", "accessor": "password_resets"}
			}
		},
		{
			"type": "clients",
			"fillable": ["name", "abn", "state_uuid", "owner_uuid", "external_reference_id"],
			"nullable_on_empty": ["abn"],
			"sortable": ["state_name"],
			"soft_deletes": true,
			"relations": [
				{"name": "state", "kind": "belongs_to", "related": "states"},
				{"name": "contacts", "kind": "has_many", "related": "contacts"},
				{"name": "users", "kind": "belongs_to_many", "related": "users", "pivot_table": "client_user", "pivot_columns": ["role_id"]}
			],
			"parents": {
				"states": {"type": "states", "accessor": "clients"}
			},
			"unconventional_foreign_keys": {
				"owner_id": {"table": "users", "rename": "owner_uuid", "keep_hidden": true},
				"owner_uuid": {"table": "users", "rename": "owner_id"}
			},
			"non_foreign_keys": ["external_reference_id"]
		},
		{
			"type": "contacts",
			"fillable": ["name", "email", "phone"],
			"soft_deletes": true,
			"parents": {
				"clients": {"type": "clients", "accessor": "contacts"}
			}
		},
		{
			"type": "roles",
			"fillable": ["name"]
		}
	]
}
`
