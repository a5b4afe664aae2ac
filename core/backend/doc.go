/*
Package backend implements the REST surface of the resource engine

The routes are generated from the entity catalog. Every entity type gets list,
create, read, update and delete routes, every parent resource of a type gets
the routes of the type as reached from the parent.

Example: the catalog

	{
	  "entities": [
	    {
	      "type": "clients",
	      "fillable": ["name"],
	      "relations": [
	        {"name": "contacts", "kind": "has_many", "related": "contacts"},
	        {"name": "users", "kind": "belongs_to_many", "related": "users", "pivot_table": "client_user"}
	      ]
	    },
	    {
	      "type": "contacts",
	      "fillable": ["name"],
	      "parents": {"clients": {"type": "clients", "accessor": "contacts"}}
	    },
	    {
	      "type": "users",
	      "fillable": ["email"],
	      "checkable": ["email"],
	      "parents": {"clients": {"type": "clients", "accessor": "users"}}
	    }
	  ]
	}

creates, among others, the following routes:

	GET /clients
	POST /clients
	GET /clients/{uuid}
	PATCH /clients/{uuid}
	DELETE /clients/{uuid}
	GET /clients/{parent_uuid}/contacts
	POST /clients/{parent_uuid}/contacts
	PUT /clients/{parent_uuid}/contacts           - sync, request body is an array
	DELETE /clients/{parent_uuid}/contacts        - request body {"uuids":[...]}
	POST /clients/{parent_uuid}/users/attach      - request body {"user_uuid": ...}
	GET /clients/{parent_uuid}/users/unassociated
	HEAD /users/{value}/email

Errors

Validation errors are answered with 422 and a map from field to messages, unknown
records with 404 {"error":"Record not found"}. Internal errors are logged with their
code and answered with 500 {"error":"An internal error has occurred"}.

Lists which are requested with sort_by, per_page or page are paginated, the total
count is returned in the X-Total-Count header.
*/
package backend
