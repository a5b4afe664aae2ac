package backend

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/restkit/core"
	"github.com/relabs-tech/restkit/core/entity"
	"github.com/relabs-tech/restkit/core/logger"
	"github.com/relabs-tech/restkit/core/resource"
)

// createChildResources adds the routes of an entity type as reached from each of
// its parent resources. For a parent resource "clients" with accessor "users":
//
//	GET /clients/{parent_uuid}/users                  list, paginated or with_trashed
//	POST /clients/{parent_uuid}/users                 create under the parent
//	PUT /clients/{parent_uuid}/users                  sync (has many only)
//	DELETE /clients/{parent_uuid}/users               delete or detach {"uuids":[...]}
//	POST /clients/{parent_uuid}/users/attach          attach existing (many to many only)
//	GET /clients/{parent_uuid}/users/unassociated     list not attached (many to many only)
//	GET /clients/{parent_uuid}/users/{uuid}           read under the parent
//	PATCH,PUT /clients/{parent_uuid}/users/{uuid}     update under the parent
//
// and, if clients themselves are reached from a parent resource "states" with
// accessor "clients", for many to many relations
//
//	POST /states/{grandparent_uuid}/clients/{parent_uuid}/users   attach {"uuids":[...]}
func (b *Backend) createChildResources(res *resource.Resource) {
	if !b.allows(res.Type, core.OperationList) && !b.allows(res.Type, core.OperationCreate) &&
		!b.allows(res.Type, core.OperationAttach) && !b.allows(res.Type, core.OperationDetach) &&
		!b.allows(res.Type, core.OperationUpdate) && !b.allows(res.Type, core.OperationDelete) {
		return
	}
	for _, name := range res.Config().ParentResources() {
		p, _ := res.Config().Parent(name)
		b.createChildResource(res, p)
	}
}

func (b *Backend) createChildResource(res *resource.Resource, p entity.Parent) {
	rlog := logger.Default()
	accessor := p.Relation.Name()
	listRoute := "/" + p.Resource + "/{parent_uuid" + uuidVar + "/" + accessor
	itemRoute := listRoute + "/{uuid" + uuidVar
	_, manyToMany := p.Relation.(*entity.BelongsToMany)
	rlog.Debugln("create child resource:", res.Type, "of", p.Resource)

	if manyToMany && b.allows(res.Type, core.OperationAttach) {
		rlog.Debugln("  handle route:", listRoute+"/attach", "POST")
		b.router.HandleFunc(listRoute+"/attach", func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method)
			input, err := DecodeObject(r)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			attached, err := res.AttachExistingChildToParent(r.Context(), p.Resource, mux.Vars(r)["parent_uuid"], input)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			WriteJSON(w, http.StatusCreated, attached)
		}).Methods(http.MethodPost)

		b.createDepthTwoResource(res, p, accessor)
	}

	if manyToMany && b.allows(res.Type, core.OperationList) {
		rlog.Debugln("  handle route:", listRoute+"/unassociated", "GET")
		b.router.HandleFunc(listRoute+"/unassociated", func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method)
			entities, err := res.GetAllNotAssociatedToParent(r.Context(), p.Resource, mux.Vars(r)["parent_uuid"])
			if err != nil {
				WriteError(w, r, err)
				return
			}
			writeList(w, entities)
		}).Methods(http.MethodGet)
	}

	if b.allows(res.Type, core.OperationList) {
		rlog.Debugln("  handle route:", listRoute, "GET")
		b.router.HandleFunc(listRoute, func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method)
			parentUUID := mux.Vars(r)["parent_uuid"]
			params, paginated, err := pageParams(r)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			if paginated {
				page, err := res.GetPaginated(r.Context(), p.Resource, parentUUID, params)
				if err != nil {
					WriteError(w, r, err)
					return
				}
				writePage(w, page)
				return
			}
			entities, err := res.GetAllForParent(r.Context(), p.Resource, parentUUID, withTrashed(r))
			if err != nil {
				WriteError(w, r, err)
				return
			}
			writeList(w, entities)
		}).Methods(http.MethodGet)
	}

	if b.allows(res.Type, core.OperationCreate) {
		rlog.Debugln("  handle route:", listRoute, "POST")
		b.router.HandleFunc(listRoute, func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method)
			input, err := DecodeObject(r)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			created, err := res.CreateOneUnderParent(r.Context(), p.Resource, mux.Vars(r)["parent_uuid"], input)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			WriteJSON(w, http.StatusCreated, created)
		}).Methods(http.MethodPost)
	}

	if !manyToMany && b.allows(res.Type, core.OperationUpdate) {
		rlog.Debugln("  handle route:", listRoute, "PUT")
		b.router.HandleFunc(listRoute, func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method)
			items, err := decodeArray(r)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			synced, err := res.Sync(r.Context(), p.Resource, mux.Vars(r)["parent_uuid"], items)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			writeList(w, synced)
		}).Methods(http.MethodPut)
	}

	operation := core.OperationDelete
	if manyToMany {
		operation = core.OperationDetach
	}
	if b.allows(res.Type, operation) {
		rlog.Debugln("  handle route:", listRoute, "DELETE")
		b.router.HandleFunc(listRoute, func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method)
			uuids, err := decodeUUIDs(r)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			parentUUID := mux.Vars(r)["parent_uuid"]
			if manyToMany {
				err = res.DetachChildrenFromParent(r.Context(), p.Resource, parentUUID, uuids)
			} else {
				err = res.DeleteChildrenBelongingToParent(r.Context(), p.Resource, parentUUID, uuids)
			}
			if err != nil {
				WriteError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}).Methods(http.MethodDelete)
	}

	if b.allows(res.Type, core.OperationRead) {
		rlog.Debugln("  handle route:", itemRoute, "GET")
		b.router.HandleFunc(itemRoute, func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method)
			vars := mux.Vars(r)
			e, err := res.GetOneUnderParent(r.Context(), p.Resource, vars["parent_uuid"], vars["uuid"])
			if err != nil {
				WriteError(w, r, err)
				return
			}
			WriteJSON(w, http.StatusOK, e)
		}).Methods(http.MethodGet)
	}

	if b.allows(res.Type, core.OperationUpdate) {
		rlog.Debugln("  handle route:", itemRoute, "PATCH,PUT")
		b.router.HandleFunc(itemRoute, func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method)
			input, err := DecodeObject(r)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			vars := mux.Vars(r)
			updated, err := res.UpdateOneUnderParent(r.Context(), p.Resource, vars["parent_uuid"], vars["uuid"], input)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			WriteJSON(w, http.StatusOK, updated)
		}).Methods(http.MethodPatch, http.MethodPut)
	}
}

func (b *Backend) createDepthTwoResource(res *resource.Resource, p entity.Parent, accessor string) {
	parentConfig := b.engine.Resource(p.Type).Config()
	for _, name := range parentConfig.ParentResources() {
		gp, _ := parentConfig.Parent(name)
		route := "/" + gp.Resource + "/{grandparent_uuid" + uuidVar + "/" + gp.Relation.Name() +
			"/{parent_uuid" + uuidVar + "/" + accessor
		logger.Default().Debugln("  handle route:", route, "POST")
		b.router.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method)
			uuids, err := decodeUUIDs(r)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			vars := mux.Vars(r)
			parent, err := res.AttachMultipleToDepthTwoParent(r.Context(), gp.Resource, vars["grandparent_uuid"],
				p.Resource, vars["parent_uuid"], uuids)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			WriteJSON(w, http.StatusCreated, parent)
		}).Methods(http.MethodPost)
	}
}
