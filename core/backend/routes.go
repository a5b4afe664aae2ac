package backend

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/restkit/core"
	"github.com/relabs-tech/restkit/core/entity"
	"github.com/relabs-tech/restkit/core/identity"
	"github.com/relabs-tech/restkit/core/logger"
	"github.com/relabs-tech/restkit/core/resource"
)

const uuidVar = ":" + identity.UUIDPattern + "}"

func writeList(w http.ResponseWriter, entities []*entity.Entity) {
	if entities == nil {
		entities = []*entity.Entity{}
	}
	WriteJSON(w, http.StatusOK, entities)
}

// createEntityResource adds the routes of an entity type:
//
//	GET /{type}                     list, filtered or paginated
//	POST /{type}                    create
//	HEAD /{type}/{value}/{field}    check existence by a checkable field
//	GET /{type}/{uuid}              read
//	PATCH,PUT /{type}/{uuid}        update
//	DELETE /{type}/{uuid}           delete
func (b *Backend) createEntityResource(res *resource.Resource) {
	rlog := logger.Default()
	listRoute := "/" + res.Type
	itemRoute := listRoute + "/{uuid" + uuidVar
	rlog.Debugln("create entity resource:", res.Type)

	if b.allows(res.Type, core.OperationList) || b.allows(res.Type, core.OperationPaginate) {
		rlog.Debugln("  handle route:", listRoute, "GET")
		b.router.HandleFunc(listRoute, func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method)
			params, paginated, err := pageParams(r)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			if paginated {
				page, err := res.GetPaginated(r.Context(), "", "", params)
				if err != nil {
					WriteError(w, r, err)
					return
				}
				writePage(w, page)
				return
			}
			var conditions []resource.Condition
			for _, filter := range r.URL.Query()["filter"] {
				condition, err := resource.ParseCondition(filter)
				if err != nil {
					WriteError(w, r, err)
					return
				}
				conditions = append(conditions, condition)
			}
			entities, err := res.GetAll(r.Context(), conditions)
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
			created, err := res.Create(r.Context(), input)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			WriteJSON(w, http.StatusCreated, created)
		}).Methods(http.MethodPost)
	}

	if checkable := res.Config().Checkable; len(checkable) > 0 && b.allows(res.Type, core.OperationRead) {
		quoted := make([]string, len(checkable))
		for i, field := range checkable {
			quoted[i] = regexp.QuoteMeta(field)
		}
		checkRoute := listRoute + "/{value}/{field:(?:" + strings.Join(quoted, "|") + ")}"
		rlog.Debugln("  handle route:", checkRoute, "HEAD")
		b.router.HandleFunc(checkRoute, func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method)
			if r.Method != http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			vars := mux.Vars(r)
			found, err := res.CheckEntityByField(r.Context(), vars["field"], vars["value"])
			switch {
			case err != nil:
				w.WriteHeader(StatusOf(r, err))
			case found:
				w.WriteHeader(http.StatusOK)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}).Methods(http.MethodHead, http.MethodGet)
	}

	if b.allows(res.Type, core.OperationRead) {
		rlog.Debugln("  handle route:", itemRoute, "GET")
		b.router.HandleFunc(itemRoute, func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method)
			e, err := res.GetOne(r.Context(), mux.Vars(r)["uuid"])
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
			updated, err := res.UpdateOne(r.Context(), mux.Vars(r)["uuid"], input)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			WriteJSON(w, http.StatusOK, updated)
		}).Methods(http.MethodPatch, http.MethodPut)
	}

	if b.allows(res.Type, core.OperationDelete) {
		rlog.Debugln("  handle route:", itemRoute, "DELETE")
		b.router.HandleFunc(itemRoute, func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method)
			if err := res.DeleteOne(r.Context(), mux.Vars(r)["uuid"]); err != nil {
				WriteError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}).Methods(http.MethodDelete)
	}
}
