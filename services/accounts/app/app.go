// Package app is the accounts service: users with password resets and token
// based authentication, the Australian states, and clients with their contacts
// and members.
//
// Public routes:
//
//	GET  /auth/jwt/login                              login with basic auth
//	GET  /auth/jwt/third, /auth/jwt/token             disabled, always 405
//	POST /register                                    register a new user
//	HEAD /users/{email}/email                         check if an email is taken
//	POST /users/{email}/password-resets               create a password reset
//	HEAD /users/{email}/password-resets/{uuid}        validate a password reset
//	POST /users/{email}/password-resets/{uuid}        set a new password
//	PUT  /users/{email}/password-resets/{uuid}        reset the password
//
// All other routes need a bearer token. They are the resource routes of the
// entity types plus GET /auth/jwt/refresh.
package app

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/relabs-tech/restkit/core"
	"github.com/relabs-tech/restkit/core/access"
	"github.com/relabs-tech/restkit/core/backend"
	"github.com/relabs-tech/restkit/core/entity"
	"github.com/relabs-tech/restkit/core/identity"
	"github.com/relabs-tech/restkit/core/resource"
	"github.com/relabs-tech/restkit/core/schema"
)

// App is the accounts service
type App struct {
	engine  *resource.Engine
	issuer  *access.TokenIssuer
	schemas *schema.Validator
}

// Builder is a builder helper for the App
type Builder struct {
	// DB is the database. This is mandatory.
	DB *gorm.DB
	// Router is the router the routes are added to. This is mandatory.
	Router *mux.Router
	// Issuer issues and verifies the tokens. This is mandatory.
	Issuer *access.TokenIssuer
	// Notifier receives committed changes. This is optional.
	Notifier core.Notifier
	// SkipMigration skips the migration of the database tables
	SkipMigration bool
}

// routeOperations are the operations exposed through the authenticated resource routes
var routeOperations = map[string][]core.Operation{
	"users": {core.OperationCreate, core.OperationRead, core.OperationUpdate, core.OperationDelete,
		core.OperationList, core.OperationPaginate, core.OperationAttach, core.OperationDetach},
	"states": {core.OperationList},
	"clients": {core.OperationCreate, core.OperationRead, core.OperationUpdate, core.OperationDelete,
		core.OperationList, core.OperationPaginate},
	"contacts": {core.OperationCreate, core.OperationRead, core.OperationUpdate, core.OperationDelete,
		core.OperationList, core.OperationPaginate},
	"roles": {core.OperationRead, core.OperationList},
}

// New creates the accounts service and adds its routes to the router
func New(ab *Builder) (*App, error) {
	if ab.DB == nil || ab.Router == nil || ab.Issuer == nil {
		return nil, fmt.Errorf("accounts app needs a database, a router and a token issuer")
	}
	if !ab.SkipMigration {
		if err := Migrate(ab.DB); err != nil {
			return nil, fmt.Errorf("cannot migrate: %w", err)
		}
	}

	schemas, err := newSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("cannot load schemas: %w", err)
	}
	catalog, err := entity.NewCatalog(&entity.CatalogBuilder{
		Config: entityConfiguration,
		Hooks: map[string]entity.Hooks{
			"users":   userHooks{},
			"clients": clientHooks{},
		},
		Mutators: map[string]map[string]entity.Mutator{
			"users": {"password": hashPassword},
		},
	})
	if err != nil {
		return nil, err
	}
	engine, err := resource.New(&resource.Builder{
		Catalog:   catalog,
		DB:        ab.DB,
		Validator: &resource.SchemaValidator{Schemas: schemas, Rules: validationRules()},
		Notifier:  ab.Notifier,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		engine:  engine,
		issuer:  ab.Issuer,
		schemas: schemas,
	}
	a.handlePublicRoutes(ab.Router)

	authenticated := ab.Router.NewRoute().Subrouter()
	authenticated.Use(access.NewJwtMiddleware(ab.Issuer))
	authenticated.HandleFunc("/auth/jwt/refresh", a.refresh).Methods(http.MethodGet)
	backend.New(&backend.Builder{
		Engine:     engine,
		Router:     authenticated,
		Operations: routeOperations,
	})
	return a, nil
}

// MustNew is New which panics on error
func MustNew(ab *Builder) *App {
	a, err := New(ab)
	if err != nil {
		panic(err)
	}
	return a
}

// Engine returns the resource engine of the service
func (a *App) Engine() *resource.Engine {
	return a.engine
}

func (a *App) handlePublicRoutes(router *mux.Router) {
	router.HandleFunc("/auth/jwt/login", a.login).Methods(http.MethodGet)
	router.HandleFunc("/auth/jwt/third", a.methodNotAllowed).Methods(http.MethodGet)
	router.HandleFunc("/auth/jwt/token", a.methodNotAllowed).Methods(http.MethodGet)
	router.HandleFunc("/register", a.register).Methods(http.MethodPost)
	router.HandleFunc("/users/{value}/{field:email}", a.checkUser).Methods(http.MethodHead, http.MethodGet)

	resets := "/users/{user_email}/password-resets"
	reset := resets + "/{uuid:" + identity.UUIDPattern + "}"
	router.HandleFunc(resets, a.createPasswordReset).Methods(http.MethodPost)
	router.HandleFunc(reset, a.validatePasswordReset).Methods(http.MethodHead, http.MethodGet)
	router.HandleFunc(reset, a.setNewPassword).Methods(http.MethodPost)
	router.HandleFunc(reset, a.resetPassword).Methods(http.MethodPut)
}

func (a *App) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	backend.WriteError(w, r, &resource.MethodNotAllowedError{})
}

func (a *App) checkUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	vars := mux.Vars(r)
	found, err := a.engine.Resource("users").CheckEntityByField(r.Context(), vars["field"], vars["value"])
	switch {
	case err != nil:
		w.WriteHeader(backend.StatusOf(r, err))
	case found:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
