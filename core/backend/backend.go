// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package backend

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/restkit/core"
	"github.com/relabs-tech/restkit/core/logger"
	"github.com/relabs-tech/restkit/core/resource"
)

// Backend is the generic rest backend
type Backend struct {
	engine     *resource.Engine
	router     *mux.Router
	operations map[string][]core.Operation
}

// Builder is a builder helper for the Backend
type Builder struct {
	// Engine is the resource engine. This is mandatory.
	Engine *resource.Engine
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// Operations restricts the routes to the listed entity types and operations. Types
	// not listed get no routes. If nil, all operations of all types are routed.
	Operations map[string][]core.Operation
}

// New realizes the actual backend and adds the routes of all entity types to the router
func New(bb *Builder) *Backend {
	if bb.Engine == nil {
		panic("Engine is missing")
	}
	if bb.Router == nil {
		panic("Router is missing")
	}
	for entityType := range bb.Operations {
		if bb.Engine.Resource(entityType) == nil {
			panic("operations for unknown entity type " + entityType)
		}
	}

	b := &Backend{
		engine:     bb.Engine,
		router:     bb.Router,
		operations: bb.Operations,
	}
	b.handleRoutes()
	return b
}

// Engine returns the resource engine
func (b *Backend) Engine() *resource.Engine {
	return b.engine
}

// Router returns the router
func (b *Backend) Router() *mux.Router {
	return b.router
}

func (b *Backend) allows(entityType string, operation core.Operation) bool {
	if b.operations == nil {
		return true
	}
	for _, op := range b.operations[entityType] {
		if op == operation {
			return true
		}
	}
	return false
}

func (b *Backend) handleRoutes() {
	rlog := logger.Default()
	rlog.Debugln("backend: HandleRoutes")

	b.handleVersion()
	if b.router.NotFoundHandler == nil {
		// malformed uuids never match a route
		b.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			WriteError(w, r, &resource.NotFoundError{})
		})
	}
	catalog := b.engine.Catalog()
	// children first, their more specific routes must win over the item routes of their parents
	for _, entityType := range catalog.Types() {
		b.createChildResources(b.engine.Resource(entityType))
	}
	for _, entityType := range catalog.Types() {
		b.createEntityResource(b.engine.Resource(entityType))
	}
}
