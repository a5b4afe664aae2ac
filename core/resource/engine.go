// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

// Package resource is the generic resource engine. It implements create, read,
// update and delete, parent scoped retrieval, many to many attach, detach and
// sync, pagination and sorting for any entity type of an entity.Catalog.
//
// Clients address entities by uuid only. Internal ids never leave the engine:
// inputs are translated from uuids to ids before persistence and every row read
// is translated back before it is returned.
package resource

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/relabs-tech/restkit/core"
	"github.com/relabs-tech/restkit/core/association"
	"github.com/relabs-tech/restkit/core/entity"
	"github.com/relabs-tech/restkit/core/identity"
)

// Builder is a builder helper for the Engine
type Builder struct {
	// Catalog holds the entity configuration. This is mandatory.
	Catalog *entity.Catalog
	// DB is the gorm database. This is mandatory.
	DB *gorm.DB
	// Validator validates the input of operations. Defaults to AcceptAll.
	Validator Validator
	// Notifier receives notifications about committed changes. This is optional.
	Notifier core.Notifier
	// PivotObservers are notified about pivot updates. This is optional.
	PivotObservers []association.PivotObserver
}

// Engine serves all entity types of a catalog
type Engine struct {
	catalog    *entity.Catalog
	db         *gorm.DB
	validator  Validator
	translator *identity.Translator
	attacher   *association.Attacher

	transactions *TransactionRunner
	relations    *RelationResolver
	shaper       *ResponseShaper

	resources map[string]*Resource
}

// New creates a new engine
func New(b *Builder) (*Engine, error) {
	if b.Catalog == nil {
		return nil, fmt.Errorf("resource engine needs a catalog")
	}
	if b.DB == nil {
		return nil, fmt.Errorf("resource engine needs a database")
	}
	validator := b.Validator
	if validator == nil {
		validator = AcceptAll{}
	}

	e := &Engine{
		catalog:      b.Catalog,
		db:           b.DB,
		validator:    validator,
		translator:   identity.NewTranslator(b.Catalog),
		attacher:     association.New(b.PivotObservers...),
		transactions: &TransactionRunner{db: b.DB, notifier: b.Notifier},
		relations:    &RelationResolver{catalog: b.Catalog},
		resources:    map[string]*Resource{},
	}
	e.shaper = &ResponseShaper{catalog: b.Catalog, translator: e.translator, relations: e.relations}

	for _, entityType := range b.Catalog.Types() {
		config, _ := b.Catalog.Config(entityType)
		e.resources[entityType] = &Resource{Type: entityType, config: config, engine: e}
	}
	return e, nil
}

// MustNew is New which panics on error
func MustNew(b *Builder) *Engine {
	e, err := New(b)
	if err != nil {
		panic(err)
	}
	return e
}

// Resource returns the resource of entityType, or nil if the type is unknown
func (e *Engine) Resource(entityType string) *Resource {
	return e.resources[entityType]
}

// Catalog returns the entity catalog of the engine
func (e *Engine) Catalog() *entity.Catalog {
	return e.catalog
}

// Attacher returns the many to many attacher of the engine
func (e *Engine) Attacher() *association.Attacher {
	return e.attacher
}

// Transaction runs fn in a transaction, see TransactionRunner.Run
func (e *Engine) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	return e.transactions.Run(ctx, fn)
}
