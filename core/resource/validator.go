package resource

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/relabs-tech/restkit/core"
	"github.com/relabs-tech/restkit/core/entity"
	"github.com/relabs-tech/restkit/core/schema"
)

// Validator validates the input of an operation. It returns nil, a
// *ValidationError or any other error, which is treated as internal.
// current is the entity being updated, or nil.
type Validator interface {
	Validate(ctx context.Context, tx *gorm.DB, entityType string, operation core.Operation, input map[string]interface{}, current *entity.Entity) error
}

// Rules are the validation rules of one entity type and operation
type Rules struct {
	// Schema is the $id of the JSON schema the input must satisfy. Optional.
	Schema string
	// Unique lists fields whose value must not be used by another row of the type
	Unique []string
}

// SchemaValidator validates input against JSON schemas and database uniqueness.
// Create and update rules are mandatory for every entity type which is
// created or updated.
type SchemaValidator struct {
	Schemas *schema.Validator
	Rules   map[string]map[core.Operation]Rules
}

// Validate implements Validator
func (v *SchemaValidator) Validate(ctx context.Context, tx *gorm.DB, entityType string, operation core.Operation, input map[string]interface{}, current *entity.Entity) error {
	rules, ok := v.Rules[entityType][operation]
	if !ok {
		if operation == core.OperationCreate || operation == core.OperationUpdate {
			return fmt.Errorf("no %s validation rules for %s", operation, entityType)
		}
		return nil
	}

	fe := schema.FieldErrors{}
	if rules.Schema != "" {
		if v.Schemas == nil {
			return fmt.Errorf("no schemas for %s %s", entityType, operation)
		}
		errs, err := v.Schemas.ValidateFields(input, rules.Schema)
		if err != nil {
			return err
		}
		for field, messages := range errs {
			fe[field] = append(fe[field], messages...)
		}
	}

	for _, field := range rules.Unique {
		value, ok := input[field]
		if !ok || entity.IsEmpty(value) || len(fe[field]) > 0 {
			continue
		}
		q := tx.WithContext(ctx).Table(entityType).Where(eq(entityType, field, value))
		if current != nil {
			q = q.Not(eq(entityType, "id", current.ID()))
		}
		var count int64
		if err := q.Count(&count).Error; err != nil {
			return fmt.Errorf("cannot check uniqueness of %s.%s: %w", entityType, field, err)
		}
		if count > 0 {
			fe.Add(field, fmt.Sprintf("The %s has already been taken.", humanize(field)))
		}
	}

	if len(fe) > 0 {
		return &ValidationError{Fields: fe}
	}
	return nil
}

// AcceptAll is a Validator accepting any input
type AcceptAll struct{}

// Validate implements Validator
func (AcceptAll) Validate(context.Context, *gorm.DB, string, core.Operation, map[string]interface{}, *entity.Entity) error {
	return nil
}
