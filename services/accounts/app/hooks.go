package app

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/relabs-tech/restkit/core/entity"
)

type userHooks struct {
	entity.NopHooks
}

// PreparePivotData passes the role of a user within a client on to the pivot
func (userHooks) PreparePivotData(_ context.Context, input map[string]interface{}, parentResource string) map[string]interface{} {
	pivot := map[string]interface{}{}
	if role, ok := input["role_uuid"]; ok && parentResource == "clients" {
		pivot["role_uuid"] = role
	}
	return pivot
}

type clientHooks struct {
	entity.NopHooks
}

// Filter narrows paginated clients to names starting with the search input
func (clientHooks) Filter(query *gorm.DB, input map[string]interface{}) *gorm.DB {
	search, _ := input["search"].(string)
	if search == "" {
		return query
	}
	return query.Where("clients.name LIKE ?", search+"%")
}

// SortBy sorts clients by the name of their state
func (clientHooks) SortBy(query *gorm.DB, sortBy string) (*gorm.DB, string) {
	if sortBy != "state_name" {
		return query, sortBy
	}
	return query.Joins("LEFT JOIN states ON states.id = clients.state_id"), "states.name"
}

// hashPassword is the mutator of user passwords
func hashPassword(value interface{}) (interface{}, error) {
	password, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("password is a %T", value)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return string(hash), nil
}

func checkPassword(hash interface{}, password string) bool {
	var h []byte
	switch v := hash.(type) {
	case string:
		h = []byte(v)
	case []byte:
		h = v
	default:
		return false
	}
	return bcrypt.CompareHashAndPassword(h, []byte(password)) == nil
}
