// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package core

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jinzhu/inflection"
)

// Operation represents a resource operation, one of Create, Read, Update, Delete, List, Paginate
type Operation string

// all supported resource operations
const (
	OperationCreate   Operation = "create"
	OperationRead     Operation = "read"
	OperationUpdate   Operation = "update"
	OperationDelete   Operation = "delete"
	OperationList     Operation = "list"
	OperationPaginate Operation = "paginate"
	OperationAttach   Operation = "attach"
	OperationDetach   Operation = "detach"
)

// UnmarshalJSON is a custom JSON unmarshaller
func (o *Operation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*o = Operation(s)
	switch *o {
	case OperationCreate, OperationRead, OperationUpdate, OperationDelete, OperationList,
		OperationPaginate, OperationAttach, OperationDetach:
		return nil
	default:
		return fmt.Errorf("%s is not valid Operation", s)
	}
}

// Plural returns the plural form of the passed singular string.
//
// This is the algorithm used to derive table names from conventional
// foreign key fields, e.g. "client_id" refers to table "clients". It follows
// the inflections gorm uses for its own table names.
func Plural(singular string) string {
	return inflection.Plural(singular)
}

// Singular is the inverse of Plural
func Singular(plural string) string {
	return inflection.Singular(plural)
}
