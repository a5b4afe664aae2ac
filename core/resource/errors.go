package resource

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/relabs-tech/restkit/core/schema"
)

// StatusCoder is implemented by all errors of the resource engine
type StatusCoder interface {
	StatusCode() int
}

// ValidationError is a client correctable error with messages by field
type ValidationError struct {
	Fields schema.FieldErrors
}

func (e *ValidationError) Error() string {
	return e.Fields.Error()
}

// StatusCode implements StatusCoder
func (e *ValidationError) StatusCode() int {
	return http.StatusUnprocessableEntity
}

// NotFoundError is returned when a referenced entity or association does not exist
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message == "" {
		return "record not found"
	}
	return e.Message
}

// StatusCode implements StatusCoder
func (e *NotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// InternalError is a defect or an infrastructure failure. Its cause is logged but
// never returned to the caller.
type InternalError struct {
	Code  int
	Cause error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("Error %d: %v", e.Code, e.Cause)
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

// StatusCode implements StatusCoder
func (e *InternalError) StatusCode() int {
	return http.StatusInternalServerError
}

// MethodNotAllowedError is returned by deliberately disabled endpoints
type MethodNotAllowedError struct{}

func (e *MethodNotAllowedError) Error() string {
	return "method not allowed"
}

// StatusCode implements StatusCoder
func (e *MethodNotAllowedError) StatusCode() int {
	return http.StatusMethodNotAllowed
}

// BadRequestError is returned for malformed requests
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

// StatusCode implements StatusCoder
func (e *BadRequestError) StatusCode() int {
	return http.StatusBadRequest
}

// SyncItemResult holds the validation errors of one item of a sync request. The
// errors are empty for successful items.
type SyncItemResult struct {
	Errors schema.FieldErrors `json:"errors"`
}

// SyncError is returned when at least one item of a sync request was invalid. It
// carries the result of every item in request order.
type SyncError struct {
	Items []SyncItemResult
}

func (e *SyncError) Error() string {
	failed := 0
	for _, item := range e.Items {
		if len(item.Errors) > 0 {
			failed++
		}
	}
	return fmt.Sprintf("%d of %d items are not valid", failed, len(e.Items))
}

// StatusCode implements StatusCoder
func (e *SyncError) StatusCode() int {
	return http.StatusUnprocessableEntity
}

func notFound(format string, a ...interface{}) error {
	return &NotFoundError{Message: fmt.Sprintf(format, a...)}
}

func internal(code int, err error) error {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie
	}
	return &InternalError{Code: code, Cause: err}
}

// classify maps persistence errors to the error taxonomy. Errors which already
// are part of the taxonomy are returned unchanged.
func classify(code int, err error) error {
	if err == nil {
		return nil
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return duplicate(pqErr.Constraint, pqErr.Detail)
		case "23503":
			return &NotFoundError{Message: pqErr.Message}
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return duplicate("", "")
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return &NotFoundError{}
	}
	// sqlite reports constraints in the message only
	msg := err.Error()
	if i := strings.Index(msg, "UNIQUE constraint failed: "); i >= 0 {
		column := strings.TrimSpace(msg[i+len("UNIQUE constraint failed: "):])
		if j := strings.IndexAny(column, " ("); j >= 0 {
			column = column[:j]
		}
		if strings.HasSuffix(column, ",") {
			// composite key
			column = ""
		}
		if k := strings.LastIndex(column, "."); k >= 0 {
			column = column[k+1:]
		}
		return duplicate(column, "")
	}
	if strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return &NotFoundError{}
	}
	return internal(code, err)
}

// duplicate returns a validation error for a unique violation, naming the field
// if the detail ("Key (email)=(x) already exists.") or the column reveals it
func duplicate(column, detail string) error {
	field := ""
	if strings.HasPrefix(detail, "Key (") {
		if end := strings.Index(detail, ")"); end > 5 {
			field = detail[5:end]
		}
	}
	if field == "" && column != "" && !strings.Contains(column, "_key") && !strings.HasPrefix(column, "idx_") {
		field = column
	}
	if field == "" || strings.Contains(field, ",") {
		field = "record"
	}
	fe := schema.FieldErrors{}
	fe.Add(field, fmt.Sprintf("The %s has already been taken.", humanize(field)))
	return &ValidationError{Fields: fe}
}

func humanize(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
