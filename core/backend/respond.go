package backend

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/restkit/core/logger"
	"github.com/relabs-tech/restkit/core/resource"
)

const contentTypeJSON = "application/json; charset=utf-8"

type errorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes body as JSON with status
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "Error 4901", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	w.Write(data)
}

// WriteError translates err into status and body. Internal errors are logged
// and never leak to the caller.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	rlog := logger.FromContext(r.Context())

	var ve *resource.ValidationError
	var se *resource.SyncError
	var nf *resource.NotFoundError
	var br *resource.BadRequestError
	var mna *resource.MethodNotAllowedError
	var ie *resource.InternalError
	switch {
	case errors.As(err, &ve):
		WriteJSON(w, ve.StatusCode(), ve.Fields)
	case errors.As(err, &se):
		WriteJSON(w, se.StatusCode(), se.Items)
	case errors.As(err, &nf):
		rlog.Debugln("not found:", nf)
		WriteJSON(w, nf.StatusCode(), errorResponse{Error: "Record not found"})
	case errors.As(err, &br):
		WriteJSON(w, br.StatusCode(), errorResponse{Error: br.Message})
	case errors.As(err, &mna):
		WriteJSON(w, mna.StatusCode(), errorResponse{Error: "method not allowed"})
	case errors.As(err, &ie):
		rlog.WithError(ie.Cause).Errorf("Error %d: %s %s", ie.Code, r.Method, r.URL.Path)
		WriteJSON(w, ie.StatusCode(), errorResponse{Error: "An internal error has occurred"})
	default:
		rlog.WithError(err).Errorf("Error 4900: %s %s", r.Method, r.URL.Path)
		WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "An internal error has occurred"})
	}
}

// StatusOf returns the status code of err for body-less responses
func StatusOf(r *http.Request, err error) int {
	var sc resource.StatusCoder
	if errors.As(err, &sc) {
		if sc.StatusCode() == http.StatusInternalServerError {
			logger.FromContext(r.Context()).WithError(err).Errorln("Error 4902: HEAD", r.URL.Path)
		}
		return sc.StatusCode()
	}
	logger.FromContext(r.Context()).WithError(err).Errorln("Error 4902: HEAD", r.URL.Path)
	return http.StatusInternalServerError
}

func badRequest(message string) error {
	return &resource.BadRequestError{Message: message}
}

// decodeBody decodes the JSON request body into v. Numbers are kept as json.Number.
func decodeBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("Request body is empty")
		}
		return badRequest("Request body is not valid JSON")
	}
	return nil
}

// DecodeObject decodes a JSON object request body
func DecodeObject(r *http.Request) (map[string]interface{}, error) {
	var body map[string]interface{}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, badRequest("Request body must be an object")
	}
	return body, nil
}

// decodeArray decodes a JSON array of objects request body
func decodeArray(r *http.Request) ([]map[string]interface{}, error) {
	var body interface{}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	list, ok := body.([]interface{})
	if !ok {
		return nil, badRequest("Request body must be an array of objects")
	}
	items := make([]map[string]interface{}, len(list))
	for i, item := range list {
		if items[i], ok = item.(map[string]interface{}); !ok {
			return nil, badRequest("Request body must be an array of objects")
		}
	}
	return items, nil
}

// decodeUUIDs decodes a {"uuids": [...]} request body
func decodeUUIDs(r *http.Request) ([]string, error) {
	var body struct {
		UUIDs []string `json:"uuids"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	if len(body.UUIDs) == 0 {
		return nil, badRequest("Request body must list uuids")
	}
	return body.UUIDs, nil
}

// queryInput returns the query parameters as input map, with the first value of each
func queryInput(r *http.Request) map[string]interface{} {
	input := map[string]interface{}{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			input[key] = values[0]
		}
	}
	return input
}

func withTrashed(r *http.Request) bool {
	v := strings.ToLower(r.URL.Query().Get("with_trashed"))
	return v == "true" || v == "1"
}

// pageParams returns the pagination parameters of the request, and false if the
// request does not ask for pagination
func pageParams(r *http.Request) (resource.PageParams, bool, error) {
	query := r.URL.Query()
	params := resource.PageParams{
		SortBy:   query.Get("sort_by"),
		SortType: query.Get("sort_type"),
		Input:    queryInput(r),
	}
	paginated := params.SortBy != ""
	for key, target := range map[string]*int{"per_page": &params.PerPage, "page": &params.Page} {
		value := query.Get(key)
		if value == "" {
			continue
		}
		paginated = true
		n, err := strconv.Atoi(value)
		if err != nil {
			return params, false, badRequest("parameter '" + key + "': " + err.Error())
		}
		*target = n
	}
	return params, paginated, nil
}

func writePage(w http.ResponseWriter, page *resource.Page) {
	w.Header().Set("X-Total-Count", strconv.FormatInt(page.Total, 10))
	WriteJSON(w, http.StatusOK, page.Items)
}
