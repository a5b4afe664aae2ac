// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package client provides easy and fast in-process access to a REST api

Instead of marshalling HTTP, the client talks directly to the mux router. The client
is the tool of choice if one request handler needs to call other handlers to fulfill
its task. It is also perfectly suited for unit tests.
*/
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/restkit/core/access"
)

// Client provides easy access to the REST API.
type Client struct {
	router     *mux.Router
	httpClient *http.Client
	url        string
	token      string
	identity   *access.Identity
	ctx        context.Context

	defaultHeaders map[string]string
}

// NewWithRouter creates a client to make pseudo-REST requests to the backend,
// through the mux router
//
// WithIdentity() adds an authenticated identity to the request context.
// WithContext() specifies a different base context all together.
func NewWithRouter(router *mux.Router) Client {
	return Client{
		router:         router,
		defaultHeaders: map[string]string{},
	}
}

// NewWithURL creates a client to make REST requests to the backend
//
// WithToken adds an authorization token to the request header.
func NewWithURL(url string) Client {
	return Client{
		url:            url,
		httpClient:     &http.Client{Timeout: 20 * time.Second},
		defaultHeaders: map[string]string{},
	}
}

// WithHeader returns a new client with a default header added
func (c Client) WithHeader(key string, value string) Client {
	headers := map[string]string{key: value}
	for k, v := range c.defaultHeaders {
		if k != key {
			headers[k] = v
		}
	}
	c.defaultHeaders = headers
	return c
}

// WithToken returns a new client which sends token as bearer token
func (c Client) WithToken(token string) Client {
	c.token = token
	return c
}

// WithIdentity returns a new client authenticated as identity
// (this works only directly against the mux router, for a normal client
//
//	use WithToken())
func (c Client) WithIdentity(identity *access.Identity) Client {
	c.identity = identity
	return c
}

// WithContext returns a new client with specific request context
func (c Client) WithContext(ctx context.Context) Client {
	c.ctx = ctx
	return c
}

// Context returns the context of requests made by the client
func (c Client) Context() context.Context {
	ctx := c.ctx
	if c.ctx == nil {
		ctx = context.Background()
	}
	if c.identity != nil {
		ctx = access.ContextWithIdentity(ctx, c.identity)
	}
	return ctx
}

// Response is a raw response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do executes a request. body is marshalled to JSON unless it is a []byte.
func (c Client) Do(method, path string, headers map[string]string, body interface{}) (*Response, error) {
	var reader io.Reader
	if body != nil {
		j, ok := body.([]byte)
		if !ok {
			var err error
			if j, err = json.Marshal(body); err != nil {
				return nil, fmt.Errorf("%s to %s: %w", method, path, err)
			}
		}
		reader = bytes.NewBuffer(j)
	}

	r, err := http.NewRequestWithContext(c.Context(), method, c.url+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.defaultHeaders {
		r.Header.Add(key, value)
	}
	for key, value := range headers {
		r.Header.Add(key, value)
	}
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}

	if c.router != nil {
		rec := httptest.NewRecorder()
		c.router.ServeHTTP(rec, r)
		res := rec.Result()
		return &Response{StatusCode: res.StatusCode, Header: res.Header, Body: rec.Body.Bytes()}, nil
	}
	res, err := c.httpClient.Do(r)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	resBody, _ := io.ReadAll(res.Body)
	return &Response{StatusCode: res.StatusCode, Header: res.Header, Body: resBody}, nil
}

// raw executes a request and unmarshals the response into result if the
// status is one of the expected ones
func (c Client) raw(method, path string, headers map[string]string, body interface{}, result interface{}, expected ...int) (int, http.Header, error) {
	res, err := c.Do(method, path, headers, body)
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}
	status := res.StatusCode
	if status == http.StatusNoContent {
		return status, res.Header, nil
	}
	ok := false
	for _, e := range expected {
		ok = ok || status == e
	}
	if !ok {
		return status, res.Header, fmt.Errorf("handler returned wrong status code: got %v want %v. Error: %s",
			status, expected[0], strings.TrimSpace(string(res.Body)))
	}
	if len(res.Body) > 0 && result != nil {
		if raw, ok := result.(*[]byte); ok {
			*raw = res.Body
		} else {
			err = json.Unmarshal(res.Body, result)
		}
	}
	return status, res.Header, err
}

// RawGet makes a GET request and unmarshals the response into result
func (c Client) RawGet(path string, result interface{}) (int, error) {
	status, _, err := c.raw(http.MethodGet, path, nil, nil, result, http.StatusOK)
	return status, err
}

// RawGetWithHeader is RawGet with additional request headers, returning the response headers
func (c Client) RawGetWithHeader(path string, header map[string]string, result interface{}) (int, http.Header, error) {
	return c.raw(http.MethodGet, path, header, nil, result, http.StatusOK)
}

// RawHead makes a HEAD request and returns the status
func (c Client) RawHead(path string) (int, error) {
	res, err := c.Do(http.MethodHead, path, nil, nil)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return res.StatusCode, nil
}

// RawPost makes a POST request
func (c Client) RawPost(path string, body interface{}, result interface{}) (int, error) {
	return c.RawPostWithHeader(path, nil, body, result)
}

// RawPostWithHeader is RawPost with additional request headers
func (c Client) RawPostWithHeader(path string, headers map[string]string, body interface{}, result interface{}) (int, error) {
	status, _, err := c.raw(http.MethodPost, path, headers, body, result, http.StatusCreated, http.StatusOK)
	return status, err
}

// RawPut makes a PUT request
func (c Client) RawPut(path string, body interface{}, result interface{}) (int, error) {
	status, _, err := c.raw(http.MethodPut, path, nil, body, result, http.StatusOK, http.StatusCreated)
	return status, err
}

// RawPatch makes a PATCH request
func (c Client) RawPatch(path string, body interface{}, result interface{}) (int, error) {
	status, _, err := c.raw(http.MethodPatch, path, nil, body, result, http.StatusOK)
	return status, err
}

// RawDelete makes a DELETE request, optionally with a body
func (c Client) RawDelete(path string, body ...interface{}) (int, error) {
	var b interface{}
	if len(body) > 0 {
		b = body[0]
	}
	status, _, err := c.raw(http.MethodDelete, path, nil, b, nil, http.StatusNoContent, http.StatusOK)
	return status, err
}

// Collection represents the entities of a type, optionally as reached from a parent
type Collection struct {
	client     *Client
	path       string
	parameters []string
}

// Collection returns a new collection client for an entity type or accessor path,
// e.g. "clients" or "clients/{uuid}/contacts"
func (c Client) Collection(path string) Collection {
	return Collection{client: &c, path: "/" + strings.Trim(path, "/")}
}

// Under returns the collection of accessor as reached from the parent with uuid,
// e.g. Collection("clients").Under(uuid, "contacts")
func (r Collection) Under(parentUUID, accessor string) Collection {
	return Collection{client: r.client, path: r.path + "/" + parentUUID + "/" + accessor}
}

// WithParameter returns a new collection client with a URL parameter added.
func (r Collection) WithParameter(key string, value string) Collection {
	parameter := url.QueryEscape(key) + "=" + url.QueryEscape(value)
	return Collection{
		client: r.client,
		path:   r.path,
		// we want a true copy to avoid side effects
		parameters: append(append([]string{}, r.parameters...), parameter),
	}
}

// WithFilter returns a new collection client with a URL filter parameter added.
// This is a shortcut for WithParameter("filter", field+operator+value)
func (r Collection) WithFilter(field, operator, value string) Collection {
	return r.WithParameter("filter", field+operator+value)
}

// Path returns the path of the collection including its parameters
func (r Collection) Path() string {
	return withParameters(r.path, r.parameters)
}

func withParameters(path string, parameters []string) string {
	if len(parameters) == 0 {
		return path
	}
	return path + "?" + strings.Join(parameters, "&")
}

// Create creates a new entity
func (r Collection) Create(body interface{}, result interface{}) (int, error) {
	return r.client.RawPost(r.Path(), body, result)
}

// List lists all entities
func (r Collection) List(result interface{}) (int, error) {
	return r.client.RawGet(r.Path(), result)
}

// Sync replaces the entities of the collection with items
func (r Collection) Sync(items interface{}, result interface{}) (int, error) {
	return r.client.RawPut(r.Path(), items, result)
}

// Attach attaches an existing entity, identified in body
func (r Collection) Attach(body interface{}, result interface{}) (int, error) {
	return r.client.RawPost(r.path+"/attach", body, result)
}

// Unassociated lists all entities not in the collection
func (r Collection) Unassociated(result interface{}) (int, error) {
	return r.client.RawGet(r.path+"/unassociated", result)
}

// DeleteAll deletes or detaches the entities with the given uuids
func (r Collection) DeleteAll(uuids ...string) (int, error) {
	return r.client.RawDelete(r.path, map[string]interface{}{"uuids": uuids})
}

// Item returns an item client
func (r Collection) Item(uuid string) Item {
	return Item{collection: r, uuid: uuid}
}

// Item is a single entity
type Item struct {
	collection Collection
	uuid       string
}

// Path returns the path of the item
func (r Item) Path() string {
	return r.collection.path + "/" + r.uuid
}

// Read reads the item
func (r Item) Read(result interface{}) (int, error) {
	return r.collection.client.RawGet(r.Path(), result)
}

// Update updates the item
func (r Item) Update(body interface{}, result interface{}) (int, error) {
	return r.collection.client.RawPatch(r.Path(), body, result)
}

// Delete deletes the item
func (r Item) Delete() (int, error) {
	return r.collection.client.RawDelete(r.Path())
}

// Page is a page of a paginated collection
type Page struct {
	collection Collection
	sortBy     string
	sortType   string
	perPage    int
	page       int
	totalCount int
}

// FirstPage returns the first page of the collection sorted by sortBy
func (r Collection) FirstPage(sortBy, sortType string, perPage int) Page {
	return Page{collection: r, sortBy: sortBy, sortType: sortType, perPage: perPage, page: 1, totalCount: -1}
}

// HasData returns true if the page may have data
func (p Page) HasData() bool {
	return p.totalCount < 0 || (p.page-1)*p.perPage < p.totalCount
}

// TotalCount returns the total count of the last retrieval, or -1 before the first
func (p Page) TotalCount() int {
	return p.totalCount
}

// Get retrieves the page into result
func (p *Page) Get(result interface{}) (int, error) {
	path := withParameters(p.collection.path, append(append([]string{}, p.collection.parameters...),
		"sort_by="+url.QueryEscape(p.sortBy),
		"sort_type="+url.QueryEscape(p.sortType),
		"per_page="+strconv.Itoa(p.perPage),
		"page="+strconv.Itoa(p.page),
	))
	status, header, err := p.collection.client.RawGetWithHeader(path, nil, result)
	if err != nil {
		return status, err
	}
	if p.totalCount, err = strconv.Atoi(header.Get("X-Total-Count")); err != nil {
		return status, fmt.Errorf("missing X-Total-Count: %w", err)
	}
	return status, nil
}

// Next returns the next page
func (p Page) Next() Page {
	p.page++
	return p
}
