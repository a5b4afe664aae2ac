package client

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/restkit/core/access"
)

const parentUUID = "4f1638da-861e-4a81-8cc7-e6847b6fdf9b"

func TestCollectionPaths(t *testing.T) {
	client := NewWithRouter(nil)

	collection := client.Collection("clients").Under(parentUUID, "contacts")
	assert.Equal(t, "/clients/"+parentUUID+"/contacts", collection.Path())
	assert.Equal(t, "/clients/"+parentUUID+"/contacts/c46da255-eb72-4cc6-8835-1b34a9917826",
		collection.Item("c46da255-eb72-4cc6-8835-1b34a9917826").Path())

	filtered := collection.WithFilter("email", "=", "maybe@yes.no").WithParameter("with_trashed", "true")
	assert.Equal(t, "/clients/"+parentUUID+"/contacts?filter=email%3Dmaybe%40yes.no&with_trashed=true", filtered.Path())
	assert.Equal(t, "/clients/"+parentUUID+"/contacts", collection.Path(), "parameters do not leak")
}

func TestClientAgainstRouter(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/things", func(w http.ResponseWriter, r *http.Request) {
		identity := access.IdentityFromContext(r.Context())
		w.Header().Set("X-Total-Count", "3")
		w.Write([]byte(`[{"subject":"` + identity.Subject + `","header":"` + r.Header.Get("X-Test") + `"}]`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/things", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"name":"created"}`))
	}).Methods(http.MethodPost)
	router.HandleFunc("/things/{value}/name", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodHead)

	client := NewWithRouter(router).WithIdentity(&access.Identity{Subject: "me"}).WithHeader("X-Test", "yes")

	var list []map[string]string
	status, err := client.Collection("things").List(&list)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []map[string]string{{"subject": "me", "header": "yes"}}, list)

	var created map[string]string
	status, err = client.Collection("things").Create(map[string]string{"name": "x"}, &created)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "created", created["name"])

	status, err = client.RawHead("/things/x/name")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)

	page := client.Collection("things").FirstPage("name", "asc", 2)
	assert.True(t, page.HasData())
	_, err = page.Get(&list)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalCount())
	page = page.Next()
	assert.True(t, page.HasData())
	page = page.Next()
	assert.False(t, page.HasData())

	_, err = client.RawGet("/nothing", nil)
	assert.Error(t, err)
}

func TestClientAgainstServer(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/things", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"header":"` + r.Header.Get("X-Test") + `"}]`))
	}).Methods(http.MethodGet)
	server := httptest.NewServer(router)
	defer server.Close()

	client := NewWithURL(server.URL).WithHeader("X-Test", "remote")
	var list []map[string]string
	status, err := client.Collection("things").List(&list)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []map[string]string{{"header": "remote"}}, list)

	_, err = client.RawGet("/nothing", nil)
	assert.Error(t, err)
}
