package dataservice

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEdHardy/schleuben/database"
	"github.com/MrEdHardy/schleuben/entity"
	"github.com/MrEdHardy/schleuben/errors"
	"github.com/MrEdHardy/schleuben/logger"
	"github.com/MrEdHardy/schleuben/server"
	"github.com/MrEdHardy/schleuben/server/endpoint"
	"github.com/MrEdHardy/schleuben/testutil"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	db := database.NewComponent(database.Config{DSN: ":memory:", AutoMigrate: true, LogLevel: "silent"}, logger.Nop()).
		WithAutoMigrate(entity.Models()...)
	testutil.T(t).Setup(db)

	srv := server.New(server.Config{}, logger.Nop())
	NewHandler(database.NewRepository(db.DB()), logger.Nop()).Register(srv.Engine())
	srv.RegisterSystemEndpoints("DatabaseService", "test", nil, nil)
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPeople_CRUD(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodPut, "/people/CreatePerson", map[string]any{
		"firstName": "Grace", "lastName": "Hopper", "birthDate": "1906-12-09",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body)
	}
	var created entity.Person
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == 0 || created.BirthDate == nil || created.BirthDate.String() != "1906-12-09" {
		t.Fatalf("created = %+v", created)
	}

	created.FirstName = "Amazing Grace"
	if w := do(t, h, http.MethodPatch, "/people/UpdatePerson", created); w.Code != http.StatusNoContent {
		t.Fatalf("update status = %d, body %s", w.Code, w.Body)
	}

	w = do(t, h, http.MethodGet, "/people/GetPersonById/1", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"firstName":"Amazing Grace"`) {
		t.Fatalf("get = %d %s", w.Code, w.Body)
	}

	w = do(t, h, http.MethodGet, "/people", nil)
	var people []entity.Person
	if err := json.Unmarshal(w.Body.Bytes(), &people); err != nil || len(people) != 1 {
		t.Fatalf("list = %s, %v", w.Body, err)
	}

	if w := do(t, h, http.MethodDelete, "/people/DeletePerson/1", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/people/DeletePerson/1", nil); w.Code != http.StatusNoContent {
		t.Errorf("second delete status = %d, want 204", w.Code)
	}
}

func TestPeople_GetErrors(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantMsg    string
	}{
		{"zero id", "/people/GetPersonById/0", http.StatusBadRequest, "Invalid id was provided!"},
		{"not a number", "/people/GetPersonById/abc", http.StatusBadRequest, "Invalid id was provided!"},
		{"missing", "/people/GetPersonById/9", http.StatusNotFound, "No person with given id 9 was found!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodGet, tt.path, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp errors.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Error.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", resp.Error.Message, tt.wantMsg)
			}
		})
	}
}

func TestPeople_CreateValidation(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing last name", map[string]any{"firstName": "Ada"}},
		{"bad birth date", map[string]any{"firstName": "Ada", "lastName": "L", "birthDate": "10.12.1815"}},
		{"not an object", "Ada Lovelace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPut, "/people/CreatePerson", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (%s)", w.Code, w.Body)
			}
		})
	}
}

func TestPeople_DeleteWithChildren(t *testing.T) {
	h := newTestServer(t)

	do(t, h, http.MethodPut, "/people/CreatePerson", map[string]any{"firstName": "Alan", "lastName": "Turing"})
	w := do(t, h, http.MethodPut, "/addresses/CreateAddress", map[string]any{
		"street": "Hollymeade", "houseNumber": "1", "city": "Wilmslow", "zipCode": "SK9", "personId": 1,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create address = %d %s", w.Code, w.Body)
	}

	w = do(t, h, http.MethodDelete, "/people/DeletePerson/1", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("delete status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), database.MsgPersonHasChildren) {
		t.Errorf("body = %s", w.Body)
	}

	w = do(t, h, http.MethodGet, "/people/GetPersonById/1", nil)
	if !strings.Contains(w.Body.String(), `"city":"Wilmslow"`) {
		t.Errorf("person should embed the address: %s", w.Body)
	}
}

func TestAddressesAndPhones(t *testing.T) {
	h := newTestServer(t)

	do(t, h, http.MethodPut, "/people/CreatePerson", map[string]any{"firstName": "Edsger", "lastName": "Dijkstra"})

	w := do(t, h, http.MethodPut, "/telephone-connections/CreateTelephoneConnection", map[string]any{
		"phoneNumber": "+31 20 1", "personId": 1,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create phone = %d %s", w.Code, w.Body)
	}
	w = do(t, h, http.MethodPatch, "/telephone-connections/UpdateTelephoneConnection", map[string]any{
		"id": 1, "phoneNumber": "+31 20 2", "personId": 1,
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("update phone = %d %s", w.Code, w.Body)
	}
	w = do(t, h, http.MethodGet, "/telephone-connections/GetTelephoneConnectionById/1", nil)
	if !strings.Contains(w.Body.String(), "+31 20 2") {
		t.Errorf("get phone = %s", w.Body)
	}
	if w := do(t, h, http.MethodGet, "/telephone-connections", nil); w.Code != http.StatusOK {
		t.Errorf("list phones = %d", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/telephone-connections/DeleteTelephoneConnection/1", nil); w.Code != http.StatusNoContent {
		t.Errorf("delete phone = %d", w.Code)
	}

	w = do(t, h, http.MethodPatch, "/addresses/UpdateAddress", map[string]any{
		"id": 5, "street": "s", "houseNumber": "1", "city": "c", "zipCode": "z", "personId": 1,
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("update of a missing address = %d, want 404", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/addresses", nil); w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Errorf("list addresses = %d %s", w.Code, w.Body)
	}
	if w := do(t, h, http.MethodGet, "/addresses/GetAddressById/-3", nil); w.Code != http.StatusBadRequest {
		t.Errorf("negative id = %d, want 400", w.Code)
	}
}

func TestCapabilityDocument(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodGet, server.PathOpenAPI, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var doc endpoint.Document
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{
		"/people",
		"/people/GetPersonById/{id}",
		"/people/CreatePerson",
		"/addresses/DeleteAddress/{id}",
		"/telephone-connections/UpdateTelephoneConnection",
	} {
		if _, ok := doc.Paths[path]; !ok {
			t.Errorf("document is missing %s", path)
		}
	}
	if _, ok := doc.Paths[server.PathHealth]; ok {
		t.Error("system paths must not be advertised")
	}
	if got := doc.Paths["/people/GetPersonById/{id}"]["get"].OperationID; got != "Handler.GetPersonByID" {
		t.Errorf("operationId = %q", got)
	}
}
