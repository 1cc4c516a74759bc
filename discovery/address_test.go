package discovery

import (
	"testing"

	"github.com/MrEdHardy/schleuben/errors"
)

func TestAddressTable_BaseURI(t *testing.T) {
	table := NewAddressTable(map[string]string{
		"databaseservice": "http://db.local:5000",
		"Broken":          "::not a uri",
		"Relative":        "/only/a/path",
	}, DefaultOpenAPIPath)

	u, err := table.BaseURI("DatabaseService")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.String() != "http://db.local:5000" {
		t.Errorf("unexpected base %s", u)
	}

	for _, name := range []string{"MissingService", "Broken", "Relative"} {
		if _, err := table.BaseURI(name); !errors.IsCode(err, errors.ErrCodeConfiguration) {
			t.Errorf("%s: expected configuration error, got %v", name, err)
		}
	}
}

func TestAddressTable_OpenAPIPath(t *testing.T) {
	table := NewAddressTable(map[string]string{
		"ReadOnlyService":             "http://read.local",
		"ReadOnlyService_OpenApiPath": "/swagger/v1/swagger.json",
		"MutableService":              "http://mutate.local",
		"EmptyService":                "http://empty.local",
		"EmptyService_OpenApiPath":    "",
	}, DefaultOpenAPIPath)

	tests := []struct {
		service string
		want    string
		wantErr bool
	}{
		{service: "ReadOnlyService", want: "/swagger/v1/swagger.json"},
		{service: "MutableService", want: DefaultOpenAPIPath},
		{service: "EmptyService", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			got, err := table.OpenAPIPath(tt.service)
			if tt.wantErr {
				if !errors.IsCode(err, errors.ErrCodeConfiguration) {
					t.Fatalf("expected configuration error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	noDefault := NewAddressTable(map[string]string{"A": "http://a"}, "")
	if _, err := noDefault.OpenAPIPath("A"); !errors.IsCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("expected configuration error without a default, got %v", err)
	}
}

func TestAddressTable_CapabilityURIAndResolve(t *testing.T) {
	table := NewAddressTable(map[string]string{
		"ReadOnlyService":             "http://read.local:5001/",
		"ReadOnlyService_OpenApiPath": "/openapi/v1.json",
	}, DefaultOpenAPIPath)

	u, err := table.CapabilityURI("ReadOnlyService")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.String() != "http://read.local:5001/openapi/v1.json" {
		t.Errorf("unexpected capability URI %s", u)
	}

	u, err = table.Resolve("readonlyservice", "/people/getbyid/{id}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Path != "/people/getbyid/{id}" || u.Host != "read.local:5001" {
		t.Errorf("unexpected resolved URI %s", u)
	}
}

func TestAddressTable_Names(t *testing.T) {
	table := NewAddressTable(map[string]string{
		"MutableService":              "http://m",
		"ReadOnlyService":             "http://r",
		"ReadOnlyService_OpenApiPath": "/doc",
	}, DefaultOpenAPIPath)

	names := table.Names()
	if len(names) != 2 || names[0] != "mutableservice" || names[1] != "readonlyservice" {
		t.Errorf("unexpected names %v", names)
	}
}
