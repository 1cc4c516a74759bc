package endpoint

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

// RouteLister returns the routes the capability document should declare.
type RouteLister func() gin.RoutesInfo

// Document is the subset of OpenAPI 3 the endpoint cache consumes.
type Document struct {
	OpenAPI string                          `json:"openapi"`
	Info    DocumentInfo                    `json:"info"`
	Paths   map[string]map[string]Operation `json:"paths"`
}

// DocumentInfo is the OpenAPI info object.
type DocumentInfo struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

// Operation is one method on a path.
type Operation struct {
	OperationID string              `json:"operationId,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty"`
	Responses   map[string]Response `json:"responses"`
}

// Parameter is a path parameter.
type Parameter struct {
	Name     string            `json:"name"`
	In       string            `json:"in"`
	Required bool              `json:"required"`
	Schema   map[string]string `json:"schema"`
}

// Response is an OpenAPI response object.
type Response struct {
	Description string `json:"description"`
}

// OpenAPI serves a capability document built from the routes that exist when
// the request arrives. gin's ":id" segments are rendered as "{id}".
func OpenAPI(title, version string, routes RouteLister, skip map[string]bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, BuildDocument(title, version, routes(), skip))
	}
}

// BuildDocument renders routes into a Document, leaving out paths in skip.
func BuildDocument(title, version string, routes gin.RoutesInfo, skip map[string]bool) Document {
	doc := Document{
		OpenAPI: "3.0.1",
		Info:    DocumentInfo{Title: title, Version: version},
		Paths:   make(map[string]map[string]Operation),
	}

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})

	for _, r := range routes {
		if skip[r.Path] {
			continue
		}
		path, params := templatePath(r.Path)
		ops, ok := doc.Paths[path]
		if !ok {
			ops = make(map[string]Operation)
			doc.Paths[path] = ops
		}
		op := Operation{
			OperationID: operationID(r.Handler),
			Responses:   map[string]Response{"200": {Description: "OK"}},
		}
		for _, p := range params {
			op.Parameters = append(op.Parameters, Parameter{
				Name: p, In: "path", Required: true,
				Schema: map[string]string{"type": "string"},
			})
		}
		ops[strings.ToLower(r.Method)] = op
	}
	return doc
}

// templatePath converts "/people/GetPersonById/:id" to
// "/people/GetPersonById/{id}" and returns the parameter names.
func templatePath(path string) (string, []string) {
	segments := strings.Split(path, "/")
	var params []string
	for i, s := range segments {
		if len(s) > 1 && (s[0] == ':' || s[0] == '*') {
			params = append(params, s[1:])
			segments[i] = "{" + s[1:] + "}"
		}
	}
	return strings.Join(segments, "/"), params
}

// operationID shortens gin's handler name
// "github.com/x/y/dataservice.(*PersonHandler).Create-fm" to "PersonHandler.Create".
func operationID(handler string) string {
	name := strings.TrimSuffix(handler, "-fm")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.NewReplacer("(*", "", ")", "").Replace(name)
	if _, rest, ok := strings.Cut(name, "."); ok {
		name = rest
	}
	return name
}
