package readservice

import (
	"github.com/gin-gonic/gin"

	"github.com/MrEdHardy/schleuben/entity"
	"github.com/MrEdHardy/schleuben/facade"
	"github.com/MrEdHardy/schleuben/server"
)

// Downstream operation names advertised by the database service.
const (
	OpListPeople     = "people"
	OpGetPerson      = "GetPersonById"
	OpListAddresses  = "addresses"
	OpGetAddress     = "GetAddressById"
	OpListPhones     = "telephone-connections"
	OpGetPhone       = "GetTelephoneConnectionById"
	downstreamNoRole = ""
)

// Handler serves the read routes.
type Handler struct {
	caller *facade.Caller
}

// NewHandler creates a Handler calling the database service through caller.
func NewHandler(caller *facade.Caller) *Handler {
	return &Handler{caller: caller}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/people", h.ListPeople)
	r.GET("/people/getbyid/:id", h.GetPerson)
	r.GET("/addresses", h.ListAddresses)
	r.GET("/addresses/getbyid/:id", h.GetAddress)
	r.GET("/telephone-connections", h.ListTelephoneConnections)
	r.GET("/telephone-connections/getbyid/:id", h.GetTelephoneConnection)
}

func (h *Handler) ListPeople(c *gin.Context) {
	list[entity.Person](h, c, OpListPeople)
}

func (h *Handler) GetPerson(c *gin.Context) {
	read[entity.Person](h, c, OpGetPerson)
}

func (h *Handler) ListAddresses(c *gin.Context) {
	list[entity.Address](h, c, OpListAddresses)
}

func (h *Handler) GetAddress(c *gin.Context) {
	read[entity.Address](h, c, OpGetAddress)
}

func (h *Handler) ListTelephoneConnections(c *gin.Context) {
	list[entity.TelephoneConnection](h, c, OpListPhones)
}

func (h *Handler) GetTelephoneConnection(c *gin.Context) {
	read[entity.TelephoneConnection](h, c, OpGetPhone)
}

func list[T any](h *Handler, c *gin.Context, op string) {
	out := make([]T, 0)
	if err := h.caller.List(c.Request.Context(), op, downstreamNoRole, &out); err != nil {
		server.Fail(c, err)
		return
	}
	server.RespondOK(c, out)
}

func read[T any](h *Handler, c *gin.Context, op string) {
	id, ok := server.PathID(c)
	if !ok {
		return
	}
	var out T
	if err := h.caller.Read(c.Request.Context(), op, downstreamNoRole, id, &out); err != nil {
		server.Fail(c, err)
		return
	}
	server.RespondOK(c, out)
}
