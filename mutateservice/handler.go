package mutateservice

import (
	"github.com/gin-gonic/gin"

	"github.com/MrEdHardy/schleuben/entity"
	"github.com/MrEdHardy/schleuben/facade"
	"github.com/MrEdHardy/schleuben/logger"
	"github.com/MrEdHardy/schleuben/server"
)

// Downstream operation names advertised by the database service.
const (
	OpCreatePerson  = "CreatePerson"
	OpUpdatePerson  = "UpdatePerson"
	OpDeletePerson  = "DeletePerson"
	OpCreateAddress = "CreateAddress"
	OpUpdateAddress = "UpdateAddress"
	OpDeleteAddress = "DeleteAddress"
	OpCreatePhone   = "CreateTelephoneConnection"
	OpUpdatePhone   = "UpdateTelephoneConnection"
	OpDeletePhone   = "DeleteTelephoneConnection"
)

// Handler serves the write routes.
type Handler struct {
	caller *facade.Caller
	log    *logger.Logger
}

// NewHandler creates a Handler calling the database service through caller.
func NewHandler(caller *facade.Caller, log *logger.Logger) *Handler {
	return &Handler{caller: caller, log: log.WithComponent("mutateservice")}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	for _, g := range []struct {
		prefix                 string
		create, update, delete gin.HandlerFunc
	}{
		{"/people", h.CreatePerson, h.UpdatePerson, h.DeletePerson},
		{"/addresses", h.CreateAddress, h.UpdateAddress, h.DeleteAddress},
		{"/telephone-connections", h.CreateTelephoneConnection, h.UpdateTelephoneConnection, h.DeleteTelephoneConnection},
	} {
		grp := r.Group(g.prefix)
		grp.PUT("/Create", g.create)
		grp.PATCH("/Update", g.update)
		grp.DELETE("/Delete/:id", g.delete)
	}
}

func (h *Handler) CreatePerson(c *gin.Context) { create[entity.Person](h, c, OpCreatePerson) }

func (h *Handler) UpdatePerson(c *gin.Context) { update[entity.Person](h, c, OpUpdatePerson) }

func (h *Handler) DeletePerson(c *gin.Context) { remove(h, c, OpDeletePerson) }

func (h *Handler) CreateAddress(c *gin.Context) { create[entity.Address](h, c, OpCreateAddress) }

func (h *Handler) UpdateAddress(c *gin.Context) { update[entity.Address](h, c, OpUpdateAddress) }

func (h *Handler) DeleteAddress(c *gin.Context) { remove(h, c, OpDeleteAddress) }

func (h *Handler) CreateTelephoneConnection(c *gin.Context) {
	create[entity.TelephoneConnection](h, c, OpCreatePhone)
}

func (h *Handler) UpdateTelephoneConnection(c *gin.Context) {
	update[entity.TelephoneConnection](h, c, OpUpdatePhone)
}

func (h *Handler) DeleteTelephoneConnection(c *gin.Context) { remove(h, c, OpDeletePhone) }

// create forwards the body and answers 200 with the stored record.
func create[T any](h *Handler, c *gin.Context, op string) {
	var in T
	if !server.BindJSON(c, &in) {
		return
	}
	var out T
	if err := h.caller.Create(c.Request.Context(), op, "", &in, &out); err != nil {
		server.Fail(c, err)
		return
	}
	h.log.WithContext(c.Request.Context()).Debug("Record created", logger.Fields(logger.FieldOperation, op))
	server.RespondOK(c, out)
}

func update[T any](h *Handler, c *gin.Context, op string) {
	var in T
	if !server.BindJSON(c, &in) {
		return
	}
	if err := h.caller.Update(c.Request.Context(), op, "", &in); err != nil {
		server.Fail(c, err)
		return
	}
	server.RespondNoContent(c)
}

func remove(h *Handler, c *gin.Context, op string) {
	id, ok := server.PathID(c)
	if !ok {
		return
	}
	if err := h.caller.Delete(c.Request.Context(), op, "", id); err != nil {
		server.Fail(c, err)
		return
	}
	server.RespondNoContent(c)
}
