package dataservice

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/MrEdHardy/schleuben/entity"
	"github.com/MrEdHardy/schleuben/logger"
	"github.com/MrEdHardy/schleuben/server"
)

// Store is the persistence the handlers need. *database.Repository
// implements it.
type Store interface {
	ListPeople(ctx context.Context) ([]entity.Person, error)
	GetPerson(ctx context.Context, id int) (*entity.Person, error)
	CreatePerson(ctx context.Context, p *entity.Person) (*entity.Person, error)
	UpdatePerson(ctx context.Context, p *entity.Person) error
	DeletePerson(ctx context.Context, id int) error

	ListAddresses(ctx context.Context) ([]entity.Address, error)
	GetAddress(ctx context.Context, id int) (*entity.Address, error)
	CreateAddress(ctx context.Context, a *entity.Address) (*entity.Address, error)
	UpdateAddress(ctx context.Context, a *entity.Address) error
	DeleteAddress(ctx context.Context, id int) error

	ListTelephoneConnections(ctx context.Context) ([]entity.TelephoneConnection, error)
	GetTelephoneConnection(ctx context.Context, id int) (*entity.TelephoneConnection, error)
	CreateTelephoneConnection(ctx context.Context, t *entity.TelephoneConnection) (*entity.TelephoneConnection, error)
	UpdateTelephoneConnection(ctx context.Context, t *entity.TelephoneConnection) error
	DeleteTelephoneConnection(ctx context.Context, id int) error
}

// Handler serves the CRUD routes.
type Handler struct {
	store Store
	log   *logger.Logger
}

// NewHandler creates a Handler over store.
func NewHandler(store Store, log *logger.Logger) *Handler {
	return &Handler{store: store, log: log.WithComponent("dataservice")}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	people := r.Group("/people")
	people.GET("", h.ListPeople)
	people.GET("/GetPersonById/:id", h.GetPersonByID)
	people.PUT("/CreatePerson", h.CreatePerson)
	people.PATCH("/UpdatePerson", h.UpdatePerson)
	people.DELETE("/DeletePerson/:id", h.DeletePerson)

	addresses := r.Group("/addresses")
	addresses.GET("", h.ListAddresses)
	addresses.GET("/GetAddressById/:id", h.GetAddressByID)
	addresses.PUT("/CreateAddress", h.CreateAddress)
	addresses.PATCH("/UpdateAddress", h.UpdateAddress)
	addresses.DELETE("/DeleteAddress/:id", h.DeleteAddress)

	phones := r.Group("/telephone-connections")
	phones.GET("", h.ListTelephoneConnections)
	phones.GET("/GetTelephoneConnectionById/:id", h.GetTelephoneConnectionByID)
	phones.PUT("/CreateTelephoneConnection", h.CreateTelephoneConnection)
	phones.PATCH("/UpdateTelephoneConnection", h.UpdateTelephoneConnection)
	phones.DELETE("/DeleteTelephoneConnection/:id", h.DeleteTelephoneConnection)
}

func (h *Handler) ListPeople(c *gin.Context) {
	people, err := h.store.ListPeople(c.Request.Context())
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.RespondOK(c, people)
}

func (h *Handler) GetPersonByID(c *gin.Context) {
	id, ok := server.PathID(c)
	if !ok {
		return
	}
	p, err := h.store.GetPerson(c.Request.Context(), id)
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.RespondOK(c, p)
}

func (h *Handler) CreatePerson(c *gin.Context) {
	var p entity.Person
	if !server.BindJSON(c, &p) {
		return
	}
	created, err := h.store.CreatePerson(c.Request.Context(), &p)
	if err != nil {
		server.Fail(c, err)
		return
	}
	h.log.WithContext(c.Request.Context()).Info("Person created", logger.Fields("id", created.ID))
	server.RespondCreated(c, created)
}

func (h *Handler) UpdatePerson(c *gin.Context) {
	var p entity.Person
	if !server.BindJSON(c, &p) {
		return
	}
	if err := h.store.UpdatePerson(c.Request.Context(), &p); err != nil {
		server.Fail(c, err)
		return
	}
	server.RespondNoContent(c)
}

func (h *Handler) DeletePerson(c *gin.Context) {
	id, ok := server.PathID(c)
	if !ok {
		return
	}
	if err := h.store.DeletePerson(c.Request.Context(), id); err != nil {
		server.Fail(c, err)
		return
	}
	server.RespondNoContent(c)
}

func (h *Handler) ListAddresses(c *gin.Context) {
	addresses, err := h.store.ListAddresses(c.Request.Context())
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.RespondOK(c, addresses)
}

func (h *Handler) GetAddressByID(c *gin.Context) {
	id, ok := server.PathID(c)
	if !ok {
		return
	}
	a, err := h.store.GetAddress(c.Request.Context(), id)
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.RespondOK(c, a)
}

func (h *Handler) CreateAddress(c *gin.Context) {
	var a entity.Address
	if !server.BindJSON(c, &a) {
		return
	}
	created, err := h.store.CreateAddress(c.Request.Context(), &a)
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.RespondCreated(c, created)
}

func (h *Handler) UpdateAddress(c *gin.Context) {
	var a entity.Address
	if !server.BindJSON(c, &a) {
		return
	}
	if err := h.store.UpdateAddress(c.Request.Context(), &a); err != nil {
		server.Fail(c, err)
		return
	}
	server.RespondNoContent(c)
}

func (h *Handler) DeleteAddress(c *gin.Context) {
	id, ok := server.PathID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteAddress(c.Request.Context(), id); err != nil {
		server.Fail(c, err)
		return
	}
	server.RespondNoContent(c)
}

func (h *Handler) ListTelephoneConnections(c *gin.Context) {
	phones, err := h.store.ListTelephoneConnections(c.Request.Context())
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.RespondOK(c, phones)
}

func (h *Handler) GetTelephoneConnectionByID(c *gin.Context) {
	id, ok := server.PathID(c)
	if !ok {
		return
	}
	t, err := h.store.GetTelephoneConnection(c.Request.Context(), id)
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.RespondOK(c, t)
}

func (h *Handler) CreateTelephoneConnection(c *gin.Context) {
	var t entity.TelephoneConnection
	if !server.BindJSON(c, &t) {
		return
	}
	created, err := h.store.CreateTelephoneConnection(c.Request.Context(), &t)
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.RespondCreated(c, created)
}

func (h *Handler) UpdateTelephoneConnection(c *gin.Context) {
	var t entity.TelephoneConnection
	if !server.BindJSON(c, &t) {
		return
	}
	if err := h.store.UpdateTelephoneConnection(c.Request.Context(), &t); err != nil {
		server.Fail(c, err)
		return
	}
	server.RespondNoContent(c)
}

func (h *Handler) DeleteTelephoneConnection(c *gin.Context) {
	id, ok := server.PathID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteTelephoneConnection(c.Request.Context(), id); err != nil {
		server.Fail(c, err)
		return
	}
	server.RespondNoContent(c)
}
