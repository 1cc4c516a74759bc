package database

import (
	"context"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/MrEdHardy/schleuben/errors"
	"github.com/MrEdHardy/schleuben/entity"
)

const (
	resourcePerson  = "person"
	resourceAddress = "address"
	resourcePhone   = "telephone connection"
)

// MsgPersonHasChildren is the message returned when deleting a person that
// still owns addresses or telephone connections.
const MsgPersonHasChildren = "Cannot delete a person with addresses or telephone connections."

// Repository stores people, addresses and telephone connections. Every
// method returns an *errors.AppError on failure.
type Repository struct {
	conn func() *DB
}

// NewRepository creates a repository over db.
func NewRepository(db *DB) *Repository {
	return &Repository{conn: func() *DB { return db }}
}

// ListPeople returns every person with their addresses and telephone connections.
func (r *Repository) ListPeople(ctx context.Context) ([]entity.Person, error) {
	people := make([]entity.Person, 0)
	err := r.conn().WithContext(ctx).
		Preload("Addresses").
		Preload("TelephoneConnections").
		Order("id").
		Find(&people).Error
	if err != nil {
		return nil, FromDatabase(err, resourcePerson, "")
	}
	return people, nil
}

// GetPerson returns the person with the given id including children.
func (r *Repository) GetPerson(ctx context.Context, id int) (*entity.Person, error) {
	db := r.conn().WithContext(ctx).Preload("Addresses").Preload("TelephoneConnections")
	return find[entity.Person](db, id, resourcePerson)
}

// CreatePerson inserts p and returns it with its new id. Children sent
// along are ignored.
func (r *Repository) CreatePerson(ctx context.Context, p *entity.Person) (*entity.Person, error) {
	return create(r.conn().WithContext(ctx), p, &p.ID, resourcePerson)
}

// UpdatePerson overwrites the scalar fields of an existing person.
func (r *Repository) UpdatePerson(ctx context.Context, p *entity.Person) error {
	return r.conn().Transaction(ctx, func(tx *gorm.DB) error {
		return update[entity.Person](tx, p, p.ID, resourcePerson)
	})
}

// DeletePerson removes the person with the given id. A person that still
// has addresses or telephone connections is refused; a missing id is not an
// error.
func (r *Repository) DeletePerson(ctx context.Context, id int) error {
	return r.conn().Transaction(ctx, func(tx *gorm.DB) error {
		for _, child := range []any{&entity.Address{}, &entity.TelephoneConnection{}} {
			var n int64
			if err := tx.Model(child).Where("persId = ?", id).Count(&n).Error; err != nil {
				return FromDatabase(err, resourcePerson, strconv.Itoa(id))
			}
			if n > 0 {
				return apperrors.Validation(MsgPersonHasChildren).WithDetail("id", id)
			}
		}
		return remove[entity.Person](tx, id, resourcePerson)
	})
}

// ListAddresses returns every address.
func (r *Repository) ListAddresses(ctx context.Context) ([]entity.Address, error) {
	return list[entity.Address](r.conn().WithContext(ctx), resourceAddress)
}

// GetAddress returns the address with the given id.
func (r *Repository) GetAddress(ctx context.Context, id int) (*entity.Address, error) {
	return find[entity.Address](r.conn().WithContext(ctx), id, resourceAddress)
}

// CreateAddress inserts a and returns it with its new id.
func (r *Repository) CreateAddress(ctx context.Context, a *entity.Address) (*entity.Address, error) {
	return create(r.conn().WithContext(ctx), a, &a.ID, resourceAddress)
}

// UpdateAddress overwrites an existing address.
func (r *Repository) UpdateAddress(ctx context.Context, a *entity.Address) error {
	return r.conn().Transaction(ctx, func(tx *gorm.DB) error {
		return update[entity.Address](tx, a, a.ID, resourceAddress)
	})
}

// DeleteAddress removes the address with the given id.
func (r *Repository) DeleteAddress(ctx context.Context, id int) error {
	return remove[entity.Address](r.conn().WithContext(ctx), id, resourceAddress)
}

// ListTelephoneConnections returns every telephone connection.
func (r *Repository) ListTelephoneConnections(ctx context.Context) ([]entity.TelephoneConnection, error) {
	return list[entity.TelephoneConnection](r.conn().WithContext(ctx), resourcePhone)
}

// GetTelephoneConnection returns the telephone connection with the given id.
func (r *Repository) GetTelephoneConnection(ctx context.Context, id int) (*entity.TelephoneConnection, error) {
	return find[entity.TelephoneConnection](r.conn().WithContext(ctx), id, resourcePhone)
}

// CreateTelephoneConnection inserts t and returns it with its new id.
func (r *Repository) CreateTelephoneConnection(ctx context.Context, t *entity.TelephoneConnection) (*entity.TelephoneConnection, error) {
	return create(r.conn().WithContext(ctx), t, &t.ID, resourcePhone)
}

// UpdateTelephoneConnection overwrites an existing telephone connection.
func (r *Repository) UpdateTelephoneConnection(ctx context.Context, t *entity.TelephoneConnection) error {
	return r.conn().Transaction(ctx, func(tx *gorm.DB) error {
		return update[entity.TelephoneConnection](tx, t, t.ID, resourcePhone)
	})
}

// DeleteTelephoneConnection removes the telephone connection with the given id.
func (r *Repository) DeleteTelephoneConnection(ctx context.Context, id int) error {
	return remove[entity.TelephoneConnection](r.conn().WithContext(ctx), id, resourcePhone)
}

func list[T any](db *gorm.DB, resource string) ([]T, error) {
	out := make([]T, 0)
	if err := db.Order("id").Find(&out).Error; err != nil {
		return nil, FromDatabase(err, resource, "")
	}
	return out, nil
}

func find[T any](db *gorm.DB, id int, resource string) (*T, error) {
	var v T
	if err := db.First(&v, id).Error; err != nil {
		return nil, FromDatabase(err, resource, strconv.Itoa(id))
	}
	return &v, nil
}

// create inserts v with a fresh key; id points at v's key field.
func create[T any](db *gorm.DB, v *T, id *int, resource string) (*T, error) {
	*id = 0
	if err := db.Omit(clause.Associations).Create(v).Error; err != nil {
		return nil, FromDatabase(err, resource, "")
	}
	return v, nil
}

func update[T any](tx *gorm.DB, v *T, id int, resource string) error {
	if id < 1 {
		return apperrors.InvalidInput("id", "id must be a positive number")
	}
	var existing T
	if err := tx.Select("id").First(&existing, id).Error; err != nil {
		return FromDatabase(err, resource, strconv.Itoa(id))
	}
	if err := tx.Omit(clause.Associations).Save(v).Error; err != nil {
		return FromDatabase(err, resource, strconv.Itoa(id))
	}
	return nil
}

func remove[T any](db *gorm.DB, id int, resource string) error {
	var v T
	if err := db.Delete(&v, id).Error; err != nil {
		return FromDatabase(err, resource, strconv.Itoa(id))
	}
	return nil
}
