package entity

// Person is the aggregate root. Addresses and TelephoneConnections are
// loaded with the person and ignored on writes.
type Person struct {
	ID                   int                   `json:"id" gorm:"column:id;primaryKey"`
	FirstName            string                `json:"firstName" gorm:"column:firstName;size:100;not null" validate:"required,max=100"`
	LastName             string                `json:"lastName" gorm:"column:lastName;size:100;not null" validate:"required,max=100"`
	BirthDate            *Date                 `json:"birthDate" gorm:"column:birthDate"`
	TelephoneConnections []TelephoneConnection `json:"telephoneConnections" gorm:"foreignKey:PersonID;constraint:OnDelete:RESTRICT" validate:"-"`
	Addresses            []Address             `json:"addresses" gorm:"foreignKey:PersonID;constraint:OnDelete:RESTRICT" validate:"-"`
}

// TableName pins the table name.
func (Person) TableName() string { return "Person" }

// Address belongs to a person.
type Address struct {
	ID             int     `json:"id" gorm:"column:id;primaryKey"`
	Street         string  `json:"street" gorm:"column:street;size:100;not null" validate:"required,max=100"`
	HouseNumber    string  `json:"houseNumber" gorm:"column:houseNumber;size:10;not null" validate:"required,max=10"`
	City           string  `json:"city" gorm:"column:city;size:100;not null" validate:"required,max=100"`
	ZipCode        string  `json:"zipCode" gorm:"column:postCode;size:10;not null" validate:"required,max=10"`
	AdditionalInfo *string `json:"additionalInfo" gorm:"column:additionalInfo;size:100" validate:"omitempty,max=100"`
	PersonID       int     `json:"personId" gorm:"column:persId;not null;index" validate:"gte=1"`
}

// TableName pins the table name.
func (Address) TableName() string { return "Address" }

// TelephoneConnection is a phone number belonging to a person.
type TelephoneConnection struct {
	ID          int    `json:"id" gorm:"column:id;primaryKey"`
	PhoneNumber string `json:"phoneNumber" gorm:"column:telephoneNumber;size:20;not null" validate:"required,max=20"`
	PersonID    int    `json:"personId" gorm:"column:persId;not null;index" validate:"gte=1"`
}

// TableName pins the table name.
func (TelephoneConnection) TableName() string { return "TelephoneConnection" }

// Models lists the entities in migration order.
func Models() []any {
	return []any{&Person{}, &Address{}, &TelephoneConnection{}}
}
