// Package entity holds the records shared by every service: people, their
// addresses and telephone connections. The same structs travel over the
// wire as JSON, are validated on the HTTP surface and are persisted by gorm.
package entity
