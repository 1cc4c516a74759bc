// Package database is the persistence layer of the database service: a gorm
// connection over sqlite with pooling, tracing and health checks, exposed as
// a lifecycle component, plus the Repository holding people, addresses and
// telephone connections.
//
//	comp := database.NewComponent(cfg, log).WithAutoMigrate(entity.Models()...)
//	registry.Register(comp)
//	...
//	repo := database.NewRepository(comp.DB())
package database
