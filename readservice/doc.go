// Package readservice is the read-only gateway in front of the database
// service. Every route resolves its downstream operation through the
// endpoint cache and calls it through the resilient pipeline.
package readservice
