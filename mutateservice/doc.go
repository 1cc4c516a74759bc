// Package mutateservice is the write gateway in front of the database
// service. Payloads are validated here before they are forwarded.
package mutateservice
