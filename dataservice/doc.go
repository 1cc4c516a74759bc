// Package dataservice is the HTTP surface of the database service: CRUD
// routes over people, addresses and telephone connections backed by the
// database repository. The route names are the operation names the other
// services resolve through their endpoint caches.
package dataservice
