// Package facade performs logical operations against downstream services
// without hard-coded URLs: it resolves the operation through an endpoint
// cache, fills in path parameters and sends the request through the
// resilient HTTP client.
//
//	caller := facade.New("DatabaseService", cache, client)
//	var person entity.Person
//	err := caller.Read(ctx, "GetPersonById", "", 7, &person)
//
// Failures come back as *errors.AppError: an unresolvable operation or an
// exhausted retry is SERVICE_UNAVAILABLE (503), a policy rejection is
// POLICY_REJECTED (503) and downstream client errors such as 404 keep their
// status and message.
package facade
