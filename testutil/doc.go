// Package testutil provides test doubles shared by the packages of this
// module.
//
// Start a component for the duration of a test:
//
//	testutil.T(t).Setup(cache)
//
// Serve a capability document and count how often it is fetched:
//
//	srv := testutil.NewCapabilityServer(t, "/people", "/people/GetPersonById/{id}")
//	srv.SetPaths("/people")     // next sweep sees the new document
//	srv.Fail(http.StatusBadGateway)
//
// CountingFetcher answers capability fetches from memory without HTTP.
package testutil
