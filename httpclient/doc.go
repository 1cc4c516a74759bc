// Package httpclient sends outbound HTTP requests through an optional
// resilience.Pipeline.
//
// Every attempt runs in its own span, carries the trace context in its
// headers and is classified into an *Error: connection and timeout failures
// as well as every non-2xx status are retry-eligible.
//
//	pipeline := resilience.NewPipeline[*httpclient.Response]("readonly", settings)
//	client, err := httpclient.New(httpclient.Config{}, httpclient.WithPipeline(pipeline))
//
//	resp, err := client.Get(ctx, endpoint)
package httpclient
