package facade

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/MrEdHardy/schleuben/errors"
	"github.com/MrEdHardy/schleuben/httpclient"
	"github.com/MrEdHardy/schleuben/logger"
	"github.com/MrEdHardy/schleuben/observability"
	"github.com/MrEdHardy/schleuben/resilience"
)

// Resolver maps a logical operation to an absolute URL. A nil URL with a
// nil error means no service advertises the operation.
type Resolver interface {
	Lookup(ctx context.Context, operation, role string) (*url.URL, error)
}

// Request describes one logical call.
type Request struct {
	// Operation is the name looked up in the endpoint cache, e.g. "CreatePerson".
	Operation string
	// Role selects the backing service in a role-tagged cache.
	Role string
	// Method is the HTTP method.
	Method string
	// Params fill "{name}" placeholders of the resolved path template.
	Params map[string]string
	// Query is appended to the resolved URL.
	Query map[string]string
	// Body is JSON-encoded unless it is []byte, string or io.Reader.
	Body any
}

// Option customises a Caller.
type Option func(*Caller)

// WithLogger sets the logger used for call diagnostics.
func WithLogger(log *logger.Logger) Option {
	return func(c *Caller) { c.log = log.WithComponent("facade") }
}

// Caller combines endpoint resolution with resilient execution.
type Caller struct {
	service  string
	resolver Resolver
	client   *httpclient.Client
	log      *logger.Logger
}

// New returns a Caller. service names the downstream in error messages.
func New(service string, resolver Resolver, client *httpclient.Client, opts ...Option) *Caller {
	c := &Caller{
		service:  service,
		resolver: resolver,
		client:   client,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the absolute URL template for operation, or nil when no
// downstream advertises it.
func (c *Caller) Resolve(ctx context.Context, operation, role string) (*url.URL, error) {
	return c.resolver.Lookup(ctx, operation, role)
}

// Call resolves req.Operation and sends the request.
func (c *Caller) Call(ctx context.Context, req Request) (resp *httpclient.Response, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanFacadeCall,
		attribute.String(observability.AttrService, c.service),
		attribute.String(observability.AttrOperation, req.Operation),
		attribute.String(observability.AttrRole, req.Role),
	)
	defer func() { observability.EndSpan(span, err) }()

	u, err := c.Resolve(ctx, req.Operation, req.Role)
	if err != nil {
		return nil, errors.Wrap(err)
	}
	if u == nil {
		c.log.WithContext(ctx).Warn("Endpoint couldn't be determined", logger.Fields(
			logger.FieldOperation, req.Operation,
			logger.FieldRole, req.Role,
		))
		return nil, errors.OperationUnavailable(req.Operation, req.Role)
	}

	target, err := Expand(u, req.Params)
	if err != nil {
		return nil, err
	}
	if len(req.Query) > 0 {
		q := target.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		target.RawQuery = q.Encode()
	}

	resp, err = c.client.Execute(ctx, req.Method, target, req.Body)
	if err != nil {
		return nil, c.classify(ctx, req, err)
	}
	return resp, nil
}

// List GETs a collection and decodes it into out.
func (c *Caller) List(ctx context.Context, operation, role string, out any) error {
	resp, err := c.Call(ctx, Request{Operation: operation, Role: role, Method: http.MethodGet})
	if err != nil {
		return err
	}
	return c.decode(resp, out)
}

// Read GETs the resource with the given id and decodes it into out.
func (c *Caller) Read(ctx context.Context, operation, role string, id int, out any) error {
	resp, err := c.Call(ctx, Request{
		Operation: operation, Role: role, Method: http.MethodGet,
		Params: idParam(id),
	})
	if err != nil {
		return err
	}
	return c.decode(resp, out)
}

// Create PUTs body and decodes the created resource into out, if non-nil.
func (c *Caller) Create(ctx context.Context, operation, role string, body, out any) error {
	resp, err := c.Call(ctx, Request{Operation: operation, Role: role, Method: http.MethodPut, Body: body})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return c.decode(resp, out)
}

// Update PATCHes body.
func (c *Caller) Update(ctx context.Context, operation, role string, body any) error {
	_, err := c.Call(ctx, Request{Operation: operation, Role: role, Method: http.MethodPatch, Body: body})
	return err
}

// Delete DELETEs the resource with the given id.
func (c *Caller) Delete(ctx context.Context, operation, role string, id int) error {
	_, err := c.Call(ctx, Request{
		Operation: operation, Role: role, Method: http.MethodDelete,
		Params: idParam(id),
	})
	return err
}

// classify maps a failed call to an AppError.
func (c *Caller) classify(ctx context.Context, req Request, err error) error {
	log := c.log.WithContext(ctx).
		WithFields(logger.Fields(logger.FieldOperation, req.Operation, logger.FieldService, c.service)).
		WithError(err)

	if stderrors.Is(err, context.Canceled) {
		return err
	}
	if rej, ok := resilience.IsRejected(err); ok {
		log.Warn("Call rejected by resilience policy")
		return errors.PolicyRejected(c.service, string(rej.Policy), err)
	}
	if ctx.Err() != nil && stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Timeout(req.Operation).WithCause(err)
	}
	if he, ok := httpclient.AsError(err); ok && he.StatusCode >= 400 && he.StatusCode < 500 {
		return downstreamClientError(he)
	}

	log.Error("Downstream call failed")
	if httpclient.IsConnection(err) {
		return errors.ConnectionFailed(c.service).WithCause(err)
	}
	return errors.ServiceUnavailable(c.service).WithCause(err)
}

// downstreamClientError carries a 4xx through with the downstream's own
// code and message when it sent an error body.
func downstreamClientError(he *httpclient.Error) *errors.AppError {
	var body errors.ErrorResponse
	if json.Unmarshal(he.Body, &body) == nil && body.Error.Code != "" {
		appErr := errors.New(body.Error.Code, body.Error.Message, he.StatusCode)
		appErr.Details = body.Error.Details
		return appErr.WithCause(he)
	}

	msg := strings.TrimSpace(string(he.Body))
	code := errors.ErrCodeInvalidInput
	if he.StatusCode == http.StatusNotFound {
		code = errors.ErrCodeNotFound
		if msg == "" {
			msg = "The requested resource was not found."
		}
	}
	if msg == "" {
		msg = http.StatusText(he.StatusCode)
	}
	return errors.New(code, msg, he.StatusCode).WithCause(he)
}

// Expand substitutes "{name}" placeholders in u's path with params. Every
// placeholder must have a value.
func Expand(u *url.URL, params map[string]string) (*url.URL, error) {
	out := *u
	path := u.Path
	var b strings.Builder
	for {
		start := strings.IndexByte(path, '{')
		if start < 0 {
			b.WriteString(path)
			break
		}
		end := strings.IndexByte(path[start:], '}')
		if end < 0 {
			b.WriteString(path)
			break
		}
		end += start
		name := path[start+1 : end]
		value, ok := params[name]
		if !ok {
			return nil, errors.MissingField(name)
		}
		b.WriteString(path[:start])
		b.WriteString(url.PathEscape(value))
		path = path[end+1:]
	}
	expanded := b.String()
	unescaped, err := url.PathUnescape(expanded)
	if err != nil {
		return nil, errors.InvalidFormat("path", "a valid URL path").WithCause(err)
	}
	out.Path = unescaped
	out.RawPath = expanded
	return &out, nil
}

func idParam(id int) map[string]string {
	return map[string]string{"id": strconv.Itoa(id)}
}

func (c *Caller) decode(resp *httpclient.Response, out any) error {
	if out == nil {
		return nil
	}
	if err := resp.Decode(out); err != nil {
		return errors.ExternalServiceError(c.service, err)
	}
	return nil
}
