package middleware

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MrEdHardy/schleuben/errors"
	"github.com/MrEdHardy/schleuben/logger"
	"github.com/MrEdHardy/schleuben/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(log *logger.Logger, handlers ...gin.HandlerFunc) *gin.Engine {
	e := gin.New()
	e.Use(ErrorHandler(log))
	e.Use(handlers...)
	return e
}

func TestErrorHandler_Panic(t *testing.T) {
	log, buf := testutil.NewLogger("test")
	e := newEngine(log)
	e.GET("/boom", func(*gin.Context) { panic("boom") })

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body["error"] != UnhandledErrorMessage {
		t.Errorf("unexpected error message: %q", body["error"])
	}
	if !strings.Contains(buf.String(), "Panic recovered") {
		t.Errorf("expected panic to be logged, got %s", buf.String())
	}
}

func TestErrorHandler_AppError(t *testing.T) {
	log, _ := testutil.NewLogger("test")
	e := newEngine(log)
	e.GET("/down", func(c *gin.Context) {
		_ = c.Error(errors.ServiceUnavailable("DatabaseService"))
	})

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/down", http.NoBody))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var body errors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Code != errors.ErrCodeServiceUnavailable || !body.Error.Retryable {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestErrorHandler_PlainError(t *testing.T) {
	log, buf := testutil.NewLogger("test")
	e := newEngine(log)
	e.GET("/oops", func(c *gin.Context) {
		_ = c.Error(stderrors.New("disk on fire"))
	})

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/oops", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), UnhandledErrorMessage) {
		t.Errorf("unexpected body %s", rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "disk on fire") {
		t.Error("internal error text leaked to the client")
	}
	if !strings.Contains(buf.String(), "disk on fire") {
		t.Error("expected the cause in the log")
	}
}

func TestErrorHandler_WrittenResponseKept(t *testing.T) {
	log, _ := testutil.NewLogger("test")
	e := newEngine(log)
	e.GET("/partial", func(c *gin.Context) {
		c.String(http.StatusAccepted, "ok")
		_ = c.Error(stderrors.New("late"))
	})

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/partial", http.NoBody))
	if rr.Code != http.StatusAccepted || rr.Body.String() != "ok" {
		t.Errorf("got %d %q", rr.Code, rr.Body.String())
	}
}

func TestRequestID_GeneratesID(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFromContext(r.Context())
		if r.Header.Get(HeaderRequestID) != seen {
			t.Error("expected the generated id in the request header")
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if seen == "" {
		t.Fatal("expected a request id in the context")
	}
	if got := rr.Header().Get(HeaderRequestID); got != seen {
		t.Errorf("response id %q, context id %q", got, seen)
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(HeaderRequestID, "custom-id-123")
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get(HeaderRequestID); got != "custom-id-123" {
		t.Fatalf("expected custom-id-123, got %s", got)
	}
}

func TestRequestLogger(t *testing.T) {
	log, buf := testutil.NewLogger("test")
	handler := Chain(RequestID(), RequestLogger(log))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/people/GetPersonById/9", http.NoBody)
	req.Header.Set(HeaderRequestID, "req-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"status":404`, `"request_id":"req-1"`, "/people/GetPersonById/9"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %s missing %s", out, want)
		}
	}
}

func TestRequestLogger_SkipsProbes(t *testing.T) {
	log, buf := testutil.NewLogger("test")
	called := false
	handler := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if !called {
		t.Error("handler should still be called for probes")
	}
	if buf.String() != "" {
		t.Errorf("expected no log line, got %s", buf.String())
	}
}

func TestBodySizeLimit(t *testing.T) {
	handler := BodySizeLimit("16B")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name string
		body string
		want int
	}{
		{"small", `{"id":1}`, http.StatusOK},
		{"large", strings.Repeat("x", 64), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tt.body)))
			if rr.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+"-before")
				next.ServeHTTP(w, r)
				order = append(order, name+"-after")
			})
		}
	}

	handler := Chain(mark("m1"), mark("m2"))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	expected := []string{"m1-before", "m2-before", "handler", "m2-after", "m1-after"}
	if strings.Join(order, ",") != strings.Join(expected, ",") {
		t.Fatalf("expected %v, got %v", expected, order)
	}
}

func TestStatusWriter_Flush(t *testing.T) {
	fr := &flushRecorder{ResponseWriter: httptest.NewRecorder()}
	sw := newStatusWriter(fr)
	sw.Flush()
	sw.WriteHeader(http.StatusTeapot)
	sw.WriteHeader(http.StatusOK)
	if !fr.flushed {
		t.Error("expected Flush to be delegated")
	}
	if sw.status != http.StatusTeapot {
		t.Errorf("expected first status to stick, got %d", sw.status)
	}
}

type flushRecorder struct {
	http.ResponseWriter
	flushed bool
}

func (f *flushRecorder) Flush() { f.flushed = true }

func TestRateLimit(t *testing.T) {
	log, _ := testutil.NewLogger("test")
	e := newEngine(log, RateLimit(RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		Burst:             2,
		KeyFunc:           func(c *gin.Context) string { return c.GetHeader("X-Client") },
	}))
	e.GET("/people", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(client string) int {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/people", http.NoBody)
		req.Header.Set("X-Client", client)
		e.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := call("a"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := call("a"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 once the burst is spent, got %d", code)
	}
	if code := call("b"); code != http.StatusOK {
		t.Errorf("other clients keep their own bucket, got %d", code)
	}
}

func TestClientBuckets_EvictsIdle(t *testing.T) {
	cb := newClientBuckets(1, 1, time.Minute)
	now := time.Now()
	cb.allow("a", now)
	cb.allow("b", now)
	if cb.size() != 2 {
		t.Fatalf("expected 2 buckets, got %d", cb.size())
	}

	cb.allow("c", now.Add(2*time.Minute))
	if cb.size() != 1 {
		t.Errorf("expected idle buckets to be evicted, got %d", cb.size())
	}
}

func TestRateLimitConfig(t *testing.T) {
	var cfg RateLimitConfig
	cfg.ApplyDefaults()
	if cfg.RequestsPerSecond != 50 || cfg.Burst != 100 || cfg.IdleTTL != 5*time.Minute {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	bad := RateLimitConfig{Enabled: true}
	if err := bad.Validate(); err == nil {
		t.Error("expected an error for an enabled limiter without limits")
	}
}
