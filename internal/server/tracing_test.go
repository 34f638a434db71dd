package server

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// newTracedAPI wires one recording provider into both the HTTP layer and
// the SQL store.
func newTracedAPI(t *testing.T) (*API, *SQLStore, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	store := newTestSQLStore(t)
	store.TracerProvider = tp
	api := &API{
		Store:          store,
		Metrics:        NewMetrics(),
		Logger:         quietLogger(),
		TracerProvider: tp,
	}
	return api, store, rec
}

func spanAttr(s sdktrace.ReadOnlySpan, key attribute.Key) string {
	for _, kv := range s.Attributes() {
		if kv.Key == key {
			return kv.Value.Emit()
		}
	}
	return ""
}

func lastEnded(t *testing.T, rec *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	ended := rec.Ended()
	for i := len(ended) - 1; i >= 0; i-- {
		if ended[i].Name() == name {
			return ended[i]
		}
	}
	t.Fatalf("no ended span named %q", name)
	return nil
}

func TestTracing_GetItemSpans(t *testing.T) {
	api, store, rec := newTracedAPI(t)
	it, err := store.CreateItem(context.Background(), "widget", 1, 2.5)
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	before := len(rec.Ended())

	rr := doRequest(t, api.Handler(), http.MethodGet, "/api/items/"+it.ID, "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("GET item = %d, want 200", rr.Code)
	}

	var server, query sdktrace.ReadOnlySpan
	for _, s := range rec.Ended()[before:] {
		switch {
		case s.SpanKind() == trace.SpanKindServer:
			server = s
		case s.Name() == "db.SELECT":
			query = s
		}
	}
	if server == nil {
		t.Fatal("no server span recorded for GET /api/items/{id}")
	}
	if query == nil {
		t.Fatal("no db.SELECT span recorded for GET /api/items/{id}")
	}

	if query.SpanContext().TraceID() != server.SpanContext().TraceID() {
		t.Error("db.SELECT span is not in the request trace")
	}
	if query.Parent().SpanID() != server.SpanContext().SpanID() {
		t.Error("db.SELECT span parent is not the server span")
	}
	if got := spanAttr(query, "db.system"); got != "sqlite" {
		t.Errorf("db.system = %q, want sqlite", got)
	}
	if got := spanAttr(query, "db.statement"); !strings.Contains(got, "FROM items WHERE id") {
		t.Errorf("db.statement = %q, want the item lookup", got)
	}
	if query.Status().Code != codes.Unset {
		t.Errorf("db.SELECT status = %v, want Unset", query.Status().Code)
	}
}

func TestTracing_NotFoundIsNotAnError(t *testing.T) {
	api, _, rec := newTracedAPI(t)

	rr := doRequest(t, api.Handler(), http.MethodGet, "/api/items/missing", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("GET missing item = %d, want 404", rr.Code)
	}
	if got := lastEnded(t, rec, "db.SELECT").Status().Code; got != codes.Unset {
		t.Errorf("db.SELECT status for missing item = %v, want Unset", got)
	}
}

func TestTracing_StorageFailureMarksSpan(t *testing.T) {
	api, store, rec := newTracedAPI(t)
	store.DB.Close()

	rr := doRequest(t, api.Handler(), http.MethodGet, "/api/items/anything", "", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("GET item on closed DB = %d, want 500", rr.Code)
	}

	query := lastEnded(t, rec, "db.SELECT")
	if query.Status().Code != codes.Error {
		t.Errorf("db.SELECT status = %v, want Error", query.Status().Code)
	}
	var recorded bool
	for _, ev := range query.Events() {
		if ev.Name == "exception" {
			recorded = true
		}
	}
	if !recorded {
		t.Error("db.SELECT span has no exception event")
	}
}
