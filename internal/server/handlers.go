package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"math"
	"mime"
	"net/http"
	"strings"
	"time"

	"stockroom/internal/shared"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// Error categories used in the "error" field of error bodies.
const (
	errBadRequest    = "Bad request"
	errNotJSON       = "Request must be JSON"
	errMissingFields = "Missing required fields"
	errNotFound      = "Not found"
	errItemNotFound  = "Item not found"
	errNotAllowed    = "Method not allowed"
	errInternal      = "Internal server error"
)

type API struct {
	Store   Store
	Metrics *Metrics
	Logger  *log.Logger
	// Debug adds per-request logging and puts internal error text in 500 bodies.
	Debug bool
	// TracerProvider receives the HTTP server spans; nil means the global provider.
	TracerProvider trace.TracerProvider
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends {"error": category, "message": msg}; an empty msg encodes as null.
func writeError(w http.ResponseWriter, code int, category, msg string) {
	resp := shared.ErrorResponse{Error: category}
	if msg != "" {
		resp.Message = &msg
	}
	writeJSON(w, code, resp)
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, 2<<20))
}

func (a *API) logger() *log.Logger {
	if a.Logger == nil {
		return log.Default()
	}
	return a.Logger
}

// Routes maps method+path to handlers.
func (a *API) Routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", a.Health).Methods(http.MethodGet)
	router.Handle("/metrics", a.Metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/items", a.ListItems).Methods(http.MethodGet)
	api.HandleFunc("/items", a.CreateItem).Methods(http.MethodPost)
	api.HandleFunc("/items/{id}", a.GetItem).Methods(http.MethodGet)
	api.HandleFunc("/items/{id}", a.DeleteItem).Methods(http.MethodDelete)

	router.NotFoundHandler = http.HandlerFunc(a.notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(a.methodNotAllowed)
	return router
}

// Handler is the full stack served to clients: tracing, metrics, panic
// recovery and, in debug mode, request logging around Routes.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.Routes()
	if a.Debug {
		h = Logging(a.logger())(h)
	}
	h = Recover(a.logger(), a.Debug)(h)
	h = Instrument(a.Metrics)(h)
	var opts []otelhttp.Option
	if a.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(a.TracerProvider))
	}
	return otelhttp.NewHandler(h, "stockroom", opts...)
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, shared.HealthResponse{
		Status:    "healthy",
		Timestamp: timestamp(time.Now()),
	})
}

func (a *API) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := a.Store.ListItems(r.Context())
	if err != nil {
		a.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) CreateItem(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r.Header.Get("Content-Type")) {
		writeError(w, http.StatusBadRequest, errNotJSON, "")
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errBadRequest, "bad body")
		return
	}

	var req shared.CreateItemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, errBadRequest, "Failed to decode JSON object: "+err.Error())
		return
	}

	var missing []string
	if req.Name == nil {
		missing = append(missing, "name")
	}
	if req.Quantity == nil {
		missing = append(missing, "quantity")
	}
	if req.Price == nil {
		missing = append(missing, "price")
	}
	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, errMissingFields, "missing: "+strings.Join(missing, ", "))
		return
	}
	quantity, ok := wholeNumber(*req.Quantity)
	if !ok {
		writeError(w, http.StatusBadRequest, errBadRequest, "quantity must be a whole number")
		return
	}

	it, err := a.Store.CreateItem(r.Context(), *req.Name, quantity, *req.Price)
	if err != nil {
		a.internalError(w, err)
		return
	}
	a.logger().Printf("Created new item with ID: %s", it.ID)

	writeJSON(w, http.StatusCreated, shared.CreateItemResponse{
		ID:        it.ID,
		CreatedAt: it.CreatedAt,
	})
}

func (a *API) GetItem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	it, err := a.Store.GetItem(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, errItemNotFound, "")
		return
	}
	if err != nil {
		a.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (a *API) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	existed, err := a.Store.DeleteItem(r.Context(), id)
	if err != nil {
		a.internalError(w, err)
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, errItemNotFound, "")
		return
	}
	a.logger().Printf("Deleted item with ID: %s", id)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, errNotFound, "The requested URL was not found on the server.")
}

func (a *API) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, errNotAllowed, "The method "+r.Method+" is not allowed for the requested URL.")
}

func (a *API) internalError(w http.ResponseWriter, err error) {
	a.logger().Printf("storage error: %v", err)
	var msg string
	if a.Debug {
		msg = err.Error()
	}
	writeError(w, http.StatusInternalServerError, errInternal, msg)
}

// wholeNumber reads an integer quantity; 3 and 3.0 are both 3.
func wholeNumber(n json.Number) (int64, bool) {
	if v, err := n.Int64(); err == nil {
		return v, true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// isJSON accepts application/json and any +json media type.
func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || (strings.HasPrefix(mt, "application/") && strings.HasSuffix(mt, "+json"))
}
