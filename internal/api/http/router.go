package http

import (
	"context"
	"net/http"
	"time"

	"toolrent-backend/internal/config"
	"toolrent-backend/internal/metrics"
	"toolrent-backend/internal/security"
	"toolrent-backend/internal/service"

	"github.com/gorilla/mux"
)

// Pinger reports whether the durable store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers adapts engine operations to HTTP.
type Handlers struct {
	engine    *service.Engine
	validator *Validator
	store     Pinger
}

func NewHandlers(engine *service.Engine, store Pinger) *Handlers {
	return &Handlers{engine: engine, validator: NewValidator(), store: store}
}

// RouterOptions carries the collaborators of the router besides the engine.
type RouterOptions struct {
	TokenManager security.TokenManager
	Metrics      *metrics.Metrics
	Store        Pinger
	Server       config.ServerConfig
	// Roles overrides config.EndpointRoles.
	Roles map[string][]security.Role
}

// NewRouter builds the /api/v1 surface plus /healthz and /metrics, wrapped
// in the request-scoped middleware chain.
func NewRouter(engine *service.Engine, opts RouterOptions) http.Handler {
	h := NewHandlers(engine, opts.Store)
	auth := NewAuth(opts.TokenManager, opts.Roles)

	r := mux.NewRouter()
	r.Use(Metrics(opts.Metrics), auth.Middleware)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Customers
	api.HandleFunc("/customers", h.RegisterCustomer).Methods(http.MethodPost)
	api.HandleFunc("/customers", h.ListCustomers).Methods(http.MethodGet)
	api.HandleFunc("/customers/{id}", h.GetCustomer).Methods(http.MethodGet)
	api.HandleFunc("/customers/{id}/loans", h.ListCustomerLoans).Methods(http.MethodGet)
	api.HandleFunc("/customers/{id}/eligibility", h.CheckEligibility).Methods(http.MethodGet)
	api.HandleFunc("/customers/{id}/status", h.ChangeCustomerStatus).Methods(http.MethodPut)
	api.HandleFunc("/customers/{id}/pay-debts", h.PayCustomerDebt).Methods(http.MethodPost)

	// Catalog
	api.HandleFunc("/tool-groups", h.RegisterToolGroup).Methods(http.MethodPost)
	api.HandleFunc("/tool-groups", h.ListToolGroups).Methods(http.MethodGet)
	api.HandleFunc("/tool-groups/{id}", h.GetToolGroup).Methods(http.MethodGet)
	api.HandleFunc("/tool-groups/{id}/units", h.ListUnits).Methods(http.MethodGet)
	api.HandleFunc("/tool-groups/{id}/units", h.ProvisionUnits).Methods(http.MethodPost)
	api.HandleFunc("/tool-groups/{id}/tariff", h.UpdateTariff).Methods(http.MethodPut)
	api.HandleFunc("/tool-groups/{id}/replacement-value", h.UpdateReplacementValue).Methods(http.MethodPut)
	api.HandleFunc("/tool-units/{id}/status", h.ChangeUnitStatus).Methods(http.MethodPut)
	api.HandleFunc("/tool-units/{id}/repair-resolution", h.ResolveRepair).Methods(http.MethodPut)

	// Loans
	api.HandleFunc("/loans", h.RegisterLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}", h.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/return", h.ReturnLoan).Methods(http.MethodPut)
	api.HandleFunc("/loans/{id}/pay-debts", h.PayLoanDebts).Methods(http.MethodPut)

	// Reports and history
	api.HandleFunc("/reports/active-loans", h.ActiveLoans).Methods(http.MethodGet)
	api.HandleFunc("/reports/top-tools", h.TopTools).Methods(http.MethodGet)
	api.HandleFunc("/reports/customers-with-debt", h.CustomersWithDebt).Methods(http.MethodGet)
	api.HandleFunc("/reports/overdue-customers", h.OverdueCustomers).Methods(http.MethodGet)
	api.HandleFunc("/reports/pending-payment", h.PendingPayment).Methods(http.MethodGet)
	api.HandleFunc("/kardex", h.ListKardex).Methods(http.MethodGet)

	var handler http.Handler = r
	handler = AccessLog(handler)
	handler = RequestID(handler)
	handler = Recovery(handler)
	if len(opts.Server.CORSAllowedOrigins) > 0 {
		handler = CORS(opts.Server)(handler)
	}
	return handler
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
