// config/security_config.go
package config

import "toolrent-backend/internal/security"

var (
	adminOnly = []security.Role{security.RoleAdmin}
	staff     = []security.Role{security.RoleAdmin, security.RoleEmployee}
)

// EndpointRoles maps "METHOD route-template" to the roles allowed to call
// it. Routes absent from the map are public. Templates are the gorilla/mux
// path templates registered by the router.
var EndpointRoles = map[string][]security.Role{
	// Customers
	"POST /api/v1/customers":                 adminOnly,
	"GET /api/v1/customers":                  staff,
	"GET /api/v1/customers/{id}":             staff,
	"GET /api/v1/customers/{id}/loans":       staff,
	"GET /api/v1/customers/{id}/eligibility": staff,
	"PUT /api/v1/customers/{id}/status":      adminOnly,
	"POST /api/v1/customers/{id}/pay-debts":  staff,

	// Catalog
	"POST /api/v1/tool-groups":                       adminOnly,
	"GET /api/v1/tool-groups":                        staff,
	"GET /api/v1/tool-groups/{id}":                   staff,
	"GET /api/v1/tool-groups/{id}/units":             staff,
	"POST /api/v1/tool-groups/{id}/units":            adminOnly,
	"PUT /api/v1/tool-groups/{id}/tariff":            adminOnly,
	"PUT /api/v1/tool-groups/{id}/replacement-value": adminOnly,
	"PUT /api/v1/tool-units/{id}/status":             adminOnly,
	"PUT /api/v1/tool-units/{id}/repair-resolution":  adminOnly,

	// Loans
	"POST /api/v1/loans":               staff,
	"GET /api/v1/loans/{id}":           staff,
	"PUT /api/v1/loans/{id}/return":    staff,
	"PUT /api/v1/loans/{id}/pay-debts": staff,

	// Reports and history
	"GET /api/v1/reports/active-loans":        staff,
	"GET /api/v1/reports/top-tools":           staff,
	"GET /api/v1/reports/customers-with-debt": staff,
	"GET /api/v1/reports/overdue-customers":   staff,
	"GET /api/v1/reports/pending-payment":     staff,
	"GET /api/v1/kardex":                      staff,
}
