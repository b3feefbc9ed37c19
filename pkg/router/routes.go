package router

// View names rendered by the handlers package.
const (
	ViewLogin         = "login"
	ViewDashboard     = "dashboard"
	ViewInvoices      = "invoices"
	ViewInvoiceNew    = "invoice-new"
	ViewInvoice       = "invoice"
	ViewCustomers     = "customers"
	ViewSubscriptions = "subscriptions"
	ViewTransactions  = "transactions"
	ViewBankAccounts  = "bank-accounts"
	ViewProfile       = "profile"
	ViewNotFound      = "not-found"
)

// Route is one entry of the static navigation table.
type Route struct {
	Path         string `json:"path"`
	RequiredAuth bool   `json:"required_auth"`
	View         string `json:"view"`
}

// DefaultRoutes is the application's navigation table.
func DefaultRoutes() []Route {
	return []Route{
		{Path: "/login", RequiredAuth: false, View: ViewLogin},
		{Path: "/", RequiredAuth: true, View: ViewDashboard},
		{Path: "/invoices", RequiredAuth: true, View: ViewInvoices},
		{Path: "/invoices/new", RequiredAuth: true, View: ViewInvoiceNew},
		{Path: "/invoices/{id}", RequiredAuth: true, View: ViewInvoice},
		{Path: "/customers", RequiredAuth: true, View: ViewCustomers},
		{Path: "/subscriptions", RequiredAuth: true, View: ViewSubscriptions},
		{Path: "/transactions", RequiredAuth: true, View: ViewTransactions},
		{Path: "/bank-accounts", RequiredAuth: true, View: ViewBankAccounts},
		{Path: "/profile", RequiredAuth: true, View: ViewProfile},
	}
}
