package listing

// Query specs of the billing API's list endpoints.
var (
	Invoices = Spec{
		Sorts:        []string{"issued_at", "due_at", "total", "number", "customer"},
		DefaultOrder: Desc,
		Filters:      []string{"status", "customer_id", "q"},
	}
	Customers = Spec{
		Sorts:        []string{"name", "created_at", "country"},
		DefaultOrder: Asc,
		Filters:      []string{"country", "q"},
	}
	Subscriptions = Spec{
		Sorts:        []string{"renews_at", "amount", "plan"},
		DefaultOrder: Asc,
		Filters:      []string{"status", "plan", "customer_id"},
	}
	Transactions = Spec{
		Sorts:        []string{"created_at", "amount"},
		DefaultOrder: Desc,
		Filters:      []string{"status", "type"},
	}
)
