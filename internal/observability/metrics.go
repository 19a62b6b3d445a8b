package observability

// Metric keys resolved through Metrics. Labels are fixed per key and listed
// beside it; prometrics.Standard registers the matching vectors.
const (
	// Use case RED metrics written by application.Run.
	MUsecaseRequests MetricKey = "usecase_requests_total"   // use_case, outcome
	MUsecaseDuration MetricKey = "usecase_duration_seconds" // use_case

	// HTTP surface.
	MHTTPRequests        MetricKey = "http_requests_total"           // method, route, status
	MHTTPRequestDuration MetricKey = "http_request_duration_seconds" // method, route, status

	// Calls to collaborators: catalog, promo lookups and the outbox.
	MExternalRequests        MetricKey = "external_requests_total"           // peer, endpoint, outcome
	MExternalRequestDuration MetricKey = "external_request_duration_seconds" // peer, endpoint

	// Cart business signals.
	MCartStockWarnings  MetricKey = "cart_stock_warnings_total" // product_id
	MCartCheckoutAmount MetricKey = "cart_checkout_amount"      // currency; histogram of final totals
)
