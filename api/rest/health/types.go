package health

// Response for health and readiness checks
type Response struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
