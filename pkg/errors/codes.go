package errors

// Codes shared between domain services and the HTTP layer.
const (
	CodeInvalidInput        = "invalid_input"
	CodeLocationNotFound    = "location_not_found"
	CodeWeatherUnavailable  = "weather_unavailable"
	CodeTransportFailure    = "transport_failure"
	CodeGenerationFailed    = "generation_failed"
	CodeConfiguration       = "configuration_error"
	CodeVisualizationFailed = "visualization_failed"
	CodeConflict            = "conflict"
	CodeSessionNotFound     = "session_not_found"
	CodeInvalidToken        = "invalid_token"
	CodeSessionStore        = "session_store_error"
)
