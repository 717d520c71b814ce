package response

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Base is the part every response body shares. Endpoint bodies embed it and
// add their own fields next to it.
type Base struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Envelope is a Base carrying a typed payload under "data".
type Envelope[T any] struct {
	Base
	Data T `json:"data"`
}

// ErrorBody is returned for every failed request.
type ErrorBody struct {
	Base
	ErrorType string            `json:"error_type,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func OK(message string) Base {
	return Base{Status: StatusSuccess, Message: message}
}

func Success[T any](message string, data T) Envelope[T] {
	return Envelope[T]{Base: OK(message), Data: data}
}

func Error(message, errorType string) ErrorBody {
	return ErrorBody{Base: Base{Status: StatusError, Message: message}, ErrorType: errorType}
}

func ValidationError(message string, fields map[string]string) ErrorBody {
	body := Error(message, "validation_error")
	body.Errors = fields
	return body
}
