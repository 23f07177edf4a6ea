package api

// HTTPError is returned by endpoint handlers. Only Message and Redirect
// reach the client; ErrorLog is logged.
type HTTPError struct {
	StatusCode int
	Message    string
	ErrorLog   error
	Redirect   string
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.ErrorLog
}

type ApiError struct {
	Error    string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}
