package api

import (
	"net/http"

	"github.com/goccy/go-json"
)

// Error is a generic error structure that is used to send error responses to the client.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is a generic response structure that is used to send responses to the client.
type Response struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Warning string      `json:"warning,omitempty"` // Set when the data is partial.
	Error   *Error      `json:"error,omitempty"`
}

// Error message
func (e *Error) Error() string {
	return e.Message
}

// Set data to response
func (rsp *Response) SetData(data interface{}) {
	rsp.Data = data
	rsp.Error = nil
}

// Set error to response
func (rsp *Response) SetError(code string, message string) {
	rsp.Data = nil
	rsp.Error = &Error{
		Code:    code,
		Message: message,
	}
}

// Set warning to response, keeping the data
func (rsp *Response) SetWarning(message string) {
	rsp.Warning = message
}

// Send success response to client
func (rsp *Response) Ok(w http.ResponseWriter) {
	rsp.Status = "ok"
	rsp.send(w, http.StatusOK)
}

// Send created response to client
func (rsp *Response) Created(w http.ResponseWriter) {
	rsp.Status = "ok"
	rsp.send(w, http.StatusCreated)
}

// Send error response to client
func (rsp *Response) BadRequest(w http.ResponseWriter) {
	rsp.fail(w, http.StatusBadRequest, "bad_request", "Bad request")
}

// Send error response to client
func (rsp *Response) InternalServerError(w http.ResponseWriter) {
	rsp.fail(w, http.StatusInternalServerError, "internal_server_error", "Internal server error")
}

// Send error response to client
func (rsp *Response) ServiceUnavailable(w http.ResponseWriter) {
	rsp.fail(w, http.StatusServiceUnavailable, "service_unavailable", "Service unavailable")
}

// Send error response to client
func (rsp *Response) NotFound(w http.ResponseWriter) {
	rsp.fail(w, http.StatusNotFound, "not_found", "Not found")
}

// Send error response to client
func (rsp *Response) Unauthorized(w http.ResponseWriter) {
	rsp.fail(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
}

// Send error response to client
func (rsp *Response) MethodNotAllowed(w http.ResponseWriter) {
	rsp.fail(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
}

func (rsp *Response) fail(w http.ResponseWriter, status int, code string, message string) {
	rsp.Status = "error"
	if rsp.Error == nil {
		rsp.Error = &Error{
			Code:    code,
			Message: message,
		}
	}

	rsp.send(w, status)
}

func (rsp *Response) send(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rsp)
}
