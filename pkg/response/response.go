package response

import (
	"encoding/json"
	"net/http"
)

// Canonical status names of the Firebase callable protocol. Client SDKs map
// any other value to internal.
const (
	CodeInvalidArgument   = "INVALID_ARGUMENT"
	CodeInternal          = "INTERNAL"
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeResourceExhausted = "RESOURCE_EXHAUSTED"
	CodeNotFound          = "NOT_FOUND"
)

// CallableResponse is the envelope returned by callable endpoints
type CallableResponse struct {
	Result interface{} `json:"result,omitempty"`
	Error  *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Success is the result of a callable that only acknowledges
type Success struct {
	Success bool `json:"success"`
}

// JSON sends v as a JSON body
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Result sends a successful callable response
func Result(w http.ResponseWriter, result interface{}) {
	JSON(w, http.StatusOK, CallableResponse{Result: result})
}

// OK sends {"result": {"success": true}}
func OK(w http.ResponseWriter) {
	Result(w, Success{Success: true})
}

// Error sends a callable error response
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, CallableResponse{
		Error: &ErrorInfo{
			Status:  code,
			Message: message,
		},
	})
}

// InvalidArgument sends a 400 response
func InvalidArgument(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, CodeInvalidArgument, message)
}

// Unauthenticated sends a 401 response
func Unauthenticated(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, CodeUnauthenticated, message)
}

// NotFound sends a 404 response
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, CodeNotFound, message)
}

// Internal sends a 500 response
func Internal(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, CodeInternal, message)
}
