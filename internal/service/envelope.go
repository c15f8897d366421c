package service

import "net/http"

// Envelope is the uniform JSON body of every API response.
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	Error   string   `json:"error,omitempty"` // diagnostic detail, development only
}

// Result pairs an envelope with the HTTP status it should be rendered with.
type Result struct {
	Status int
	Body   Envelope
}

func ok(status int, message string, data any) Result {
	return Result{Status: status, Body: Envelope{Success: true, Message: message, Data: data}}
}

func fail(status int, message string) Result {
	return Result{Status: status, Body: Envelope{Success: false, Message: message}}
}

// ValidationFailed is the result for input rejected before any core logic.
func ValidationFailed(errs []string) Result {
	r := fail(http.StatusBadRequest, "Validation failed")
	r.Body.Errors = errs
	return r
}

// Failure renders a bare error envelope. Transport-level rejections such as
// the bearer gate and rate limiter use it to keep a single body shape.
func Failure(status int, message string) Result {
	return fail(status, message)
}
