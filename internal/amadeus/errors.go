package amadeus

import (
	"encoding/json"
	"strings"
)

const genericFailure = "amadeus request failed"

// UpstreamError is returned for transport failures, authentication failures
// and errors reported by the Amadeus API.  Detail carries the provider's own
// message when the response body had one.
type UpstreamError struct {
	StatusCode int             // 0 when no HTTP response was received
	Detail     string          // provider detail or a generic message
	Body       json.RawMessage // upstream error body, if any
	Err        error           // underlying transport error, if any
}

func (e *UpstreamError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return genericFailure
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ClientFault reports whether the upstream rejected the request itself
// (bad parameters, rate limit) rather than failing to serve it.
func (e *UpstreamError) ClientFault() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// errorBody covers both error shapes Amadeus returns: the API
// `{"errors":[{"detail":...}]}` list and the OAuth
// `{"error":..., "error_description":...}` object.
type errorBody struct {
	Errors []struct {
		Status json.Number `json:"status"`
		Code   json.Number `json:"code"`
		Title  string      `json:"title"`
		Detail string      `json:"detail"`
	} `json:"errors"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
}

// detailFrom extracts the most specific human readable message from an
// upstream error body.
func detailFrom(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if len(eb.Errors) > 0 {
		if d := strings.TrimSpace(eb.Errors[0].Detail); d != "" {
			return d
		}
		if t := strings.TrimSpace(eb.Errors[0].Title); t != "" {
			return t
		}
	}
	if eb.ErrorDescription != "" {
		return eb.ErrorDescription
	}
	if eb.Message != "" {
		return eb.Message
	}
	return eb.Error
}

func newUpstreamError(status int, body []byte, err error) *UpstreamError {
	ue := &UpstreamError{StatusCode: status, Err: err, Detail: genericFailure}
	if len(body) > 0 && json.Valid(body) {
		ue.Body = json.RawMessage(body)
		if d := detailFrom(body); d != "" {
			ue.Detail = d
		}
	}
	return ue
}
