package handler

import (
	"encoding/json"
	"time"
)

// Response is the standard API response envelope.
// All JSON responses use this format except /metrics.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// BackendStatus is one entry of GET /backends.
type BackendStatus struct {
	Backend       string `json:"backend"`
	Available     bool   `json:"available"`
	Async         bool   `json:"async"`
	Notifies      bool   `json:"notifies"`
	Persistent    bool   `json:"persistent"`
	Shared        bool   `json:"shared"`
	MaxBytes      int64  `json:"max_bytes"`
	PerEntryLimit bool   `json:"per_entry_limit"`
	Entries       int    `json:"entries"`
	UsageBytes    int64  `json:"usage_bytes"`
	QuotaBytes    int64  `json:"quota_bytes"`
}

// KeysResponse is the body of GET /keys.
type KeysResponse struct {
	Backend string   `json:"backend"`
	Keys    []string `json:"keys"`
}

// EntryResponse is the body of GET /keys/{key}.
type EntryResponse struct {
	Key     string          `json:"key"`
	Backend string          `json:"backend"`
	Value   json.RawMessage `json:"value"`

	// TTLMillis is the remaining lifetime; omitted for entries without
	// expiry.
	TTLMillis *int64 `json:"ttl_ms,omitempty"`
}
