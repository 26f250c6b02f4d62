// Package models - API response types.
// This file defines the outgoing JSON bodies of the public endpoints.
//
// Response Design Principles:
// - Form endpoints answer with exactly one of two shapes: a success body or
//   an error body carrying a single generic message
// - Error bodies never carry field names, submitted values or internal detail
// - RFC3339 timestamps in the health document
package models

import (
	"time"
)

// SubmissionResponse is the body of a successful form submission.
type SubmissionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every rejected request. Message is one of a
// fixed set of literal strings chosen by the endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Health Status Constants
//
// Health Monitoring:
// - Healthy: All systems operational
// - Degraded: Partial functionality
// - Unhealthy: Major issues affecting core functionality
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

func NewSubmissionResponse(message string) *SubmissionResponse {
	return &SubmissionResponse{
		Success: true,
		Message: message,
	}
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		Error: message,
	}
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}
}

func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}
