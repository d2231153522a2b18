// Package handler implements the read-only inspection endpoints.
package handler
