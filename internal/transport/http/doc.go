// Package http contains the chi HTTP handlers for the dashboard API.
// Handlers depend on service interfaces rather than concrete services so
// tests can substitute stubs. Errors are rendered as RFC 7807 problem
// details through the shared error handler.
package http
