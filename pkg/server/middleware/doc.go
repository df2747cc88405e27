// Package middleware provides HTTP middleware for the event logger server:
// request ID assignment, structured request logging, and panic recovery.
package middleware
