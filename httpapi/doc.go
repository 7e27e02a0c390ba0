// Package httpapi serves the engine over HTTP: login, refresh, logout,
// registration, profile, one-time codes, and the operator endpoints, each
// behind the full middleware pipeline.
//
// Every response, success or failure, is the JSON envelope from the
// middleware package. The route table is data: each entry pairs a path and
// handler with the [middleware.RouteMeta] that drives authentication,
// authorization, and validation for it.
package httpapi
