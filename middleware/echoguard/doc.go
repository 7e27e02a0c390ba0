// Package echoguard adapts the engine's authentication and authorization
// to Echo applications. It mirrors the net/http middleware in the parent
// package with echo.MiddlewareFunc signatures; route metadata travels in
// the echo.Context instead of a request scope.
package echoguard
