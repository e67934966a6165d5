// Package server hosts the Fiber HTTP service and its request middleware
// chain. It exposes the router constructor that binds the public asset route
// to an AssetHandler implementation, plus bootstrap glue shared by the main
// binary. Diagnostics endpoints under /-/ live in the routes subpackage and
// are registered after the app is built, so keep exports narrow and accept
// explicit dependencies.
package server
