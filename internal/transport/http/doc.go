// Package http contains the chi HTTP handlers for the enrichment
// service: input uploads, run control and artifact downloads, plus
// health and metrics endpoints. Handlers translate between HTTP and
// the services layer; they hold no business logic of their own.
package http
