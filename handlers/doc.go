// Package handlers exposes the dispatch service over a small JSON API.
//
//	POST   /v1/emails              send or queue an email
//	GET    /v1/emails/{id}         look up an outbox record
//	POST   /v1/emails/{id}/deliver deliver a queued or failed record now
//	POST   /v1/suppressions        add an address to the suppression list
//	GET    /v1/suppressions/{email}
//	DELETE /v1/suppressions/{email}
//
// Every error is rendered by [ErrorHandler] as a JSON body with ok=false.
package handlers
