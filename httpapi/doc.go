// Package httpapi exposes the panelcore Engine over HTTP with a chi router.
//
// Routes:
//
//	POST /auth/login     email and password in, session cookie out
//	POST /auth/logout    revoke the current session and clear cookies
//	GET  /auth/me        caller and accessible modules
//	GET  /audit/logs     one page of the audit log
//	GET  /audit/export   CSV or JSON attachment
//
// Errors are mapped by class: unauthenticated 401, forbidden 403, validation 400
// with the violation list, not found 404, storage 503.
package httpapi
