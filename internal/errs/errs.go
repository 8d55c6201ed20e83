// Package errs defines the error shapes returned to API clients.
//
// Every non-2xx response produced by this service carries an HTTPError
// body, so clients can switch on a stable machine-readable code:
//
//	{"code":"NOT_FOUND","message":"Forecast not found","status":404,...}
//
// Field-level errors are attached for invalid request parameters.
package errs
