// Package sqlerr translates database driver errors into API errors.
//
// The API only reads, so the interesting failures are "no such row",
// "database unreachable" and "the query itself broke". The first becomes
// a 404, the second a 503, everything else a generic 500 whose details are
// kept out of the response.
package sqlerr
