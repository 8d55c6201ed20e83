// Package repository holds the SQL behind every forecast lookup.
//
// Repositories never open connections themselves: each method receives the
// request's database.Querier, so the caller decides the session's lifetime.
// All queries are parameterized SELECTs.
package repository
