// Package api exposes the file manager over a JSON REST API using chi.
//
// Routes under /api/files, /api/sync, /api/restore and /api/remote need an
// open session (POST /api/session) and answer 401 otherwise.
package api
