// Package models defines the file manager's data model: file records, the
// index that lists them, the bundle mirrored to remote storage, and the
// reserved keys under which everything is persisted.
package models
