// Package cli implements the interactive shell of the file manager.
//
// The shell reads one command per line. Commands that need more input
// (titles, content, secrets) prompt for it on the following lines; secrets
// are read without echo when stdin is a terminal.
package cli
