// Package services implements the file manager's use cases on top of the
// encrypted stores.
//
//   - FileService: create, read, list, update, rename and delete files while
//     keeping the index and the content blobs in lockstep.
//   - MirrorService: bundle every encrypted file into one document, upload it
//     to remote storage and keep a single pointer to the newest bundle.
//   - SessionService: hold the caller-supplied master secret between runs.
//
// A Workspace ties FileService and MirrorService to one unlocked Keyring.
// Mirror failures never fail a local operation; they are logged.
package services
