package models

import "strings"

// Reserved keys in the persistence substrate.
const (
	IndexKey         = "fm:index"
	ContentKeyPrefix = "fm:content:"
	SessionKey       = "fm:session"

	remotePointerPrefix = "fm:remote:pointer:"
)

// RemotePointerKey is the substrate key holding the pointer to the newest
// bundle of identity. Each identity has its own pointer.
func RemotePointerKey(identity string) string {
	return remotePointerPrefix + identity
}

// ContentKey is the substrate key holding the content blob of id.
func ContentKey(id string) string {
	return ContentKeyPrefix + id
}

// ContentID reverses ContentKey. ok is false for keys outside the content namespace.
func ContentID(key string) (id string, ok bool) {
	if !strings.HasPrefix(key, ContentKeyPrefix) {
		return "", false
	}
	id = strings.TrimPrefix(key, ContentKeyPrefix)
	return id, id != ""
}
