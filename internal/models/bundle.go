package models

// BundleVersion is the current bundle wire format.
const BundleVersion = 1

// Bundle is the document uploaded to remote storage. It carries only
// ciphertext: titles travel inside the encrypted Index.
type Bundle struct {
	Version   int          `json:"version"`
	Identity  string       `json:"identity"`
	Sequence  int64        `json:"sequence"`
	CreatedAt int64        `json:"createdAt"`
	Index     string       `json:"index"`
	Files     []BundleFile `json:"files"`
}

// BundleFile is one encrypted content blob inside a Bundle.
type BundleFile struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"createdAt"`
	Content   string `json:"content"`
}
