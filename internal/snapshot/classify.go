package snapshot

import (
	"bytes"

	"github.com/starford/snapcode/internal/storage"
)

// SniffSize is how many leading bytes are inspected to tell text from binary.
const SniffSize = 1024

// IsText reports whether the file at rel looks like text: no NUL byte in its
// first SniffSize bytes. Any read failure classifies the file as binary so an
// unreadable file is left out instead of aborting a traversal.
func IsText(store storage.Provider, rel string) bool {
	prefix, err := store.ReadPrefix(rel, SniffSize)
	if err != nil {
		return false
	}
	return isTextPrefix(prefix)
}

func isTextPrefix(prefix []byte) bool {
	if len(prefix) > SniffSize {
		prefix = prefix[:SniffSize]
	}
	return bytes.IndexByte(prefix, 0) < 0
}
