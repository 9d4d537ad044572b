// Package fileid derives deterministic history ids for documents processed in a run.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "doc:"

// DocumentID returns a stable id for the document at path within run runID.
// The same run and path always yield the same id; the path is cleaned first.
func DocumentID(runID, path string) string {
	h := sha256.New()
	h.Write([]byte(runID))
	h.Write([]byte{0})
	h.Write([]byte(filepath.Clean(path)))
	return prefix + hex.EncodeToString(h.Sum(nil))
}
