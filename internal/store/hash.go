package store

import (
	"crypto/sha256"
	"fmt"
)

// ContentHash identifies one generation input: the source bytes plus a
// fingerprint of the settings that shape the output. Either changing
// invalidates the recorded result.
func ContentHash(src []byte, fingerprint string) string {
	h := sha256.New()
	fmt.Fprintf(h, "settings:%s\n", fingerprint)
	fmt.Fprintf(h, "size:%d\n", len(src))
	h.Write(src)
	return fmt.Sprintf("%x", h.Sum(nil))
}
