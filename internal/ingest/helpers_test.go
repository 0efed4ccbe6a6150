package ingest

import (
	"crypto/sha256"
	"fmt"
)

func sha256Hex(line string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(line)))
}
