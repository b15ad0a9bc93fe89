// Package snapshot computes cheap version fingerprints for serialized data
// snapshots so clients can tell whether their copy is stale.
package snapshot

import "strconv"

// Fingerprint returns a deterministic rolling hash of payload rendered as
// lowercase hexadecimal. For each byte b: h = (h*31 + b) mod 2^32.
// It is not suitable for integrity or security checks.
func Fingerprint(payload string) string {
	var h uint32
	for i := 0; i < len(payload); i++ {
		h = h*31 + uint32(payload[i])
	}
	return strconv.FormatUint(uint64(h), 16)
}
