package util

// --------------------------------------------------------------------------
// Hash Functions
// --------------------------------------------------------------------------

// HashString generates a 64 bit FNV-1a hash for a string, mixed with a seed.
// The serve command uses it to turn human readable replica names
// ("node-1") into the numeric replica ids dragonboat expects, so the
// result must stay stable across releases.
func HashString(s string, seed uint64) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	hash := uint64(offset64) ^ seed
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}

	return hash
}
