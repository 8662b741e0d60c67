package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Key derives a deterministic cache key from a namespace prefix, a
// human-readable subject (ticker, coin pair, series name) and the request
// parameters. The parameters are serialized with sorted keys before
// hashing, so two calls with the same parameters in different order
// produce the same key. The short digest keeps keys bounded regardless
// of how many parameters the request carries.
func Key(prefix, subject string, params map[string]string) string {
	canonical, _ := json.Marshal(params) // map keys are sorted by encoding/json
	source := subject + "::" + string(canonical)
	sum := sha256.Sum256([]byte(source))
	digest := hex.EncodeToString(sum[:])[:16]

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte(':')
	if subject != "" {
		b.WriteString(subject)
		b.WriteByte(':')
	}
	b.WriteString(digest)
	return b.String()
}
