package edustake

import (
	"encoding/json"
	"strconv"

	"github.com/zeebo/xxh3"
)

// HashRecord returns a short content hash of a record's JSON encoding.
// The sync adapter compares these against its ledger to decide which
// records still need a push. Returns "" when the record cannot be
// marshaled, which callers treat as "always dirty".
func HashRecord(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return strconv.FormatUint(xxh3.Hash(b), 16)
}
