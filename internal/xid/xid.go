// Package xid generates the row identifiers the application mints itself
// (products, sales, ledger entries, adjustments). Not sortable beyond
// millisecond granularity; uniqueness comes from the random tail.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// New returns "<prefix>-<unix millis, base 36>-<12 hex chars>". If the
// entropy source fails the timestamp part stands alone.
func New(prefix string) string {
	id := prefix + "-" + strconv.FormatInt(time.Now().UnixMilli(), 36)
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return id
	}
	return id + "-" + hex.EncodeToString(buf)
}
