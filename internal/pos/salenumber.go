package pos

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// SaleNumber derives a human-readable sale number from the given time. The
// random suffix makes collisions overwhelmingly unlikely without requiring a
// store round-trip; uniqueness is still enforced by the sales table.
func SaleNumber(t time.Time) string {
	buf := make([]byte, 2)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("INV-%s-%04d", t.UTC().Format("20060102-150405"), t.Nanosecond()%10000)
	}
	return fmt.Sprintf("INV-%s-%s", t.UTC().Format("20060102-150405"), hex.EncodeToString(buf))
}
