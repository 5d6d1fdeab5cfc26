package provision

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders n in the largest binary unit not exceeding it, with
// at most two decimals: 1536 -> "1.5 KB".
func FormatBytes(n uint64) string {
	v := float64(n)
	power := 0
	for v >= 1024 && power < len(byteUnits)-1 {
		v /= 1024
		power++
	}
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + byteUnits[power]
}

// FormatUptime renders a router uptime for people. Both the "hh:mm:ss" form
// and the compact "1d2h3m4s" form are accepted; anything else is returned
// unchanged.
func FormatUptime(s string) string {
	s = strings.TrimSpace(s)
	if parts := strings.Split(s, ":"); len(parts) == 3 {
		return parts[0] + "h " + parts[1] + "m " + parts[2] + "s"
	}

	var b strings.Builder
	for i, r := range s {
		b.WriteRune(r)
		if unicode.IsLetter(r) && i < len(s)-1 {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// CommentExpiry extracts the display expiry from an account comment written
// by AccountComment. It returns "" for comments of any other shape.
func CommentExpiry(comment string) string {
	parts := strings.Split(comment, " | ")
	if len(parts) != 3 || !strings.HasPrefix(parts[2], "scheduler=") {
		return ""
	}
	return parts[1]
}
