package redemption

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"
)

// codePrefix brands every redemption code so cashiers can recognize
// one at a glance.
const codePrefix = "LSH"

const base36Digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateCode produces a human-presentable redemption code from the
// attempt timestamp: the prefix, the millisecond timestamp in base 36
// (upper-cased, time-ordered), and five random base-36 characters so
// two attempts in the same millisecond still diverge. Codes are never
// derived from the deal ID alone, since a deterministic per-deal code
// would hand every customer the same token and defeat the one-time-use
// guarantee.
//
// A code is generated once per redemption row and stored with it;
// re-displaying an existing redemption returns the stored code.
func GenerateCode(ts time.Time) (string, error) {
	var b strings.Builder
	b.WriteString(codePrefix)
	b.WriteString(strings.ToUpper(strconv.FormatInt(ts.UnixMilli(), 36)))

	suffix, err := randBase36(5)
	if err != nil {
		return "", err
	}
	b.WriteString(suffix)
	return b.String(), nil
}

// randBase36 draws n uniformly distributed base-36 characters. Bytes at
// or above 252, the largest multiple of 36 below 256, are rejected so
// the reduction cannot favor the low digits.
func randBase36(n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, c := range buf {
			if len(out) == n {
				break
			}
			if c >= 252 {
				continue
			}
			out = append(out, base36Digits[int(c)%len(base36Digits)])
		}
	}
	return string(out), nil
}
