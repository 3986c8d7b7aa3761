package redemption

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCodeFormat(t *testing.T) {
	ts := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	code, err := GenerateCode(ts)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(code, "LSH"))
	assert.Regexp(t, `^LSH[0-9A-Z]+$`, code)

	// The timestamp portion must decode back to the source millisecond.
	tsPart := strings.TrimPrefix(code, "LSH")
	tsPart = tsPart[:len(tsPart)-5] // strip random suffix
	ms, err := strconv.ParseInt(strings.ToLower(tsPart), 36, 64)
	require.NoError(t, err)
	assert.Equal(t, ts.UnixMilli(), ms)
}

func TestGenerateCodeUniquePerAttempt(t *testing.T) {
	// Same millisecond, many attempts: the random suffix must keep
	// collisions vanishingly rare even when the clock does not move.
	ts := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateCode(ts)
		require.NoError(t, err)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestRandBase36Uniform(t *testing.T) {
	// Enough samples that every one of the 36 characters shows up, and
	// no character dominates: with rejection sampling each digit lands
	// near samples/36, so a heavy skew toward 0-3 would trip the cap.
	counts := make(map[byte]int)
	const draws = 2000
	for i := 0; i < draws; i++ {
		s, err := randBase36(5)
		require.NoError(t, err)
		require.Len(t, s, 5)
		for j := 0; j < len(s); j++ {
			assert.Contains(t, base36Digits, string(s[j]))
			counts[s[j]]++
		}
	}
	samples := draws * 5
	expected := samples / 36
	for i := 0; i < len(base36Digits); i++ {
		c := counts[base36Digits[i]]
		assert.Greater(t, c, 0, "character %c never drawn", base36Digits[i])
		assert.Less(t, c, expected*2, "character %c drawn far too often", base36Digits[i])
	}
}

func TestGenerateCodeTimeOrdered(t *testing.T) {
	a, err := GenerateCode(time.UnixMilli(1_700_000_000_000))
	require.NoError(t, err)
	b, err := GenerateCode(time.UnixMilli(1_800_000_000_000))
	require.NoError(t, err)
	// Same base-36 width for both, so lexical order follows time order.
	assert.Less(t, a[:len(a)-5], b[:len(b)-5])
}
