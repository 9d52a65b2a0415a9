package resolver

import (
	"github.com/hbollon/go-edlib"
)

// Ratio is the indel similarity of a and b scaled to 0..100.
func Ratio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	if la+lb == 0 {
		return 100
	}
	if la == 0 || lb == 0 {
		return 0
	}
	return 200 * float64(edlib.LCS(a, b)) / float64(la+lb)
}

// PartialRatio is the best Ratio of the shorter string against every
// same-length window of the longer one, including windows cut off at either end.
func PartialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	m, n := len(short), len(long)
	if m == 0 {
		if n == 0 {
			return 100
		}
		return 0
	}

	needle := string(short)
	best := 0.0
	consider := func(window []rune) bool {
		if r := Ratio(needle, string(window)); r > best {
			best = r
		}
		return best == 100
	}

	for i := 0; i+m <= n; i++ {
		if consider(long[i : i+m]) {
			return best
		}
	}
	for k := m - 1; k > 0; k-- {
		if consider(long[:k]) || consider(long[n-k:]) {
			return best
		}
	}
	return best
}
