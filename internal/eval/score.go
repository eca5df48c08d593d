package eval

import (
	"regexp"
	"strconv"
)

var (
	passedRe = regexp.MustCompile(`(\d+) passed`)
	failedRe = regexp.MustCompile(`(\d+) failed`)
	errorRe  = regexp.MustCompile(`(\d+) error`)
)

// ParseTestScore extracts a best-effort partial score from test-runner
// summary output, e.g. "8 passed, 2 failed" → 0.8. Counts may appear in
// any order anywhere in the output. Returns 0.0 when no count is found.
func ParseTestScore(output string) float64 {
	count := func(re *regexp.Regexp) int {
		m := re.FindStringSubmatch(output)
		if m == nil {
			return 0
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0
		}
		return n
	}

	passed := count(passedRe)
	failed := count(failedRe)
	errors := count(errorRe)

	total := passed + failed + errors
	if total == 0 {
		return 0.0
	}
	return float64(passed) / float64(total)
}
