package flow

// CodeLength is the fixed length of a one-time code
const CodeLength = 6

// NormalizeCode strips every non-digit character from raw and truncates the
// result to CodeLength. Pure and idempotent, so it is safe to apply on every
// keystroke as well as right before submission.
func NormalizeCode(raw string) string {
	buf := make([]byte, 0, CodeLength)
	for i := 0; i < len(raw) && len(buf) < CodeLength; i++ {
		c := raw[i]
		if c >= '0' && c <= '9' {
			buf = append(buf, c)
		}
	}
	return string(buf)
}
