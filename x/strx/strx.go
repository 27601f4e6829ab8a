package strx

// Coalesce returns s if non-empty, otherwise d.
func Coalesce(s, d string) string {
	if s == "" {
		return d
	}
	return s
}

// CString returns the bytes of a NUL padded fixed-width field up to the
// first NUL.
func CString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// Mask hides all but the first character of a secret for logs.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	return s[:1] + "***"
}
