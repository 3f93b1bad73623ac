// Package phone matches voice-transcribed phone numbers against stored ones.
package phone

import "strings"

const (
	minFragmentDigits = 4
	tailDigits        = 7
	codeDigits        = 4
)

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Match reports whether the noisy input refers to the stored number.
// Rules, in priority order:
//  1. exact digits match
//  2. stored number is a suffix of the input (caller added a country/area code)
//  3. input is a suffix of the stored number (caller gave a short number)
//  4. the last 7 digits agree
//
// Rules 3 and 4 need at least 4 input digits.
func Match(stored, input string) bool {
	s := Digits(stored)
	in := Digits(input)
	if s == "" || in == "" {
		return false
	}

	if s == in {
		return true
	}
	if strings.HasSuffix(in, s) {
		return true
	}
	if len(in) >= minFragmentDigits && strings.HasSuffix(s, in) {
		return true
	}

	inTail, sTail := tail(in, tailDigits), tail(s, tailDigits)
	return len(inTail) >= minFragmentDigits && inTail == sTail
}

// CodeMatches accepts either the bare 4-digit code or a longer spoken number
// whose last 4 digits are the code.
func CodeMatches(code, input string) bool {
	in := Digits(input)
	if code == "" || in == "" {
		return false
	}
	return tail(in, codeDigits) == code || in == code
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
