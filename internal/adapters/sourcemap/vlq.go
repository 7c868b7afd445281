package sourcemap

import (
	"strings"

	"go.trai.ch/zerr"
)

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

const (
	vlqShift        = 5
	vlqContinuation = 1 << vlqShift
	vlqMask         = vlqContinuation - 1
)

// appendVLQ writes value as a Base64 VLQ digit sequence.
func appendVLQ(b *strings.Builder, value int) {
	vlq := value << 1
	if value < 0 {
		vlq = (-value << 1) | 1
	}
	for {
		digit := vlq & vlqMask
		vlq >>= vlqShift
		if vlq > 0 {
			digit |= vlqContinuation
		}
		b.WriteByte(base64Alphabet[digit])
		if vlq == 0 {
			return
		}
	}
}

// decodeVLQ reads one value from s and returns it with the unread remainder.
func decodeVLQ(s string) (int, string, error) {
	var result, shift int
	for i := 0; i < len(s); i++ {
		digit := strings.IndexByte(base64Alphabet, s[i])
		if digit < 0 {
			return 0, "", zerr.With(zerr.New("invalid base64 VLQ digit"), "digit", string(s[i]))
		}
		result += (digit & vlqMask) << shift
		if digit&vlqContinuation == 0 {
			value := result >> 1
			if result&1 == 1 {
				value = -value
			}
			return value, s[i+1:], nil
		}
		shift += vlqShift
	}
	return 0, "", zerr.New("unterminated base64 VLQ")
}
