package soap

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
)

// encodeBatch is the number of code units collected before flushing into the
// output builder.
const encodeBatch = 500

// Private markers bracketing the hex codepoint of a folded surrogate pair.
// Both consist only of characters HTMLEncode leaves untouched.
const (
	entityOpen  = "CRMEntityReferenceOpen"
	entityClose = "CRMEntityReferenceClose"
)

const (
	surrogateMin     = 0xD800
	surrogateMax     = 0xDFFF
	lowSurrogateMin  = 0xDC00
	replacementUnit  = 0xFFFD
	supplementaryMin = 0x10000
)

// Unknown is the sentinel for a value of indeterminate type. EncodeValue
// returns it unchanged.
type Unknown struct{}

// HTMLEncode replaces every character outside the safe set
// {A-Z, a-z, 0-9, space, '.', ',', '-', '_'} with a decimal numeric character
// entity whose value is the UTF-16 code unit.
func HTMLEncode(s string) string {
	return htmlEncodeUnits(utf16.Encode([]rune(s)))
}

func htmlEncodeUnits(units []uint16) string {
	if len(units) == 0 {
		return ""
	}

	var out strings.Builder
	out.Grow(len(units))
	batch := make([]byte, 0, encodeBatch*2)
	count := 0

	for _, c := range units {
		if isSafeUnit(c) {
			batch = append(batch, byte(c))
		} else {
			batch = append(batch, '&', '#')
			batch = strconv.AppendUint(batch, uint64(c), 10)
			batch = append(batch, ';')
		}
		count++
		if count == encodeBatch {
			out.Write(batch)
			batch = batch[:0]
			count = 0
		}
	}
	out.Write(batch)

	return out.String()
}

func isSafeUnit(c uint16) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == ' ', c == '.', c == ',', c == '-', c == '_':
		return true
	}
	return false
}

// SurrogateSafeEncode encodes s like HTMLEncode, except that characters
// outside the Basic Multilingual Plane become a single hexadecimal entity
// (&#x1f600;) instead of two decimal entities for the surrogate halves.
func SurrogateSafeEncode(s string) string {
	return SurrogateSafeEncodeUnits(utf16.Encode([]rune(s)))
}

// SurrogateSafeEncodeUnits is SurrogateSafeEncode over raw UTF-16 code units.
// Unpaired surrogate halves, which a Go string cannot carry, are replaced with
// U+FFFD before encoding.
func SurrogateSafeEncodeUnits(units []uint16) string {
	folded := make([]uint16, 0, len(units))
	for i := 0; i < len(units); i++ {
		c0 := units[i]
		if c0 >= surrogateMin && c0 <= surrogateMax && i+1 < len(units) {
			c1 := units[i+1]
			if c1 >= lowSurrogateMin && c1 <= surrogateMax {
				cp := (rune(c0)-surrogateMin)*1024 + rune(c1&1023) + supplementaryMin
				marker := entityOpen + strconv.FormatInt(int64(cp), 16) + entityClose
				for j := 0; j < len(marker); j++ {
					folded = append(folded, uint16(marker[j]))
				}
				i++
				continue
			}
		}
		folded = append(folded, c0)
	}

	for i, c := range folded {
		if c >= surrogateMin && c <= surrogateMax {
			folded[i] = replacementUnit
		}
	}

	encoded := htmlEncodeUnits(folded)
	encoded = strings.ReplaceAll(encoded, entityOpen, "&#x")
	return strings.ReplaceAll(encoded, entityClose, ";")
}

// Encode is the encoder every envelope builder uses for caller-supplied text.
func Encode(s string) string {
	return SurrogateSafeEncode(s)
}

// EncodeValue encodes an arbitrary value for embedding in XML. nil and
// Unknown are returned unchanged; strings are encoded; any other value is
// formatted with fmt and then encoded.
func EncodeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case Unknown, *Unknown:
		return v
	case string:
		return Encode(val)
	case fmt.Stringer:
		return Encode(val.String())
	default:
		return Encode(fmt.Sprint(val))
	}
}

// Decode returns the string form of v. Responses arrive already parsed, so
// no unescaping is needed.
func Decode(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
