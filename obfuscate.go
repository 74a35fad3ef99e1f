package icewire

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// charmString is the fixed ~300-byte English-prose key table ("the
// lymerick") the obfuscation function indexes into. Reproduced bit-exact,
// trailing carriage return included, from the reference implementation.
const charmString = "Ginger was a big fat horse, a big fat horse was she. But don't tell that to MaryLou because in love with her is she.I tell you this in private, because I thought that you should know.But never say to MaryLou or both our heads will go.I've said it once, I've said it twice, I'll say it once again.Not a word of this to you know who or it will be our end!\r"

// The five fixed checksum strings sent during the handshake (§4.C7 step 5),
// plus the literal "0" appended as a sixth value by the caller.
var checksums = [5]string{
	"90",
	"938749351",
	"1123530166",
	"-1040381015",
	"-878176803",
}

// versionInfoGUID is the constant GUID-like string sent as VERSION_INFO.
const versionInfoGUID = "{0A7FA8AB-9BC1-49b6-9C66-5AFFA4CD57AB}"

// variant selects one of the five keyed obfuscation formulas (§4.C4).
type variant int

const (
	variantZero variant = iota
	variantOne
	variantTwo
	variantThree
	variantFour
)

// pseudoTime is the per-session LCG counter that drives the trailing digit
// of every encoded group. initPseudoTime seeds it to wall-clock minus 8h,
// matching the reference's INIT_TIME macro (PST offset, baked in rather
// than computed from a timezone database).
type pseudoTime int64

func initPseudoTime(nowUnix int64) pseudoTime {
	return pseudoTime(nowUnix - 28800)
}

// advance applies the LCG step t' = t*214013 + 2530876 and returns the new
// value; this is called once per emitted output character.
func (t pseudoTime) advance() pseudoTime {
	return pseudoTime(int64(t)*214013 + 2530876)
}

// timeDigit derives ENCODE_TIME_DIGIT(t): the trailing digit appended to
// each 3-digit value group. t must already be the *advanced* value for the
// character being encoded, matching the reference macro's evaluation order.
func timeDigit(t pseudoTime) int {
	shifted := (int64(t) >> 16) & 0x7FFF
	return int(math.Floor((float64(shifted)/32678.0)*10.0)) & 7
}

// deriveWierd computes the session's "wierd" integer: one LCG step followed
// by a shift-and-scale reduction of its own (dividing by 32768, then by
// 32678, unlike timeDigit's single division). Per
// spec.md §4.C4 this is derived once per handshake.
func deriveWierd(t pseudoTime) (pseudoTime, int) {
	t = t.advance()
	shifted := (int64(t) >> 16) & 0x7FFF
	wierd := int(math.Floor(((float64(shifted)/32768.0)*10.0)/32678.0)) * 200
	return t, wierd
}

// encode implements pt_encode: for each byte of s, emit a 4-digit decimal
// group (3-digit value, zero-padded, plus one LCG-derived digit), advancing
// t after every character. cb and aux parameterize the five variants per
// the §4.C4 table. It returns the encoded text and the advanced pseudo-time
// counter (the session must persist this for the next call).
func encode(s []byte, v variant, t pseudoTime, cb int, aux int) (string, pseudoTime) {
	var out strings.Builder
	out.Grow(len(s) * 4)
	for i, c := range s {
		var value int
		switch v {
		case variantZero, variantOne:
			value = 122 + i*(13-i) + int(c) + int(charmString[cb+i])
		case variantTwo:
			value = 122 + i + int(c) + int(charmString[cb+i])
		case variantThree:
			value = 122 + i + int(c) + int(charmString[cb+i])
		case variantFour:
			value = 122 + int(c) + int(charmString[aux+i]) + cb*i
			cb--
		}
		t = t.advance()
		fmt.Fprintf(&out, "%03d%d", value, timeDigit(t))
	}
	return out.String(), t
}

// serverKeyBase extracts the variant-1/variant-2 base offset from the
// server key string: atoi(serverkey[4:8]) - 509.
func serverKeyBase(serverKey string) (int, error) {
	if len(serverKey) < 8 {
		return 0, fmt.Errorf("obfuscate: server key %q too short", serverKey)
	}
	n, err := strconv.Atoi(serverKey[4:8])
	if err != nil {
		return 0, fmt.Errorf("obfuscate: server key %q: %w", serverKey, err)
	}
	return n - 509, nil
}

// encodeVariant0 encodes an identity string (the LYMERICK handshake step)
// with the fixed base offset 42.
func encodeVariant0(s string, t pseudoTime) (string, pseudoTime) {
	return encode([]byte(s), variantZero, t, 42, 0)
}

// encodeVariant1 encodes the password/checksums using the server-key-
// derived base offset.
func encodeVariant1(s string, serverKey string, t pseudoTime) (string, pseudoTime, error) {
	cb, err := serverKeyBase(serverKey)
	if err != nil {
		return "", t, err
	}
	out, t := encode([]byte(s), variantOne, t, cb, 0)
	return out, t, nil
}

// encodeVariant2 encodes the client IP using the server-key-derived base
// offset, with a different per-character value formula than variant 1.
func encodeVariant2(s string, serverKey string, t pseudoTime) (string, pseudoTime, error) {
	cb, err := serverKeyBase(serverKey)
	if err != nil {
		return "", t, err
	}
	out, t := encode([]byte(s), variantTwo, t, cb, 0)
	return out, t, nil
}

// encodeVariant3 encodes the VERSIONS string using the session's "wierd"
// integer as the base offset.
func encodeVariant3(s string, wierd int, t pseudoTime) (string, pseudoTime) {
	return encode([]byte(s), variantThree, t, wierd, 0)
}

// encodeVariant4 encodes a string against a caller-chosen auxiliary charm
// offset with a decrementing coefficient, starting at cb=13.
func encodeVariant4(s string, aux int, t pseudoTime) (string, pseudoTime) {
	return encode([]byte(s), variantFour, t, 13, aux)
}
