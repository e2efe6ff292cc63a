package tyson

import "unicode/utf8"

// IsLikelyJSON reports whether the given byte slice looks like JSON text
// rather than an encoded tyson value. It is a heuristic and not a formal
// discriminator:
//
//   - It requires the data to be valid UTF-8.
//   - It then checks the first non-whitespace byte against the JSON
//     value grammar (object/array/string/number/true/false/null).
//
// Most tyson payloads will fail one of these checks (non-UTF-8 or an
// invalid JSON starter) and thus be classified as non-JSON.
func IsLikelyJSON(b []byte) bool {
	// Require valid UTF-8 for JSON.
	if !utf8.Valid(b) {
		return false
	}
	// Skip a UTF-8 BOM and leading ASCII whitespace.
	i := 0
	if len(b) >= 3 && b[0] == 0xef && b[1] == 0xbb && b[2] == 0xbf {
		i = 3
	}
	for i < len(b) {
		c := b[i]
		if c == ' ' || c == '\n' || c == '\r' || c == '\t' {
			i++
			continue
		}
		break
	}
	if i >= len(b) {
		return false
	}
	ch := b[i]
	// Valid JSON value starters:
	//  - object/array: '{', '['
	//  - string: '"'
	//  - number: '-', '0'..'9'
	//  - true/false/null: 't', 'f', 'n'
	if ch == '{' || ch == '[' || ch == '"' || ch == '-' {
		return true
	}
	if ch >= '0' && ch <= '9' {
		return true
	}
	return ch == 't' || ch == 'f' || ch == 'n'
}
