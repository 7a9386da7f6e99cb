// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package asciiscan holds the small whitespace tokenizer shared by every
// ASCII leaf reader (readers/bed, readers/step, readers/vcf): it is the
// same "find up to len(tokens) delimiter-separated fields" routine the
// teacher uses to parse BED lines, generalized to an arbitrary column
// count.
package asciiscan

// Tokens splits curLine into up to len(tokens) fields, where any run of
// bytes <= ' ' is a delimiter, and returns how many fields were found.
// This beats strings.Fields/strings.Split for short lines because it does
// a single pass with no allocation: each returned token aliases curLine.
func Tokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}
