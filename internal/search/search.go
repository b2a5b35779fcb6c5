// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package search implements the shared text-search semantics used by
// thread and conversation filtering: multi-term AND queries joined with
// '+', matched ASCII case-insensitively.
package search

import "strings"

// ParseTerms splits a query on '+', trims and lowercases each piece, and
// drops empty terms. "error+timeout" -> ["error", "timeout"].
func ParseTerms(query string) []string {
	parts := strings.Split(query, "+")
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			terms = append(terms, p)
		}
	}
	return terms
}

// ContainsTerm reports whether text contains term, matched ASCII
// case-insensitively. An empty term matches everything.
func ContainsTerm(text, term string) bool {
	textRunes := []rune(text)
	termRunes := []rune(term)

	if len(termRunes) == 0 {
		return true
	}
	if len(textRunes) < len(termRunes) {
		return false
	}

	for start := 0; start <= len(textRunes)-len(termRunes); start++ {
		match := true
		for i, tc := range termRunes {
			if !asciiEqualFold(textRunes[start+i], tc) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// ContainsAllTerms reports whether text contains every term in terms.
// An empty slice matches everything.
func ContainsAllTerms(text string, terms []string) bool {
	for _, term := range terms {
		if !ContainsTerm(text, term) {
			return false
		}
	}
	return true
}

func asciiEqualFold(a, b rune) bool {
	if a == b {
		return true
	}
	return asciiLower(a) == asciiLower(b)
}

func asciiLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
