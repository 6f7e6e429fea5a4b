package filter

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// key:value, key!:value and key:"quoted value"
	queryTermPattern = regexp.MustCompile(`(\w+)(!?):(?:"([^"]*)"|(\S+))`)

	queryKeys = map[string]func(value string) string{
		"status": func(v string) string {
			return "hasStatus(" + strconv.Quote(v) + ")"
		},
		"manufacturer": func(v string) string {
			return "madeBy(" + strconv.Quote(v) + ")"
		},
		"maker": func(v string) string {
			return "madeBy(" + strconv.Quote(v) + ")"
		},
		"name": func(v string) string {
			return "nameContains(" + strconv.Quote(v) + ")"
		},
		"sealed": func(v string) string {
			if strings.EqualFold(v, "true") || v == "yes" {
				return "Sealed"
			}
			return "not Sealed"
		},
	}
)

// SearchExpression converts search bar input into an expression.
//
// Recognised terms are status:, manufacturer: (or maker:), name: and sealed:,
// each negated with "!:". Remaining words must all appear in the figure name.
// An empty query yields an empty expression.
func SearchExpression(query string) string {
	var parts []string

	rest := queryTermPattern.ReplaceAllStringFunc(query, func(term string) string {
		m := queryTermPattern.FindStringSubmatch(term)
		build, ok := queryKeys[strings.ToLower(m[1])]
		if !ok {
			return term
		}
		value := m[3]
		if value == "" {
			value = m[4]
		}
		part := build(value)
		if m[2] == "!" {
			part = "not (" + part + ")"
		}
		parts = append(parts, part)
		return " "
	})

	for _, word := range strings.Fields(rest) {
		parts = append(parts, "nameContains("+strconv.Quote(word)+")")
	}

	return strings.Join(parts, " and ")
}

// SealedExpression returns the expression backing the show-sealed toggle
func SealedExpression(showSealed bool) string {
	if showSealed {
		return ""
	}
	return "not Sealed"
}

// Combine joins non-empty expressions with "and"
func Combine(expressions ...string) string {
	var parts []string
	for _, e := range expressions {
		e = strings.TrimSpace(e)
		if e != "" {
			parts = append(parts, "("+e+")")
		}
	}
	return strings.Join(parts, " and ")
}
