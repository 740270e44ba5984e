package translate

import (
	"fmt"
	"strings"
	"unicode"
)

// Policy 判断标题是否需要翻译
type Policy interface {
	NeedsTranslation(title string) bool
}

type PolicyFunc func(title string) bool

func (f PolicyFunc) NeedsTranslation(title string) bool { return f(title) }

// ASCIILetterPolicy 含任一 ASCII 字母即视为英文标题
var ASCIILetterPolicy = PolicyFunc(func(title string) bool {
	for _, r := range title {
		if r < 0x80 && unicode.IsLetter(r) {
			return true
		}
	}
	return false
})

// TeluguRatioPolicy 主要由泰卢固文字组成的标题不翻译
var TeluguRatioPolicy = PolicyFunc(func(title string) bool {
	return !isMostlyTelugu(title)
})

func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ascii":
		return ASCIILetterPolicy, nil
	case "telugu":
		return TeluguRatioPolicy, nil
	default:
		return nil, fmt.Errorf("unknown translate policy %q", name)
	}
}

func isMostlyTelugu(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	var te, total int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if isTelugu(r) {
			te++
		}
	}
	if total == 0 {
		return true
	}
	return te >= 1 && (te*4 >= total || te >= 2)
}

func isTelugu(r rune) bool {
	return r >= 0x0c00 && r <= 0x0c7f
}
