package synthesizer

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Sanitize 去掉类 HTML 标签和所有星号，再去掉首尾空白
func Sanitize(raw string) string {
	out := tagPattern.ReplaceAllString(raw, "")
	out = strings.ReplaceAll(out, "*", "")
	return strings.TrimSpace(out)
}
