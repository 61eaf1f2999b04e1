// Package retrieval 实现轻量的词法检索：分词、同义词扩展、Dice 打分与证据选择
package retrieval

import (
	"regexp"
	"strings"
)

// minTokenLength 长度不超过该值的词会被丢弃
const minTokenLength = 2

var nonWordPattern = regexp.MustCompile(`[^\w\s]`)

// Tokenize 小写化、把非单词字符替换为空格、按空白切分并丢弃短词
// 幂等：Tokenize(strings.Join(Tokenize(x), " ")) == Tokenize(x)
func Tokenize(text string) []string {
	cleaned := nonWordPattern.ReplaceAllString(strings.ToLower(text), " ")

	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > minTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
