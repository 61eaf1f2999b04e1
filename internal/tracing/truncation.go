package tracing

import (
	"strings"
)

const (
	// DefaultMaxLength 默认最大属性长度
	DefaultMaxLength = 200

	// MaxQuestionLength 用户问题最大长度
	MaxQuestionLength = 120

	// MaxRedisLength Redis键值最大长度
	MaxRedisLength = 100

	// MaxAnswerLength 生成回答最大长度
	MaxAnswerLength = 150
)

// maskPIILookup 需要掩码处理的关键字
var maskPIILookup = []string{
	"email",
	"phone",
	"password",
	"address",
	"secret",
	"token",
	"api_key",
	"authorization",
}

// SafeAttributeValue 确保属性值安全，不包含敏感信息
// 1. 属性名包含敏感关键字时返回掩码后的值
// 2. 长度超过maxLength时截断
func SafeAttributeValue(name string, value string, maxLength int) string {
	lowerName := strings.ToLower(name)
	for _, keyword := range maskPIILookup {
		if strings.Contains(lowerName, keyword) {
			return MaskPII(value)
		}
	}
	return TruncateString(value, maxLength)
}

// MaskPII 对个人敏感信息进行掩码处理
func MaskPII(value string) string {
	if value == "" {
		return ""
	}

	runes := []rune(value)
	length := len(runes)
	if length <= 1 {
		return "*"
	}
	if length <= 4 {
		if length == 2 {
			return string(runes[0:1]) + "*"
		}
		return string(runes[0:1]) + strings.Repeat("*", length-2) + string(runes[length-1:])
	}

	// "jane@example.com" -> "ja************om"
	return string(runes[0:2]) + strings.Repeat("*", length-4) + string(runes[length-2:])
}

// TruncateString 截断字符串，保留首尾，中间用...连接
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}

	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeQuestion 安全处理用户问题
func SafeQuestion(q string) string {
	return SafeAttributeValue("question", q, MaxQuestionLength)
}

// SafeAnswer 安全处理生成的回答
func SafeAnswer(a string) string {
	return SafeAttributeValue("answer", a, MaxAnswerLength)
}

// SafeRedisKey 安全处理Redis键
func SafeRedisKey(key string) string {
	return SafeAttributeValue("redis.key", key, MaxRedisLength)
}
