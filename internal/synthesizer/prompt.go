package synthesizer

import (
	"fmt"
	"strings"

	"digital-twin-go/internal/types"
)

const (
	defaultPersonaName = "Digital Twin"
	defaultPersonaRole = "professional"
)

// Persona 回答时扮演的人物
type Persona struct {
	Name string
	Role string
}

// PersonaFromProfile 以配置为准，缺省时从档案的姓名和头衔推导
func PersonaFromProfile(override Persona, record *types.ProfileRecord) Persona {
	p := override
	if record != nil && record.Personal != nil {
		if p.Name == "" {
			p.Name = record.Personal.Name
		}
		if p.Role == "" {
			p.Role = record.Personal.Title
		}
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = defaultPersonaName
	}
	if strings.TrimSpace(p.Role) == "" {
		p.Role = defaultPersonaRole
	}
	return p
}

// SystemPrompt 固定人设并禁止任何标记格式
func SystemPrompt(p Persona) string {
	return fmt.Sprintf("You are %s, a %s. Answer questions about yourself in first person, conversationally and naturally. "+
		"Be helpful, specific, and personable. Do NOT use any HTML, markdown, or special formatting. Just plain text.",
		p.Name, p.Role)
}

// UserPrompt 把证据上下文和原始问题嵌进固定模板
func UserPrompt(p Persona, question, context string) string {
	return fmt.Sprintf(`You are %s, an AI digital twin. Answer the user's question in first person, naturally and conversationally.

Your Information:
%s

User Question: %s

Answer in 2-3 sentences, being specific and helpful. Sound natural and personable.`, p.Name, context, question)
}
