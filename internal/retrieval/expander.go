package retrieval

import (
	"strings"
)

// SynonymRule 一条触发词到同义词的扩展规则
type SynonymRule struct {
	Trigger  string   `yaml:"trigger" json:"trigger"`
	Synonyms []string `yaml:"synonyms" json:"synonyms"`
}

// DefaultSynonyms 默认的同义词表，按声明顺序检查
func DefaultSynonyms() []SynonymRule {
	return []SynonymRule{
		{Trigger: "design", Synonyms: []string{"ui", "ux", "visual", "interface", "layout", "creative"}},
		{Trigger: "skill", Synonyms: []string{"ability", "expertise", "proficiency", "experience"}},
		{Trigger: "project", Synonyms: []string{"work", "portfolio", "experience", "achievement"}},
		{Trigger: "education", Synonyms: []string{"degree", "university", "school", "learning"}},
		{Trigger: "goal", Synonyms: []string{"aspiration", "objective", "target", "career"}},
		{Trigger: "language", Synonyms: []string{"programming", "code", "technical"}},
		{Trigger: "tool", Synonyms: []string{"software", "platform", "application"}},
	}
}

// Expander 基于同义词表扩展问题
type Expander struct {
	rules []SynonymRule
}

// NewExpander 使用给定的规则创建扩展器；rules 为空时使用默认表
func NewExpander(rules []SynonymRule) *Expander {
	if len(rules) == 0 {
		rules = DefaultSynonyms()
	}

	normalized := make([]SynonymRule, 0, len(rules))
	for _, r := range rules {
		trigger := strings.ToLower(strings.TrimSpace(r.Trigger))
		if trigger == "" || len(r.Synonyms) == 0 {
			continue
		}
		normalized = append(normalized, SynonymRule{Trigger: trigger, Synonyms: r.Synonyms})
	}
	return &Expander{rules: normalized}
}

// Rules 返回当前生效的规则副本
func (e *Expander) Rules() []SynonymRule {
	out := make([]SynonymRule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Expand 对小写后的问题做子串匹配，命中的触发词把全部同义词追加一次
// 不去重，多条规则可以同时命中
func (e *Expander) Expand(query string) string {
	lower := strings.ToLower(query)

	var b strings.Builder
	b.WriteString(query)
	for _, r := range e.rules {
		if strings.Contains(lower, r.Trigger) {
			b.WriteString(" ")
			b.WriteString(strings.Join(r.Synonyms, " "))
		}
	}
	return b.String()
}
