package types

// Outcome 一次问答最终落在哪个分支
type Outcome string

const (
	OutcomeAnswered        Outcome = "answered"
	OutcomeEmptyInput      Outcome = "empty_input"
	OutcomeNotConfigured   Outcome = "not_configured"
	OutcomeNoEvidence      Outcome = "no_evidence"
	OutcomeUpstreamFailure Outcome = "upstream_failure"
	OutcomeDataError       Outcome = "data_error"
)

// AnswerResult 问答管线唯一的对外输出
type AnswerResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Outcome Outcome  `json:"outcome"`

	// Err 内部错误详情，只用于日志和测试断言
	Err error `json:"-"`
}

// OK 是否由模型正常生成了回答
func (r AnswerResult) OK() bool {
	return r.Outcome == OutcomeAnswered
}

// AskRequest HTTP 问答请求体
type AskRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// AskResponse HTTP 问答响应体
type AskResponse struct {
	AnswerResult
	SessionID string `json:"session_id"`
	RequestID string `json:"request_id"`
}
