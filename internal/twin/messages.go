package twin

import "digital-twin-go/internal/types"

// 返回给用户的固定文案
const (
	MessageEmptyQuestion = "Please ask me a question!"
	MessageNotConfigured = "The chat service is not configured. Please add the GROQ_API_KEY to your environment variables."
	MessageDataError     = "Unable to load my profile data. Please try again."
	MessageNoEvidence    = "I'm not sure about that specific topic. Could you ask me about my skills, projects, education, or career goals?"
	MessageUpstream      = "Error: I couldn't generate an answer right now. Please try again in a moment."
)

// messageFor 每个失败类别对应的文案
func messageFor(kind types.Outcome) string {
	switch kind {
	case types.OutcomeEmptyInput:
		return MessageEmptyQuestion
	case types.OutcomeNotConfigured:
		return MessageNotConfigured
	case types.OutcomeNoEvidence:
		return MessageNoEvidence
	case types.OutcomeDataError:
		return MessageDataError
	}
	return MessageUpstream
}
