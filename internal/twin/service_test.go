package twin

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital-twin-go/internal/events"
	"digital-twin-go/internal/llm"
	"digital-twin-go/internal/profile"
	"digital-twin-go/internal/synthesizer"
	"digital-twin-go/internal/transcript"
	"digital-twin-go/internal/types"
)

func janeDoe() *types.ProfileRecord {
	return &types.ProfileRecord{
		Personal: &types.PersonalInfo{Name: "Jane Doe", Title: "Engineer"},
		Skills:   &types.Skills{SoftSkills: []string{"Communication"}},
		Projects: []types.Project{
			{Name: "Ledger", Description: "Side project tracking work hours", Technologies: []string{"Go"}},
			{Name: "Atlas", Description: "Portfolio site", Technologies: []string{"TypeScript"}},
		},
	}
}

// countingSource 记录 Load 调用次数
type countingSource struct {
	mu     sync.Mutex
	record *types.ProfileRecord
	err    error
	loads  int
}

func (c *countingSource) Load(context.Context) (*types.ProfileRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loads++
	return c.record, c.err
}

func (c *countingSource) Name() string { return "counting" }

func (c *countingSource) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

func newService(t *testing.T, source profile.Source, m *llm.MockChatModel, opts ...Option) *Service {
	t.Helper()
	if m != nil {
		synth, err := synthesizer.New(m)
		require.NoError(t, err)
		opts = append([]Option{WithGenerator(synth)}, opts...)
	}
	svc, err := NewService(source, opts...)
	require.NoError(t, err)
	return svc
}

func TestAnswerQuestionEmptyInput(t *testing.T) {
	src := &countingSource{record: janeDoe()}
	mock := llm.NewMockChatModel("unused", nil)
	svc := newService(t, src, mock)

	for _, q := range []string{"", "   ", "\t\n"} {
		res := svc.AnswerQuestion(context.Background(), q)
		assert.Equal(t, types.OutcomeEmptyInput, res.Outcome)
		assert.Equal(t, MessageEmptyQuestion, res.Answer)
		assert.NotNil(t, res.Sources)
		assert.Empty(t, res.Sources)
		assert.ErrorIs(t, res.Err, ErrEmptyQuestion)
	}
	assert.Equal(t, 0, mock.Calls())
	assert.Equal(t, 0, src.Loads())
}

func TestAnswerQuestionNotConfigured(t *testing.T) {
	src := &countingSource{record: janeDoe()}
	svc := newService(t, src, nil)
	require.False(t, svc.Configured())

	res := svc.AnswerQuestion(context.Background(), "What is your name?")
	assert.Equal(t, types.OutcomeNotConfigured, res.Outcome)
	assert.Equal(t, MessageNotConfigured, res.Answer)
	assert.Empty(t, res.Sources)
	assert.ErrorIs(t, res.Err, ErrNotConfigured)
	assert.Equal(t, 0, src.Loads())
}

func TestAnswerQuestionNoEvidence(t *testing.T) {
	mock := llm.NewMockChatModel("unused", nil)
	svc := newService(t, profile.NewStaticSource(janeDoe()), mock)

	res := svc.AnswerQuestion(context.Background(), "zzz qqq xyzzy")
	assert.Equal(t, types.OutcomeNoEvidence, res.Outcome)
	assert.Equal(t, MessageNoEvidence, res.Answer)
	assert.NotNil(t, res.Sources)
	assert.Empty(t, res.Sources)
	assert.ErrorIs(t, res.Err, ErrNoEvidence)
	assert.Equal(t, 0, mock.Calls())
}

func TestAnswerQuestionProjectsEcho(t *testing.T) {
	mock := llm.NewEchoChatModel(func(s string) string { return "<p>**" + s + "**</p>" })
	svc := newService(t, profile.NewStaticSource(janeDoe()), mock)

	res := svc.AnswerQuestion(context.Background(), "Tell me about your projects")
	require.Equal(t, types.OutcomeAnswered, res.Outcome, "err: %v", res.Err)
	assert.True(t, res.OK())
	assert.NoError(t, res.Err)

	require.NotEmpty(t, res.Sources)
	for _, src := range res.Sources {
		assert.Equal(t, types.ChunkProjects, src.Type)
		assert.Greater(t, src.Score, 0.0)
	}

	assert.NotEmpty(t, res.Answer)
	assert.NotContains(t, res.Answer, "<")
	assert.NotContains(t, res.Answer, ">")
	assert.NotContains(t, res.Answer, "*")
	assert.Contains(t, res.Answer, "User Question: Tell me about your projects")
	assert.Contains(t, res.Answer, "Ledger: Side project tracking work hours")
	assert.Equal(t, 1, mock.Calls())

	// 人设从档案推导
	assert.Contains(t, mock.LastMessages()[0].Content, "You are Jane Doe, a Engineer.")
}

func TestAnswerQuestionNameInEvidence(t *testing.T) {
	mock := llm.NewMockChatModel("I'm Jane Doe.", nil)
	svc := newService(t, profile.NewStaticSource(janeDoe()), mock)

	res := svc.AnswerQuestion(context.Background(), "What is your name?")
	require.Equal(t, types.OutcomeAnswered, res.Outcome)
	assert.Equal(t, "I'm Jane Doe.", res.Answer)

	found := false
	for _, src := range res.Sources {
		if src.Title == "Name and Title" {
			found = true
			assert.Greater(t, src.Score, 0.0)
		}
	}
	assert.True(t, found, "name 块应出现在来源中")
	assert.LessOrEqual(t, len(res.Sources), 3)
}

func TestAnswerQuestionGenerationFailure(t *testing.T) {
	upstream := errors.New("429 rate limited")
	mock := llm.NewMockChatModel("", upstream)
	svc := newService(t, profile.NewStaticSource(janeDoe()), mock)

	res := svc.AnswerQuestion(context.Background(), "Tell me about your projects")
	assert.Equal(t, types.OutcomeUpstreamFailure, res.Outcome)
	assert.Equal(t, MessageUpstream, res.Answer)
	assert.NotEmpty(t, res.Answer)
	assert.NotNil(t, res.Sources)
	assert.Empty(t, res.Sources)
	assert.ErrorIs(t, res.Err, ErrGeneration)
	assert.ErrorIs(t, res.Err, upstream)
	assert.NotContains(t, res.Answer, "429")

	var pe *PipelineError
	require.ErrorAs(t, res.Err, &pe)
	assert.Equal(t, StageSynthesize, pe.Stage)
}

func TestAnswerQuestionEmptyCompletion(t *testing.T) {
	svc := newService(t, profile.NewStaticSource(janeDoe()), llm.NewMockChatModel("<br/>**", nil))

	res := svc.AnswerQuestion(context.Background(), "Tell me about your projects")
	assert.Equal(t, types.OutcomeUpstreamFailure, res.Outcome)
	assert.ErrorIs(t, res.Err, synthesizer.ErrEmptyCompletion)
	assert.Empty(t, res.Sources)
}

func TestAnswerQuestionDataError(t *testing.T) {
	broken := errors.New("disk on fire")
	mock := llm.NewMockChatModel("unused", nil)

	svc := newService(t, &countingSource{err: broken}, mock)
	res := svc.AnswerQuestion(context.Background(), "What is your name?")
	assert.Equal(t, types.OutcomeDataError, res.Outcome)
	assert.Equal(t, MessageDataError, res.Answer)
	assert.ErrorIs(t, res.Err, ErrProfileLoad)
	assert.ErrorIs(t, res.Err, broken)
	assert.Empty(t, res.Sources)

	// 档案为空，没有任何块
	svc = newService(t, profile.NewStaticSource(&types.ProfileRecord{}), mock)
	res = svc.AnswerQuestion(context.Background(), "What is your name?")
	assert.Equal(t, types.OutcomeDataError, res.Outcome)
	assert.ErrorIs(t, res.Err, profile.ErrEmptyDocument)

	assert.Equal(t, 0, mock.Calls())
}

type panicGenerator struct{}

func (panicGenerator) Synthesize(context.Context, synthesizer.Persona, string, string) (string, error) {
	panic("boom")
}

func TestAnswerQuestionRecoversPanic(t *testing.T) {
	svc, err := NewService(profile.NewStaticSource(janeDoe()), WithGenerator(panicGenerator{}))
	require.NoError(t, err)

	var res types.AnswerResult
	require.NotPanics(t, func() {
		res = svc.AnswerQuestion(context.Background(), "Tell me about your projects")
	})
	assert.Equal(t, types.OutcomeUpstreamFailure, res.Outcome)
	assert.Equal(t, MessageUpstream, res.Answer)
	assert.Empty(t, res.Sources)
	assert.ErrorIs(t, res.Err, ErrGeneration)
}

func TestAnswerQuestionPersonaOverride(t *testing.T) {
	mock := llm.NewMockChatModel("ok", nil)
	svc := newService(t, profile.NewStaticSource(janeDoe()), mock, WithPersona(synthesizer.Persona{Name: "JD"}))

	res := svc.AnswerQuestion(context.Background(), "What is your name?")
	require.True(t, res.OK())
	assert.Contains(t, mock.LastMessages()[0].Content, "You are JD, a Engineer.")
}

func TestAnswerQuestionConcurrent(t *testing.T) {
	mock := llm.NewMockChatModel("I build ledgers.", nil)
	svc := newService(t, profile.NewStaticSource(janeDoe()), mock)

	var wg sync.WaitGroup
	results := make([]types.AnswerResult, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.AnswerQuestion(context.Background(), "Tell me about your projects")
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		assert.Equal(t, types.OutcomeAnswered, res.Outcome)
		assert.Equal(t, results[0].Sources, res.Sources)
	}
	assert.Equal(t, len(results), mock.Calls())
}

type recordingPublisher struct {
	mu   sync.Mutex
	got  []events.AnswerEvent
	fail error
}

func (p *recordingPublisher) PublishAnswer(_ context.Context, e events.AnswerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, e)
	return p.fail
}

func (p *recordingPublisher) Close() error { return nil }

func TestAskRecordsAndPublishes(t *testing.T) {
	store := transcript.NewMemoryStore(0)
	pub := &recordingPublisher{}
	svc := newService(t, profile.NewStaticSource(janeDoe()), llm.NewMockChatModel("I am Jane.", nil),
		WithTranscript(store), WithPublisher(pub))

	res := svc.Ask(context.Background(), "s1", "r1", "What is your name?")
	require.True(t, res.OK())
	_ = svc.Ask(context.Background(), "s1", "r2", "   ")

	history, err := svc.History(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "What is your name?", history[0].Question)
	assert.Equal(t, "I am Jane.", history[0].Answer)
	assert.Equal(t, "r1", history[0].RequestID)
	assert.Equal(t, types.OutcomeAnswered, history[0].Outcome)
	assert.NotEmpty(t, history[0].ID)
	assert.Equal(t, types.OutcomeEmptyInput, history[1].Outcome)

	require.Len(t, pub.got, 2)
	assert.Equal(t, "s1", pub.got[0].SessionID)
	assert.Equal(t, types.OutcomeAnswered, pub.got[0].Outcome)
	assert.Equal(t, res.Sources, pub.got[0].Sources)

	require.NoError(t, svc.ClearHistory(context.Background(), "s1"))
	history, err = svc.History(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAskWithoutSessionSkipsRecording(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newService(t, profile.NewStaticSource(janeDoe()), llm.NewMockChatModel("ok", nil), WithPublisher(pub))

	res := svc.Ask(context.Background(), "", "r1", "What is your name?")
	assert.True(t, res.OK())
	assert.Empty(t, pub.got)

	_, err := svc.History(context.Background(), "", 10)
	assert.ErrorIs(t, err, transcript.ErrEmptySession)
}

func TestAskPublisherFailureDoesNotAffectAnswer(t *testing.T) {
	pub := &recordingPublisher{fail: errors.New("broker down")}
	svc := newService(t, profile.NewStaticSource(janeDoe()), llm.NewMockChatModel("ok", nil), WithPublisher(pub))

	res := svc.Ask(context.Background(), "s", "r", "What is your name?")
	assert.True(t, res.OK())
	assert.Equal(t, "ok", res.Answer)
}

func TestPipelineError(t *testing.T) {
	cause := errors.New("cause")
	err := newPipelineError(StageLoad, types.OutcomeDataError, cause)

	assert.ErrorIs(t, err, ErrProfileLoad)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrGeneration)
	assert.True(t, strings.HasPrefix(err.Error(), "load_profile: "))
	assert.Equal(t, types.OutcomeDataError, KindOf(err))
	assert.Equal(t, types.OutcomeAnswered, KindOf(nil))
	assert.Equal(t, types.OutcomeUpstreamFailure, KindOf(cause))

	_, buildErr := NewService(nil)
	assert.Error(t, buildErr)
}

func TestDefaultProfileAnswers(t *testing.T) {
	svc := newService(t, profile.NewEmbeddedSource(), llm.NewMockChatModel("Hello!", nil))
	res := svc.AnswerQuestion(context.Background(), "What database skills do you have?")
	require.Equal(t, types.OutcomeAnswered, res.Outcome, "err: %v", res.Err)
	assert.NotEmpty(t, res.Sources)
	assert.LessOrEqual(t, len(res.Sources), 3)
}
