// Package twin 数字分身问答管线：校验、加载档案、切块、检索、生成，以及失败时的兜底
package twin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"digital-twin-go/internal/chunker"
	"digital-twin-go/internal/events"
	"digital-twin-go/internal/logger"
	"digital-twin-go/internal/profile"
	"digital-twin-go/internal/retrieval"
	"digital-twin-go/internal/synthesizer"
	"digital-twin-go/internal/tracing"
	"digital-twin-go/internal/transcript"
	"digital-twin-go/internal/types"
)

var tracer = otel.Tracer("digital-twin/twin")

// Generator 根据证据上下文生成回答，*synthesizer.Synthesizer 实现了该接口
type Generator interface {
	Synthesize(ctx context.Context, persona synthesizer.Persona, question, evidenceContext string) (string, error)
}

// Service 问答入口。除只读的档案来源外不持有跨请求的可变状态，可以并发调用
type Service struct {
	source     profile.Source
	generator  Generator // 为 nil 表示生成服务未配置
	retriever  *retrieval.Retriever
	persona    synthesizer.Persona
	transcript transcript.Store
	publisher  events.Publisher
	now        func() time.Time
}

// Option 服务选项
type Option func(*Service)

// WithGenerator 设置生成器，不设置时所有问题都返回未配置提示
func WithGenerator(g Generator) Option {
	return func(s *Service) { s.generator = g }
}

// WithRetriever 设置检索器
func WithRetriever(r *retrieval.Retriever) Option {
	return func(s *Service) {
		if r != nil {
			s.retriever = r
		}
	}
}

// WithPersona 覆盖人设，空字段仍从档案推导
func WithPersona(p synthesizer.Persona) Option {
	return func(s *Service) { s.persona = p }
}

// WithTranscript 设置问答记录存储
func WithTranscript(store transcript.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.transcript = store
		}
	}
}

// WithPublisher 设置事件发布者
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// NewService 创建问答服务
func NewService(source profile.Source, opts ...Option) (*Service, error) {
	if source == nil {
		return nil, fmt.Errorf("问答服务需要档案来源")
	}
	s := &Service{
		source:     source,
		retriever:  retrieval.NewRetriever(nil, retrieval.DefaultTopK),
		transcript: transcript.NewMemoryStore(0),
		publisher:  events.NopPublisher{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Configured 生成服务是否可用
func (s *Service) Configured() bool { return s.generator != nil }

// SourceName 当前档案来源
func (s *Service) SourceName() string { return s.source.Name() }

// AnswerQuestion 回答一个问题。不会返回错误或 panic，失败也会得到带文案的结果，
// Outcome 标明落在哪个分支
func (s *Service) AnswerQuestion(ctx context.Context, question string) (res types.AnswerResult) {
	ctx, span := tracer.Start(ctx, "twin.AnswerQuestion")
	start := s.now()

	defer func() {
		if r := recover(); r != nil {
			err := newPipelineError("recover", types.OutcomeUpstreamFailure, fmt.Errorf("panic: %v", r))
			tracing.RecordError(span, err, tracing.ErrorTypeInternal)
			res = failure(err)
		}
		span.SetAttributes(
			attribute.String("twin.outcome", string(res.Outcome)),
			attribute.Int("twin.sources", len(res.Sources)),
		)
		span.End()
		s.logResult(ctx, res, s.now().Sub(start))
	}()

	span.SetAttributes(attribute.String("twin.question", tracing.SafeQuestion(question)))
	return s.answer(ctx, span, question)
}

func (s *Service) answer(ctx context.Context, span trace.Span, question string) types.AnswerResult {
	if strings.TrimSpace(question) == "" {
		return failure(newPipelineError(StageValidate, types.OutcomeEmptyInput, nil))
	}
	if s.generator == nil {
		return failure(newPipelineError(StageValidate, types.OutcomeNotConfigured, nil))
	}

	record, err := s.loadProfile(ctx)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeProfile)
		return failure(err)
	}

	// 每次请求重新切块，不缓存
	chunks := chunker.Chunk(record)
	if len(chunks) == 0 {
		err := newPipelineError(StageChunk, types.OutcomeDataError, profile.ErrEmptyDocument)
		tracing.RecordError(span, err, tracing.ErrorTypeProfile)
		return failure(err)
	}

	evidence := s.retrieve(ctx, question, chunks)
	if evidence.Empty() {
		return failure(newPipelineError(StageRetrieve, types.OutcomeNoEvidence, nil))
	}

	answer, err := s.synthesize(ctx, record, question, evidence)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return failure(err)
	}

	return types.AnswerResult{
		Answer:  answer,
		Sources: evidence.Sources(),
		Outcome: types.OutcomeAnswered,
	}
}

func (s *Service) loadProfile(ctx context.Context) (*types.ProfileRecord, error) {
	ctx, span := tracer.Start(ctx, "twin.LoadProfile")
	defer span.End()
	span.SetAttributes(attribute.String("twin.profile_source", s.source.Name()))

	record, err := s.source.Load(ctx)
	if err != nil {
		return nil, newPipelineError(StageLoad, types.OutcomeDataError, err)
	}
	if record == nil {
		return nil, newPipelineError(StageLoad, types.OutcomeDataError, profile.ErrEmptyDocument)
	}
	return record, nil
}

func (s *Service) retrieve(ctx context.Context, question string, chunks []types.Chunk) types.EvidenceSet {
	_, span := tracer.Start(ctx, "twin.Retrieve")
	defer span.End()

	evidence := s.retriever.Retrieve(question, chunks)
	span.SetAttributes(
		attribute.Int("twin.chunks", len(chunks)),
		attribute.Int("twin.evidence", len(evidence.Chunks)),
	)
	return evidence
}

func (s *Service) synthesize(ctx context.Context, record *types.ProfileRecord, question string, evidence types.EvidenceSet) (string, error) {
	ctx, span := tracer.Start(ctx, "twin.Synthesize")
	defer span.End()

	persona := synthesizer.PersonaFromProfile(s.persona, record)
	answer, err := s.generator.Synthesize(ctx, persona, question, evidence.Context)
	if err != nil {
		return "", newPipelineError(StageSynthesize, types.OutcomeUpstreamFailure, err)
	}
	span.SetAttributes(attribute.String("twin.answer", tracing.SafeAnswer(answer)))
	return answer, nil
}

// failure 失败结果：固定文案，空来源
func failure(err error) types.AnswerResult {
	kind := KindOf(err)
	return types.AnswerResult{
		Answer:  messageFor(kind),
		Sources: []types.Source{},
		Outcome: kind,
		Err:     err,
	}
}

func (s *Service) logResult(ctx context.Context, res types.AnswerResult, latency time.Duration) {
	l := logger.Ctx(ctx)
	switch res.Outcome {
	case types.OutcomeAnswered, types.OutcomeEmptyInput, types.OutcomeNoEvidence:
		l.Info().
			Str("outcome", string(res.Outcome)).
			Int("sources", len(res.Sources)).
			Dur("latency", latency).
			Msg("问答完成")
	case types.OutcomeNotConfigured:
		l.Warn().Str("outcome", string(res.Outcome)).Msg("生成服务未配置")
	default:
		l.Error().
			Err(res.Err).
			Str("outcome", string(res.Outcome)).
			Dur("latency", latency).
			Msg("问答失败")
	}
}

// Ask 回答问题并记录到会话，再发布事件。记录和发布失败只写日志，不影响回答
func (s *Service) Ask(ctx context.Context, sessionID, requestID, question string) types.AnswerResult {
	start := s.now()
	res := s.AnswerQuestion(ctx, question)
	latency := s.now().Sub(start).Milliseconds()

	if sessionID == "" {
		return res
	}

	ex := transcript.Exchange{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		RequestID: requestID,
		Question:  question,
		Answer:    res.Answer,
		Outcome:   res.Outcome,
		Sources:   res.Sources,
		CreatedAt: start.UTC(),
		LatencyMS: latency,
	}
	if err := s.transcript.Append(ctx, ex); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("记录问答失败")
	}

	event := events.AnswerEvent{
		SessionID: sessionID,
		RequestID: requestID,
		Question:  tracing.SafeQuestion(question),
		Outcome:   res.Outcome,
		Sources:   res.Sources,
		LatencyMS: latency,
		Timestamp: start.UTC(),
	}
	if err := s.publisher.PublishAnswer(ctx, event); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("发布问答事件失败")
	}
	return res
}

// History 返回会话最近的问答记录
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]transcript.Exchange, error) {
	if sessionID == "" {
		return nil, transcript.ErrEmptySession
	}
	return s.transcript.History(ctx, sessionID, limit)
}

// ClearHistory 清除会话记录
func (s *Service) ClearHistory(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return transcript.ErrEmptySession
	}
	return s.transcript.Clear(ctx, sessionID)
}
