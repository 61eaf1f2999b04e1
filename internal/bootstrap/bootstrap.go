// Package bootstrap 按配置组装问答服务及其依赖，HTTP 服务和命令行共用
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"digital-twin-go/internal/config"
	"digital-twin-go/internal/events"
	"digital-twin-go/internal/llm"
	"digital-twin-go/internal/logger"
	"digital-twin-go/internal/profile"
	"digital-twin-go/internal/retrieval"
	"digital-twin-go/internal/storage"
	"digital-twin-go/internal/synthesizer"
	"digital-twin-go/internal/tracing"
	"digital-twin-go/internal/transcript"
	"digital-twin-go/internal/twin"
)

// App 组装好的应用
type App struct {
	Config  *config.Config
	Service *twin.Service
	Storage *storage.Storage

	publisher events.Publisher
}

// Build 初始化存储、档案来源、生成服务和问答服务
// 没有 API key 时服务仍可启动，问答返回未配置提示；Redis 和 RabbitMQ 连接失败时降级为内存记录和不发布
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	ctx, span := tracing.Tracer(ctx, "digital-twin/bootstrap").Start(ctx, "bootstrap.Build")
	defer span.End()

	if cfg == nil {
		err := fmt.Errorf("配置不能为空")
		tracing.RecordError(span, err, tracing.ErrorTypeConfig)
		return nil, err
	}

	st, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("部分存储组件初始化失败，使用降级方案")
	}

	source, err := NewProfileSource(cfg, st)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeConfig, attribute.String("profile.source", cfg.Profile.Source))
		st.Close()
		return nil, err
	}
	if st != nil && st.MinIO != nil {
		// 桶不存在时仍然启动，每次问答会返回数据错误
		if err := st.MinIO.EnsureBucketExists(ctx, st.MinIO.Bucket()); err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
			logger.Warn().Err(err).Str("bucket", st.MinIO.Bucket()).Msg("档案存储桶不可用")
		}
	}

	opts := []twin.Option{
		twin.WithRetriever(NewRetriever(cfg)),
		twin.WithPersona(synthesizer.Persona{Name: cfg.Persona.Name, Role: cfg.Persona.Role}),
	}

	if cfg.LLMConfigured() {
		gen, err := NewGenerator(cfg)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeConfig)
			st.Close()
			return nil, err
		}
		opts = append(opts, twin.WithGenerator(gen))
	} else {
		logger.Warn().Msg("未配置 GROQ_API_KEY，问答将返回未配置提示")
	}

	opts = append(opts, twin.WithTranscript(newTranscript(cfg, st)))

	var pub events.Publisher = events.NopPublisher{}
	if st != nil && st.RabbitMQ != nil {
		amqpPub, err := events.NewAMQPPublisher(st.RabbitMQ.Channel(), cfg.RabbitMQ.Exchange, cfg.RabbitMQ.RoutingKey)
		if err != nil {
			logger.Warn().Err(err).Msg("创建事件发布者失败")
		} else {
			pub = amqpPub
		}
	}
	opts = append(opts, twin.WithPublisher(pub))

	svc, err := twin.NewService(source, opts...)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		st.Close()
		return nil, err
	}
	span.SetAttributes(
		attribute.String("profile.source", source.Name()),
		attribute.Bool("llm.configured", svc.Configured()),
	)

	logger.Info().
		Str("profile_source", source.Name()).
		Bool("llm_configured", svc.Configured()).
		Bool("redis", st != nil && st.Redis != nil).
		Bool("rabbitmq", st != nil && st.RabbitMQ != nil).
		Msg("问答服务初始化完成")

	return &App{Config: cfg, Service: svc, Storage: st, publisher: pub}, nil
}

// Close 释放连接
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭事件发布者失败")
		}
	}
	a.Storage.Close()
}

// NewProfileSource 根据 profile.source 选择档案来源
func NewProfileSource(cfg *config.Config, st *storage.Storage) (profile.Source, error) {
	switch strings.ToLower(cfg.Profile.Source) {
	case "", profile.KindEmbedded:
		return profile.NewEmbeddedSource(), nil
	case profile.KindFile:
		return profile.NewFileSource(cfg.Profile.Path), nil
	case profile.KindMinIO:
		if st == nil || st.MinIO == nil {
			return nil, fmt.Errorf("档案来源为minio，但MinIO未初始化")
		}
		return profile.NewMinIOSource(st.MinIO, cfg.Profile.MinIO.Bucket, cfg.Profile.MinIO.Object)
	}
	return nil, fmt.Errorf("%w: %q", profile.ErrUnknownSource, cfg.Profile.Source)
}

// NewGenerator 创建 Groq 客户端、限流包装和合成器；没有 API key 时返回 llm.ErrMissingAPIKey
func NewGenerator(cfg *config.Config) (*synthesizer.Synthesizer, error) {
	groq, err := llm.NewGroqChatModel(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.APIURL, llm.WithTimeout(cfg.LLMTimeout()))
	if err != nil {
		return nil, err
	}
	throttled := llm.NewThrottledChatModel(groq, cfg.LLM.QPM)
	return synthesizer.New(throttled,
		synthesizer.WithTemperature(float32(cfg.LLMTemperature())),
		synthesizer.WithMaxTokens(cfg.LLM.MaxTokens),
	)
}

// NewRetriever 用配置中的同义词表创建检索器，未配置时使用内置表
func NewRetriever(cfg *config.Config) *retrieval.Retriever {
	rules := make([]retrieval.SynonymRule, 0, len(cfg.Retrieval.Synonyms))
	for _, s := range cfg.Retrieval.Synonyms {
		rules = append(rules, retrieval.SynonymRule{Trigger: s.Trigger, Synonyms: s.Synonyms})
	}
	return retrieval.NewRetriever(retrieval.NewExpander(rules), cfg.Retrieval.TopK)
}

func newTranscript(cfg *config.Config, st *storage.Storage) transcript.Store {
	if st != nil && st.Redis != nil {
		store, err := transcript.NewRedisStore(st.Redis.Client, cfg.Redis.KeyPrefix, cfg.RedisTTL(), cfg.Redis.MaxEntries)
		if err == nil {
			return store
		}
		logger.Warn().Err(err).Msg("创建Redis问答记录失败，使用内存存储")
	}
	return transcript.NewMemoryStore(cfg.Redis.MaxEntries,
		transcript.WithSessionTTL(cfg.RedisTTL()),
		transcript.WithMaxSessions(cfg.Redis.MaxSessions),
	)
}

// TracingConfig 转换为 tracing.Init 的参数
func TracingConfig(cfg *config.Config) tracing.Config {
	return tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
	}
}

// LoggerConfig 转换为 logger.Init 的参数
func LoggerConfig(cfg *config.Config) logger.Config {
	return logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
		File:         cfg.Logger.File,
	}
}
