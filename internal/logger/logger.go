package logger // 全局结构化日志

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Logger 全局日志实例，其他包直接使用
	Logger = log.Logger
)

// Config 日志配置
type Config struct {
	Level        string `json:"level" yaml:"level"`                 // debug, info, warn, error
	Format       string `json:"format" yaml:"format"`               // json 或 pretty
	TimeFormat   string `json:"time_format" yaml:"time_format"`     // 时间戳格式
	ReportCaller bool   `json:"report_caller" yaml:"report_caller"` // 是否输出调用位置
	File         string `json:"file" yaml:"file"`                   // 非空时同时写入该文件
}

// New 根据配置构建一个写到 out 的 logger，不修改全局状态
func New(config Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}

	output := out
	if config.Format == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: config.TimeFormat,
		}
	}

	ctxLogger := zerolog.New(output).Level(level).With().Timestamp()
	if config.ReportCaller {
		ctxLogger = ctxLogger.Caller()
	}
	return ctxLogger.Logger()
}

// Init 初始化全局日志；配置了 File 时控制台和文件双写
// 返回的 io.Closer 用于在退出时关闭日志文件
func Init(config Config) io.Closer {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if config.TimeFormat == "" {
		zerolog.TimeFieldFormat = time.RFC3339
	} else {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	var closer io.Closer = nopCloser{}
	var out io.Writer = os.Stdout
	if config.File != "" {
		if err := os.MkdirAll(filepath.Dir(config.File), 0o755); err == nil {
			if f, err := os.OpenFile(config.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
				// 文件固定使用 json，控制台按 Format
				console := io.Writer(os.Stdout)
				if config.Format == "pretty" {
					console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: config.TimeFormat}
				}
				Logger = zerolog.New(zerolog.MultiLevelWriter(console, f)).Level(level).With().Timestamp().Logger()
				if config.ReportCaller {
					Logger = Logger.With().Caller().Logger()
				}
				log.Logger = Logger
				return f
			}
		}
	}

	Logger = New(config, out)
	log.Logger = Logger
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Debug 调试级别日志
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Info 信息级别日志
func Info() *zerolog.Event {
	return Logger.Info()
}

// Warn 警告级别日志
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Error 错误级别日志
func Error() *zerolog.Event {
	return Logger.Error()
}

// Fatal 致命错误，记录后进程退出
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// Ctx 从上下文中取 logger，没有时返回全局 logger
func Ctx(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return &Logger
	}
	return l
}

// WithContext 把全局 logger 放进上下文
func WithContext(ctx context.Context) context.Context {
	return Logger.WithContext(ctx)
}

// WithFields 把带额外字段的 logger 放进上下文
func WithFields(ctx context.Context, fields map[string]string) context.Context {
	c := Ctx(ctx).With()
	for k, v := range fields {
		c = c.Str(k, v)
	}
	l := c.Logger()
	return l.WithContext(ctx)
}
