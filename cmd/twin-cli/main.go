package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"digital-twin-go/internal/bootstrap"
	"digital-twin-go/internal/config"
	"digital-twin-go/internal/logger"
	"digital-twin-go/internal/tui"
	"digital-twin-go/internal/twin"
	"digital-twin-go/internal/types"
)

const (
	exitOK       = 0
	exitError    = 1
	exitNoAnswer = 2
)

type options struct {
	configPath  string
	question    string
	plain       bool
	showSources bool
}

func main() {
	_ = godotenv.Load()

	var opts options
	pflag.StringVarP(&opts.configPath, "config", "c", "", "Path to config file")
	pflag.StringVarP(&opts.question, "question", "q", "", "Ask a single question and exit")
	pflag.BoolVar(&opts.plain, "plain", false, "Use a plain line-based prompt instead of the full-screen view")
	pflag.BoolVar(&opts.showSources, "sources", false, "Print the sources used for each answer in plain mode")
	pflag.Parse()

	os.Exit(run(context.Background(), opts, os.Stdin, os.Stdout, os.Stderr))
}

// run 返回退出码，os.Exit 只在 main 中调用，保证这里的 defer 都能执行
func run(ctx context.Context, opts options, in io.Reader, out, errOut io.Writer) int {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(errOut, "failed to load config: %v\n", err)
		return exitError
	}

	// 终端界面下日志只写文件或丢弃，避免打乱屏幕
	logCfg := bootstrap.LoggerConfig(cfg)
	var logOut io.Writer = io.Discard
	if logCfg.File != "" {
		if f, err := os.OpenFile(logCfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
			defer f.Close()
			logOut = f
			logCfg.Format = "json"
		}
	}
	logger.Logger = logger.New(logCfg, logOut)

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		fmt.Fprintf(errOut, "failed to start: %v\n", err)
		return exitError
	}
	defer app.Close()

	sessionID := uuid.NewString()
	switch {
	case opts.question != "":
		res := app.Service.Ask(ctx, sessionID, uuid.NewString(), opts.question)
		printAnswer(out, res, opts.showSources)
		if !res.OK() {
			return exitNoAnswer
		}
	case opts.plain:
		if err := runPlain(ctx, app.Service, sessionID, in, out, opts.showSources); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitError
		}
	default:
		m := tui.New(ctx, app.Service, sessionID, twinName(ctx, cfg))
		if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithInput(in), tea.WithOutput(out)).Run(); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitError
		}
	}
	return exitOK
}

// runPlain 逐行读取问题，exit/quit 或 EOF 结束
func runPlain(ctx context.Context, svc *twin.Service, sessionID string, in io.Reader, out io.Writer, showSources bool) error {
	fmt.Fprintln(out, "Digital twin ready. Type exit or quit to leave.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		if tui.IsExit(line) {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		res := svc.Ask(ctx, sessionID, uuid.NewString(), line)
		printAnswer(out, res, showSources)
	}
}

func printAnswer(out io.Writer, res types.AnswerResult, showSources bool) {
	fmt.Fprintf(out, "Twin: %s\n", res.Answer)
	if showSources && len(res.Sources) > 0 {
		titles := make([]string, 0, len(res.Sources))
		for _, s := range res.Sources {
			titles = append(titles, fmt.Sprintf("%s [%s %.2f]", s.Title, s.Type, s.Score))
		}
		fmt.Fprintf(out, "      sources: %s\n", strings.Join(titles, "; "))
	}
}

// twinName 界面标题，优先用配置的人设名
func twinName(ctx context.Context, cfg *config.Config) string {
	if cfg.Persona.Name != "" {
		return cfg.Persona.Name
	}
	src, err := bootstrap.NewProfileSource(cfg, nil)
	if err != nil {
		return "Twin"
	}
	record, err := src.Load(ctx)
	if err != nil || record == nil {
		return "Twin"
	}
	return record.DisplayName()
}
