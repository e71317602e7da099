package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"KISChat/internal/api"
	"KISChat/internal/chat"
	"KISChat/internal/config"
	"KISChat/internal/store"
	"KISChat/internal/stream"
	"KISChat/internal/telemetry"
)

// App wires the chat engine, session store, and API client into an
// interactive terminal loop.
type App struct {
	cfg      config.Config
	store    store.Store
	log      *chat.Log
	sessions *chat.Store
	engine   *stream.Engine
	client   *api.Client
	logger   *slog.Logger
	cleanup  func()

	closeOnce sync.Once
}

// New creates the application and loads persisted chat state.
func New(cfg config.Config) (*App, error) {
	logger, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx := context.Background()
	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx, cfg.LogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	// Persistence failures are never fatal: fall back to memory.
	var st store.Store
	st, err = store.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Warn("failed to open database, falling back to in-memory state", "error", err)
		st = store.NewMemoryStore()
	}

	msgLog := chat.NewLog(st, logger)
	sessions := chat.NewStore(st, msgLog, logger)
	if cfg.SessionID != "" {
		sessions.SelectSession(cfg.SessionID)
	}

	client := api.NewClient(cfg.ServerURL)
	engine := stream.NewEngine(client, sessions, msgLog, logger, tracer, meter)

	return &App{
		cfg:      cfg,
		store:    st,
		log:      msgLog,
		sessions: sessions,
		engine:   engine,
		client:   client,
		logger:   logger,
		cleanup:  cleanup,
	}, nil
}

// Run starts the interactive loop and blocks until the user quits.
func (a *App) Run() error {
	defer a.close()

	a.engine.OnEvent = a.printEvent

	// Ctrl-C cancels the in-flight turn instead of killing the process.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if a.engine.Active() {
				a.engine.Cancel()
			} else {
				fmt.Println("\nGoodbye!")
				a.close()
				os.Exit(0)
			}
		}
	}()

	active := a.sessions.Active()
	fmt.Println("=== KIS Trading Assistant ===")
	fmt.Println("한국투자증권 모의투자 AI 어시스턴트입니다.")
	fmt.Println("주식 시세 조회, 매매 주문, 잔고 확인 등을 도와드립니다.")
	fmt.Printf("Session: %s (%s)\n", active.Title, active.ID)
	fmt.Println("Type /help for commands, /quit to exit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldQuit, err := a.handleCommand(ctx, input)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				a.logger.Error("command error", "error", err)
			}
			if shouldQuit {
				break
			}
			continue
		}

		fmt.Print("Bot: ")
		err := a.engine.Submit(ctx, a.sessions.ActiveID(), input)
		switch {
		case errors.Is(err, stream.ErrTurnActive):
			fmt.Println("(이전 응답이 아직 진행 중입니다)")
		case errors.Is(err, stream.ErrEmptyMessage):
			// Blank input is already filtered above; nothing to show.
		case err != nil:
			fmt.Printf("Error: %v\n", err)
			a.logger.Error("failed to submit message", "error", err)
		}
		fmt.Println()
	}

	fmt.Println("Goodbye!")
	return nil
}

// printEvent renders committed stream events to the terminal.
func (a *App) printEvent(ev stream.Event) {
	switch ev.Type {
	case stream.EventTextDelta:
		fmt.Print(ev.Text)
	case stream.EventToolStart:
		fmt.Printf("\n[도구 %s] 시작\n", ev.ToolName)
	case stream.EventToolExecuting:
		fmt.Printf("[도구 %s] 실행 중\n", ev.ToolName)
	case stream.EventToolResult:
		fmt.Printf("[도구 %s] 완료\n", ev.ToolName)
	case stream.EventDone:
		fmt.Println()
	case stream.EventError:
		fmt.Printf("\n오류가 발생했습니다: %s\n", ev.Message)
	}
}

func (a *App) close() {
	a.closeOnce.Do(func() {
		a.cleanup()
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close store", "error", err)
		}
	})
}
