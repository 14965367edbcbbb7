package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"go-presence/internal/agent/api"
	"go-presence/internal/agent/bus"
	"go-presence/internal/agent/channel"
	"go-presence/internal/agent/presence"
	"go-presence/internal/agent/session"
	"go-presence/internal/realtime"
)

// logLock stands in for the console shell's lock screen when the agent
// runs headless.
type logLock struct{}

func (logLock) Apply(locked, limitExceeded bool) {
	zap.L().Named("lockscreen").Info("lock state",
		zap.Bool("locked", locked),
		zap.Bool("limit_exceeded", limitExceeded),
	)
}

func main() {
	_ = godotenv.Load()
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	sessionPath := os.Getenv("SESSION_FILE")
	if sessionPath == "" {
		sessionPath = ".session.json"
	}
	sess := session.NewFileStore(sessionPath)

	// Realtime channel: one per application session, torn down on exit.
	ch := channel.New(channel.Config{
		EndpointURL:     os.Getenv("REALTIME_URL"),
		PollEndpointURL: os.Getenv("REALTIME_POLL_URL"),
	}, sess)
	ch.Initialize()
	defer ch.Close()

	apiClient := api.NewHTTPClient(
		os.Getenv("API_BASE_URL"),
		&http.Client{Timeout: 15 * time.Second},
		sess,
	)

	eventBus := bus.New()
	store := presence.NewStore(apiClient, presence.LogNotifier{})
	defer store.Close()

	presence.BindLockController(store, logLock{})
	selector := presence.NewSelector(store, eventBus, nil)
	for _, entry := range selector.Catalog() {
		zap.L().Debug("activity available", zap.String("type", string(entry.Type)), zap.String("label", entry.Label))
	}

	// Server-pushed history notices feed the same bus the selector
	// publishes on, so the history view has a single refresh signal.
	ch.On(realtime.EventHistoryChanged, func(msg *realtime.Message) {
		eventBus.Publish(bus.TopicHistoryRefresh)
	})
	eventBus.Subscribe(bus.TopicHistoryRefresh, func() {
		zap.L().Named("history").Info("refresh requested")
	})

	ch.OnStateChange(func(st channel.State) {
		zap.L().Named("realtime").Info("connection state",
			zap.Bool("connected", st.IsConnected),
			zap.String("last_error", st.LastError),
		)
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	zap.L().Info("agent shutting down", zap.String("signal", sig.String()))
}
