package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/BTreeMap/BuddyBot/internal/api"
	"github.com/BTreeMap/BuddyBot/internal/catalog"
	"github.com/BTreeMap/BuddyBot/internal/flow"
	"github.com/BTreeMap/BuddyBot/internal/lockfile"
	"github.com/BTreeMap/BuddyBot/internal/memory"
	"github.com/BTreeMap/BuddyBot/internal/messaging"
	"github.com/BTreeMap/BuddyBot/internal/scheduler"
	"github.com/BTreeMap/BuddyBot/internal/store"
	"github.com/BTreeMap/BuddyBot/internal/twiliowhatsapp"
	"github.com/BTreeMap/BuddyBot/internal/util"
	"github.com/BTreeMap/BuddyBot/internal/whatsapp"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for BuddyBot state data
	DefaultStateDir = "/var/lib/buddybot"
	// DefaultArchiveFileName is the default SQLite transcript archive filename
	DefaultArchiveFileName = "buddybot.db"
	// DefaultWhatsAppDBFileName is the default whatsmeow device store filename
	DefaultWhatsAppDBFileName = "whatsmeow.db"
)

// Chat channels selectable with -channel.
const (
	ChannelNone     = "none"
	ChannelWhatsApp = "whatsapp"
	ChannelTwilio   = "twilio"
)

// logLevel is shared by the default logger so flags can adjust it after startup.
var logLevel = new(slog.LevelVar)

func main() {
	initializeLogger(os.Stdout)

	config := loadEnvironmentConfig()
	flags, err := parseCommandLineFlags(flag.CommandLine, os.Args[1:], config)
	if err != nil {
		slog.Error("Invalid command line", "error", err)
		os.Exit(2)
	}
	initializeLogger(logOutput(flags))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags, os.Stdin, os.Stdout); err != nil {
		slog.Error("BuddyBot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("BuddyBot exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir         string
	ArchiveDSN       string
	Archive          bool
	APIAddr          string
	CatalogPath      string
	MaxTurns         int
	Seed             string
	Channel          string
	WhatsAppDSN      string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	TwilioWebhookURL string
	LogLevel         string
	IdleTimeout      time.Duration
	ReaperSchedule   string
}

// Flags holds the effective settings after command line flags override Config.
type Flags struct {
	StateDir         string
	ArchiveDSN       string
	Archive          bool
	APIAddr          string
	CatalogPath      string
	MaxTurns         int
	Seed             string
	Channel          string
	WhatsAppDSN      string
	QROutput         string
	NumericCode      bool
	TwilioWebhookURL string
	LogLevel         string
	IdleTimeout      time.Duration
	ReaperSchedule   string
	REPL             bool

	// Twilio credentials only come from the environment.
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
}

// initializeLogger sets up structured logging on w
func initializeLogger(w io.Writer) {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}

// logOutput keeps logs off stdout while the REPL uses it for the conversation.
func logOutput(flags Flags) io.Writer {
	if flags.REPL {
		return os.Stderr
	}
	return os.Stdout
}

// parseLogLevel maps debug/info/warn/error onto slog levels.
func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:         os.Getenv("BUDDYBOT_STATE_DIR"),
		ArchiveDSN:       os.Getenv("DATABASE_URL"),
		Archive:          util.ParseBoolEnv("BUDDYBOT_ARCHIVE", false),
		APIAddr:          os.Getenv("API_ADDR"),
		CatalogPath:      os.Getenv("BUDDYBOT_CATALOG"),
		MaxTurns:         util.ParseIntEnv("BUDDYBOT_MAX_TURNS", 0),
		Seed:             os.Getenv("BUDDYBOT_SEED"),
		Channel:          strings.ToLower(os.Getenv("BUDDYBOT_CHANNEL")),
		WhatsAppDSN:      os.Getenv("WHATSAPP_DB_DSN"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_FROM_NUMBER"),
		TwilioWebhookURL: os.Getenv("TWILIO_WEBHOOK_URL"),
		LogLevel:         os.Getenv("BUDDYBOT_LOG_LEVEL"),
		IdleTimeout:      util.ParseDurationEnv("BUDDYBOT_SESSION_IDLE_TIMEOUT", 0),
		ReaperSchedule:   os.Getenv("BUDDYBOT_REAPER_SCHEDULE"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No BUDDYBOT_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.APIAddr == "" {
		config.APIAddr = api.DefaultAddr
	}
	if config.Channel == "" {
		config.Channel = ChannelNone
	}
	if config.ReaperSchedule == "" {
		config.ReaperSchedule = scheduler.DefaultReaperSchedule
	}

	slog.Debug("environment variables loaded",
		"BUDDYBOT_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.ArchiveDSN != "",
		"BUDDYBOT_ARCHIVE", config.Archive,
		"API_ADDR", config.APIAddr,
		"BUDDYBOT_CATALOG", config.CatalogPath,
		"BUDDYBOT_MAX_TURNS", config.MaxTurns,
		"BUDDYBOT_SEED_SET", config.Seed != "",
		"BUDDYBOT_CHANNEL", config.Channel,
		"WHATSAPP_DB_DSN_SET", config.WhatsAppDSN != "",
		"TWILIO_ACCOUNT_SID_SET", config.TwilioAccountSID != "",
		"BUDDYBOT_SESSION_IDLE_TIMEOUT", config.IdleTimeout)
	return config
}

// parseCommandLineFlags parses args with environment defaults, then fills in
// state-directory-relative defaults and applies the log level.
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config Config) (Flags, error) {
	flags := Flags{
		TwilioAccountSID: config.TwilioAccountSID,
		TwilioAuthToken:  config.TwilioAuthToken,
		TwilioFrom:       config.TwilioFrom,
	}
	fs.StringVar(&flags.StateDir, "state-dir", config.StateDir, "state directory for BuddyBot data (overrides $BUDDYBOT_STATE_DIR)")
	fs.StringVar(&flags.ArchiveDSN, "db-dsn", config.ArchiveDSN, "transcript archive DSN, Postgres URL or SQLite path (overrides $DATABASE_URL)")
	fs.BoolVar(&flags.Archive, "archive", config.Archive, "mirror every turn into the transcript archive (overrides $BUDDYBOT_ARCHIVE)")
	fs.StringVar(&flags.APIAddr, "api-addr", config.APIAddr, "API server address (overrides $API_ADDR)")
	fs.StringVar(&flags.CatalogPath, "catalog", config.CatalogPath, "YAML file with response template overrides (overrides $BUDDYBOT_CATALOG)")
	fs.IntVar(&flags.MaxTurns, "max-turns", config.MaxTurns, "turns kept per session, 0 for unbounded (overrides $BUDDYBOT_MAX_TURNS)")
	fs.StringVar(&flags.Seed, "seed", config.Seed, "random seed for reproducible replies (overrides $BUDDYBOT_SEED)")
	fs.StringVar(&flags.Channel, "channel", config.Channel, "chat channel: none, whatsapp or twilio (overrides $BUDDYBOT_CHANNEL)")
	fs.StringVar(&flags.WhatsAppDSN, "whatsapp-dsn", config.WhatsAppDSN, "whatsmeow device store DSN (overrides $WHATSAPP_DB_DSN)")
	fs.StringVar(&flags.QROutput, "qr-output", "", "path to write login QR code")
	fs.BoolVar(&flags.NumericCode, "numeric-code", false, "use numeric login code instead of QR code")
	fs.StringVar(&flags.TwilioWebhookURL, "twilio-webhook-url", config.TwilioWebhookURL, "public webhook URL used to verify Twilio signatures (overrides $TWILIO_WEBHOOK_URL)")
	fs.StringVar(&flags.LogLevel, "log-level", config.LogLevel, "log level: debug, info, warn or error (overrides $BUDDYBOT_LOG_LEVEL)")
	fs.DurationVar(&flags.IdleTimeout, "session-idle-timeout", config.IdleTimeout, "end sessions idle this long, 0 disables (overrides $BUDDYBOT_SESSION_IDLE_TIMEOUT)")
	fs.StringVar(&flags.ReaperSchedule, "reaper-schedule", config.ReaperSchedule, "cron expression for the idle session reaper (overrides $BUDDYBOT_REAPER_SCHEDULE)")
	fs.BoolVar(&flags.REPL, "repl", false, "chat on stdin/stdout instead of serving HTTP")

	if err := fs.Parse(args); err != nil {
		return flags, err
	}

	level, err := parseLogLevel(flags.LogLevel)
	if err != nil {
		return flags, err
	}
	logLevel.Set(level)

	switch flags.Channel {
	case ChannelNone, ChannelWhatsApp, ChannelTwilio:
	default:
		return flags, fmt.Errorf("unknown channel %q", flags.Channel)
	}
	if flags.MaxTurns < 0 {
		return flags, fmt.Errorf("max-turns must not be negative, got %d", flags.MaxTurns)
	}
	if flags.IdleTimeout < 0 {
		return flags, fmt.Errorf("session-idle-timeout must not be negative, got %s", flags.IdleTimeout)
	}
	if flags.Seed != "" {
		if _, err := strconv.ParseUint(flags.Seed, 10, 64); err != nil {
			return flags, fmt.Errorf("invalid seed %q: %w", flags.Seed, err)
		}
	}

	// File-backed defaults follow the effective state directory.
	if flags.Archive && flags.ArchiveDSN == "" {
		flags.ArchiveDSN = filepath.Join(flags.StateDir, DefaultArchiveFileName)
	}
	if flags.WhatsAppDSN == "" {
		flags.WhatsAppDSN = "file:" + filepath.Join(flags.StateDir, DefaultWhatsAppDBFileName) + "?_foreign_keys=on"
	}

	slog.Debug("flags parsed",
		"stateDir", flags.StateDir,
		"archive", flags.Archive,
		"archiveDSN_set", flags.ArchiveDSN != "",
		"apiAddr", flags.APIAddr,
		"catalog", flags.CatalogPath,
		"maxTurns", flags.MaxTurns,
		"channel", flags.Channel,
		"idleTimeout", flags.IdleTimeout,
		"repl", flags.REPL)
	return flags, nil
}

// usesStateDir reports whether any file-backed component will write under the state directory.
func usesStateDir(flags Flags) bool {
	if flags.Archive && store.DetectDSNType(flags.ArchiveDSN) == "sqlite3" {
		return true
	}
	return flags.Channel == ChannelWhatsApp && !flags.REPL && store.DetectDSNType(flags.WhatsAppDSN) == "sqlite3"
}

// buildEngineOptions constructs engine configuration options
func buildEngineOptions(flags Flags, cat *catalog.Catalog, archive flow.Archive) []flow.Option {
	opts := []flow.Option{
		flow.WithCatalog(cat),
		flow.WithMemory(memory.New(memory.WithMaxTurns(flags.MaxTurns))),
	}
	if archive != nil {
		opts = append(opts, flow.WithArchive(archive))
	}
	if flags.Seed != "" {
		seed, _ := strconv.ParseUint(flags.Seed, 10, 64)
		opts = append(opts, flow.WithSeed(seed))
		slog.Debug("Engine seeded for reproducible replies", "seed", seed)
	}
	return opts
}

// loadCatalog returns the built-in catalog or the one merged with a YAML override file.
func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	slog.Info("Loaded response catalog overrides", "path", path)
	return cat, nil
}

// openArchive opens the transcript archive when enabled.
func openArchive(flags Flags) (store.Store, error) {
	if !flags.Archive {
		slog.Debug("Transcript archive disabled")
		return nil, nil
	}
	archive, err := store.Open(flags.ArchiveDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript archive: %w", err)
	}
	slog.Info("Transcript archive opened", "type", store.DetectDSNType(flags.ArchiveDSN))
	return archive, nil
}

// newDeduper reuses a database-backed archive for inbound dedup and falls back to memory.
func newDeduper(archive store.Store) messaging.Deduper {
	if d, ok := archive.(store.Deduper); ok {
		return d
	}
	return store.NewInMemoryDeduper()
}

// run wires every component and blocks until ctx is cancelled or the server fails.
func run(ctx context.Context, flags Flags, in io.Reader, out io.Writer) error {
	if usesStateDir(flags) {
		lock, err := lockfile.AcquireLock(flags.StateDir)
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	cat, err := loadCatalog(flags.CatalogPath)
	if err != nil {
		return err
	}
	archive, err := openArchive(flags)
	if err != nil {
		return err
	}
	var engineArchive flow.Archive
	var apiOpts []api.Option
	if archive != nil {
		defer archive.Close()
		engineArchive = archive
		apiOpts = append(apiOpts, api.WithArchive(archive))
	}
	engine := flow.NewEngine(buildEngineOptions(flags, cat, engineArchive)...)

	if flags.REPL {
		return runREPL(ctx, engine, util.GenerateSessionID(), in, out)
	}

	if flags.IdleTimeout > 0 {
		sched, err := startSessionReaper(flags, engine)
		if err != nil {
			return err
		}
		defer sched.Stop()
	}

	channel, err := startChannel(ctx, flags, engine, newDeduper(archive))
	if err != nil {
		return err
	}
	defer channel.stop()
	apiOpts = append(apiOpts, channel.apiOpts...)
	apiOpts = append(apiOpts, api.WithAddr(flags.APIAddr))

	server := api.NewServer(engine, util.GenerateSessionID, apiOpts...)
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), api.DefaultShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	return nil
}

// startSessionReaper schedules periodic expiry of idle sessions.
func startSessionReaper(flags Flags, engine scheduler.SessionExpirer) (*scheduler.Scheduler, error) {
	sched := scheduler.NewScheduler()
	if err := sched.ScheduleSessionReaper(flags.ReaperSchedule, engine, flags.IdleTimeout); err != nil {
		sched.Stop()
		return nil, err
	}
	return sched, nil
}

// runningChannel is a started chat channel and what the API needs from it.
type runningChannel struct {
	apiOpts []api.Option
	stop    func()
}

// startChannel connects the selected chat channel and starts routing its messages.
func startChannel(ctx context.Context, flags Flags, engine messaging.Responder, deduper messaging.Deduper) (runningChannel, error) {
	switch flags.Channel {
	case ChannelWhatsApp:
		waOpts := []whatsapp.Option{whatsapp.WithDBDSN(flags.WhatsAppDSN)}
		if flags.QROutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(flags.QROutput))
		}
		if flags.NumericCode {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(ctx, waOpts...)
		if err != nil {
			return runningChannel{}, err
		}
		svc := messaging.NewWhatsAppService(client)
		stop := serveChannel(ctx, svc, engine, deduper)
		return runningChannel{stop: func() { stop(); client.Disconnect() }}, nil

	case ChannelTwilio:
		client, err := twiliowhatsapp.NewClient(
			twiliowhatsapp.WithAccountSID(flags.TwilioAccountSID),
			twiliowhatsapp.WithAuthToken(flags.TwilioAuthToken),
			twiliowhatsapp.WithFromWhats(flags.TwilioFrom),
		)
		if err != nil {
			return runningChannel{}, err
		}
		var opts []messaging.TwilioOption
		if flags.TwilioWebhookURL != "" {
			opts = append(opts, messaging.WithWebhookValidation(flags.TwilioAuthToken, flags.TwilioWebhookURL))
		}
		svc := messaging.NewTwilioService(client, opts...)
		stop := serveChannel(ctx, svc, engine, deduper)
		return runningChannel{
			apiOpts: []api.Option{api.WithTwilioWebhook(svc.TwilioWebhookHandler)},
			stop:    stop,
		}, nil

	default:
		return runningChannel{stop: func() {}}, nil
	}
}

// serveChannel starts svc and its response handler. The returned func stops intake,
// waits for buffered messages to be answered and then closes svc.
func serveChannel(ctx context.Context, svc messaging.Service, engine messaging.Responder, deduper messaging.Deduper) func() {
	if err := svc.Start(ctx); err != nil {
		slog.Error("Failed to start messaging service", "error", err)
	}
	done := messaging.NewResponseHandler(svc, engine, messaging.WithDeduper(deduper)).Start(ctx)
	return func() {
		if err := svc.Stop(); err != nil {
			slog.Error("Failed to stop messaging service", "error", err)
		}
		<-done
		if err := svc.Close(); err != nil {
			slog.Error("Failed to close messaging service", "error", err)
		}
	}
}
