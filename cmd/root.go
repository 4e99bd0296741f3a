package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rpg-stage/stagectl/internal/api"
	"github.com/rpg-stage/stagectl/internal/config"
	"github.com/rpg-stage/stagectl/internal/session"
)

var (
	cfgFile     string
	baseURLFlag string
	verbose     bool

	// Package-level version info, set by Execute().
	appVersion string
	appCommit  string
	appDate    string
)

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date

	rootCmd := &cobra.Command{
		Use:   "stagectl",
		Short: "Terminal client for the RPG Stage agent chat backend",
		Long: "stagectl talks to an RPG Stage server: manage users, agent templates and\n" +
			"agents, and chat with an agent in an interactive terminal UI.",
		// Running stagectl with no subcommand shows the agent roster.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgentsList(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ~/.config/stagectl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURLFlag, "base-url", "", "backend base URL (overrides config and STAGE_BASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	// Subcommands
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newAgentsCmd())
	rootCmd.AddCommand(newMetasCmd())
	rootCmd.AddCommand(newUsersCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles the wired dependencies every command needs: config, logger,
// the durable token store, the session manager and the API client.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	store  *session.SQLiteStore
	sess   *session.Manager
	client *api.Client
}

// newApp loads configuration and wires the stack. quiet suppresses log
// output entirely (the chat TUI owns the terminal).
func newApp(quiet bool) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if baseURLFlag != "" {
		cfg.BaseURL = baseURLFlag
	}

	log := zap.NewNop()
	if !quiet {
		log, err = buildLogger(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath, err = session.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("credential db path: %w", err)
		}
	}
	store, err := session.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	sess, err := session.NewManager(store, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	client := api.New(cfg.BaseURL, sess, api.WithLogger(log))

	return &app{cfg: cfg, log: log, store: store, sess: sess, client: client}, nil
}

func (a *app) Close() {
	_ = a.log.Sync()
	_ = a.store.Close()
}

// requireSession validates the stored token on startup. Only a confirmed
// 401/403 forces re-login; an unreachable backend keeps the token and
// proceeds with a warning.
func (a *app) requireSession(ctx context.Context) error {
	st, err := a.sess.Resume(ctx, a.client)
	switch st {
	case session.StateAuthenticated:
		return nil
	case session.StateUnverified:
		fmt.Fprintf(os.Stderr, "warning: could not verify session (%v), continuing with stored token\n", err)
		return nil
	default:
		return fmt.Errorf("not logged in; run `stagectl login` first")
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl := zapcore.WarnLevel
	if verbose {
		lvl = zapcore.DebugLevel
	} else if level != "" {
		if err := lvl.Set(level); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}
