package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/config"
	"github.com/sakif/notes/internal/model"
	sqliteRepo "github.com/sakif/notes/internal/repository/sqlite"
	"github.com/sakif/notes/internal/service"
)

// app holds what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE and released in PersistentPostRunE.
type app struct {
	configPath string
	dbPath     string
	verbose    bool

	// passwords is overridden in tests to keep bcrypt fast.
	passwords *auth.PasswordService

	db       *sqliteRepo.DB
	notes    *service.NoteService
	accounts *service.AuthService
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notesctl",
		Short: "Administer the notes database",
		Long: `notesctl works directly on the notes SQLite database.
It goes through the same services as the web app, so slug and ownership
rules are the same.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", os.Getenv("NOTES_CONFIG"), "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "database path (overrides the config)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(newUserCmd(a), newNotesCmd(a))
	return cmd
}

func (a *app) open(cmd *cobra.Command) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	// The CLI never hands out sessions, but AuthService needs a signer.
	if _, err := cfg.EnsureSecret(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService(cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		db.Close()
		return err
	}

	passwords := a.passwords
	if passwords == nil {
		passwords = auth.NewPasswordService()
	}

	a.db = db
	a.notes = service.NewNoteService(db, logger)
	a.accounts = service.NewAuthService(db, tokens, passwords, logger)
	logger.Debug("database opened", slog.String("path", cfg.DBPath))
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// lookupUser resolves a --user flag to the stored account.
func (a *app) lookupUser(cmd *cobra.Command, username string) (*model.User, error) {
	if username == "" {
		return nil, fmt.Errorf("--user is required")
	}
	user, err := a.db.GetUserByUsername(cmd.Context(), username)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", username, err)
	}
	return user, nil
}
