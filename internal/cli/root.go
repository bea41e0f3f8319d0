// Package cli implements the magiclink command, an offline tool for minting
// and checking panel login links with the configured database password.
package cli

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/BradenHooton/backupsui/internal/auth"
	"github.com/BradenHooton/backupsui/internal/config"
	"github.com/spf13/cobra"
)

// Options are the command's external dependencies
type Options struct {
	Out          io.Writer
	LoadDatabase func() config.DatabaseConfig
	Getenv       func(string) string
	Now          func() time.Time
}

// DefaultOptions reads configuration from the environment and writes to stdout
func DefaultOptions() Options {
	return Options{
		Out:          os.Stdout,
		LoadDatabase: config.LoadDatabase,
		Getenv:       os.Getenv,
		Now:          time.Now,
	}
}

// NewRootCommand builds the magiclink command tree
func NewRootCommand(opts Options) *cobra.Command {
	root := &cobra.Command{
		Use:   "magiclink",
		Short: "Create and inspect backups panel login links",
		Long: `magiclink mints login links for the backups panel without going
through the web UI. Links are sealed with a key derived from the database
password (<DB_TYPE>_PASSWORD), so they only open on a panel configured
with the same password, and they expire after one hour.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Out)

	root.AddCommand(newGenerateCommand(opts))
	root.AddCommand(newInspectCommand(opts))
	return root
}

// Execute runs the command tree against the process environment
func Execute() error {
	return NewRootCommand(DefaultOptions()).Execute()
}

// codecFor builds a codec keyed by the configured database password
func codecFor(opts Options) (*auth.MagicLinkCodec, config.DatabaseConfig, error) {
	db := opts.LoadDatabase()
	codec, err := auth.NewMagicLinkCodec(db.Password, auth.WithMagicLinkClock(opts.Now))
	if err != nil {
		return nil, db, err
	}
	return codec, db, nil
}

// defaultBaseURL mirrors the server: PUBLIC_BASE_URL, else localhost on PORT
func defaultBaseURL(getenv func(string) string) string {
	if base := strings.TrimRight(getenv("PUBLIC_BASE_URL"), "/"); base != "" {
		return base
	}
	port := getenv("PORT")
	if port == "" {
		port = "3000"
	}
	return "http://localhost:" + port
}
