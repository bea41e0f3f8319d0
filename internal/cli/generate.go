package cli

import (
	"fmt"

	"github.com/BradenHooton/backupsui/internal/auth"
	"github.com/BradenHooton/backupsui/internal/services"
	"github.com/spf13/cobra"
)

func newGenerateCommand(opts Options) *cobra.Command {
	var (
		username string
		password string
		baseURL  string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print a login link valid for one hour",
		Long: `Print a login token and the URL that consumes it.

--user and --password default to the configured database credentials.
The credentials are not checked here; the panel checks them when the
link is opened.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, db, err := codecFor(opts)
			if err != nil {
				return err
			}
			if username == "" {
				username = db.User
			}
			if password == "" {
				password = db.Password
			}
			if username == "" || password == "" {
				return fmt.Errorf("missing username or password")
			}
			if baseURL == "" {
				baseURL = defaultBaseURL(opts.Getenv)
			}

			token, err := codec.Encode(username, password)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "token:   %s\n", token)
			fmt.Fprintf(out, "url:     %s\n", services.BuildLoginURL(baseURL, token))
			fmt.Fprintf(out, "expires: %s\n", opts.Now().Add(auth.MagicLinkTTL).UTC().Format("2006-01-02T15:04:05Z"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "", "database username (default: configured user)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "database password (default: configured password)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "panel origin (default: PUBLIC_BASE_URL or http://localhost:PORT)")
	return cmd
}
