package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/BradenHooton/backupsui/internal/models"
	"github.com/spf13/cobra"
)

func newInspectCommand(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect TOKEN|URL",
		Short: "Check whether a login link opens with the configured key",
		// Tokens are URL-safe base64 and may start with '-'.
		DisableFlagParsing: true,
		Args:               cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, _, err := codecFor(opts)
			if err != nil {
				return err
			}

			payload, err := codec.Decode(tokenFromArg(args[0]))
			if err != nil {
				if errors.Is(err, models.ErrTokenExpired) || errors.Is(err, models.ErrInvalidToken) {
					return fmt.Errorf("invalid or expired token")
				}
				return err
			}

			expires := time.UnixMilli(payload.Expiration).UTC()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "username: %s\n", payload.Username)
			fmt.Fprintf(out, "expires:  %s (in %s)\n", expires.Format("2006-01-02T15:04:05Z"),
				expires.Sub(opts.Now()).Truncate(time.Second))
			return nil
		},
	}
}

// tokenFromArg accepts a bare token or a full login URL
func tokenFromArg(arg string) string {
	if !strings.Contains(arg, "?") {
		return arg
	}
	u, err := url.Parse(arg)
	if err != nil {
		return arg
	}
	if token := u.Query().Get("token"); token != "" {
		return token
	}
	return arg
}
