package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/backupsui/internal/auth"
	"github.com/BradenHooton/backupsui/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(out *bytes.Buffer, now *time.Time, env map[string]string) Options {
	return Options{
		Out: out,
		LoadDatabase: func() config.DatabaseConfig {
			return config.DatabaseConfig{Type: "POSTGRES", User: "postgres", Password: "s3cret"}
		},
		Getenv: func(key string) string { return env[key] },
		Now:    func() time.Time { return *now },
	}
}

func run(t *testing.T, opts Options, args ...string) error {
	t.Helper()
	cmd := NewRootCommand(opts)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func field(t *testing.T, output, name string) string {
	t.Helper()
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, name+":") {
			return strings.TrimSpace(strings.TrimPrefix(line, name+":"))
		}
	}
	t.Fatalf("no %q line in output:\n%s", name, output)
	return ""
}

func TestGenerate_DefaultsToConfiguredCredentials(t *testing.T) {
	var out bytes.Buffer
	now := time.Date(2025, 7, 8, 12, 0, 0, 0, time.UTC)
	opts := testOptions(&out, &now, map[string]string{"PORT": "8080"})

	require.NoError(t, run(t, opts, "generate"))

	token := field(t, out.String(), "token")
	assert.Equal(t, "http://localhost:8080/api/login?token="+token, field(t, out.String(), "url"))
	assert.Equal(t, "2025-07-08T13:00:00Z", field(t, out.String(), "expires"))

	out.Reset()
	require.NoError(t, run(t, opts, "inspect", token))
	assert.Equal(t, "postgres", field(t, out.String(), "username"))
}

func TestGenerate_UsesPublicBaseURL(t *testing.T) {
	var out bytes.Buffer
	now := time.Now()
	opts := testOptions(&out, &now, map[string]string{"PUBLIC_BASE_URL": "https://backups.example.org/"})

	require.NoError(t, run(t, opts, "generate", "--user", "admin", "--password", "pw"))

	assert.True(t, strings.HasPrefix(field(t, out.String(), "url"), "https://backups.example.org/api/login?token="))
}

func TestGenerate_MissingPassword(t *testing.T) {
	var out bytes.Buffer
	now := time.Now()
	opts := testOptions(&out, &now, nil)
	opts.LoadDatabase = func() config.DatabaseConfig { return config.DatabaseConfig{} }

	err := run(t, opts, "generate", "--user", "admin")

	assert.Error(t, err)
}

func TestInspect_AcceptsFullURL(t *testing.T) {
	var out bytes.Buffer
	now := time.Now()
	opts := testOptions(&out, &now, nil)

	require.NoError(t, run(t, opts, "generate", "--base-url", "https://panel.local"))
	url := field(t, out.String(), "url")

	out.Reset()
	require.NoError(t, run(t, opts, "inspect", url))
	assert.Equal(t, "postgres", field(t, out.String(), "username"))
}

func TestInspect_ExpiredToken(t *testing.T) {
	var out bytes.Buffer
	now := time.Now()
	opts := testOptions(&out, &now, nil)

	require.NoError(t, run(t, opts, "generate"))
	token := field(t, out.String(), "token")

	now = now.Add(61 * time.Minute)
	err := run(t, opts, "inspect", token)

	require.Error(t, err)
	assert.Equal(t, "invalid or expired token", err.Error())
}

func TestInspect_WrongKey(t *testing.T) {
	var out bytes.Buffer
	now := time.Now()
	opts := testOptions(&out, &now, nil)

	require.NoError(t, run(t, opts, "generate"))
	token := field(t, out.String(), "token")

	opts.LoadDatabase = func() config.DatabaseConfig {
		return config.DatabaseConfig{Password: "rotated"}
	}
	err := run(t, opts, "inspect", token)

	require.Error(t, err)
	assert.Equal(t, "invalid or expired token", err.Error())
}

func TestInspect_TokenStartingWithDash(t *testing.T) {
	var out bytes.Buffer
	now := time.Now()
	opts := testOptions(&out, &now, nil)

	codec, err := auth.NewMagicLinkCodec("s3cret", auth.WithMagicLinkClock(opts.Now))
	require.NoError(t, err)

	var token string
	for i := 0; i < 10000 && !strings.HasPrefix(token, "-"); i++ {
		token, err = codec.Encode("postgres", "s3cret")
		require.NoError(t, err)
	}
	require.True(t, strings.HasPrefix(token, "-"), "no dash-prefixed token generated")

	require.NoError(t, run(t, opts, "inspect", token))
	assert.Equal(t, "postgres", field(t, out.String(), "username"))
}

func TestInspect_DashPrefixedGarbage(t *testing.T) {
	var out bytes.Buffer
	now := time.Now()
	opts := testOptions(&out, &now, nil)

	err := run(t, opts, "inspect", "-5wcglOM3")

	require.Error(t, err)
	assert.Equal(t, "invalid or expired token", err.Error())
}

func TestTokenFromArg(t *testing.T) {
	assert.Equal(t, "abc", tokenFromArg("abc"))
	assert.Equal(t, "a-b_c", tokenFromArg("http://x/api/login?token=a-b_c"))
	assert.Equal(t, "http://x/api/login?other=1", tokenFromArg("http://x/api/login?other=1"))
}
