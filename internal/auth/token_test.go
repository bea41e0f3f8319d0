package auth_test

import (
	"testing"
	"time"

	"github.com/BradenHooton/backupsui/internal/auth"
	"github.com/BradenHooton/backupsui/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSessionSecret = "session-secret-for-tests-0123456789"

// fakeClock is a settable time source shared by the auth tests
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 7, 8, 12, 0, 0, 0, time.UTC)}
}

func TestSessionManager_IssueAndVerify(t *testing.T) {
	clock := newClock()
	sm := auth.NewSessionManager(testSessionSecret, auth.WithSessionClock(clock.Now))

	token, expiresAt, err := sm.Issue("postgres")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, clock.Now().Add(time.Hour), expiresAt)

	claims, err := sm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "postgres", claims.Username)
	assert.NotEmpty(t, claims.ID)
}

func TestSessionManager_ExpiresAfterOneHour(t *testing.T) {
	clock := newClock()
	sm := auth.NewSessionManager(testSessionSecret, auth.WithSessionClock(clock.Now))

	token, _, err := sm.Issue("postgres")
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	_, err = sm.Verify(token)
	assert.NoError(t, err, "token must be accepted at T+59m")

	clock.Advance(2 * time.Minute)
	_, err = sm.Verify(token)
	assert.ErrorIs(t, err, models.ErrSessionInvalid, "token must be rejected at T+61m")
}

func TestSessionManager_RejectsWrongSecret(t *testing.T) {
	issuer := auth.NewSessionManager(testSessionSecret)
	verifier := auth.NewSessionManager("a-completely-different-secret-value")

	token, _, err := issuer.Issue("postgres")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, models.ErrSessionInvalid)
}

func TestSessionManager_RejectsMalformedAndEmpty(t *testing.T) {
	sm := auth.NewSessionManager(testSessionSecret)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := sm.Verify(token)
		assert.ErrorIs(t, err, models.ErrSessionInvalid, "token %q", token)
	}
}

func TestSessionManager_RejectsOtherAlgorithms(t *testing.T) {
	sm := auth.NewSessionManager(testSessionSecret)

	claims := &models.SessionClaims{
		Username: "postgres",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSessionSecret))
	require.NoError(t, err)

	_, err = sm.Verify(token)
	assert.ErrorIs(t, err, models.ErrSessionInvalid)
}

func TestSessionManager_RequiresExpiration(t *testing.T) {
	sm := auth.NewSessionManager(testSessionSecret)

	claims := &models.SessionClaims{Username: "postgres"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSessionSecret))
	require.NoError(t, err)

	_, err = sm.Verify(token)
	assert.ErrorIs(t, err, models.ErrSessionInvalid)
}
