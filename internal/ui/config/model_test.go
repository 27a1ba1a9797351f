package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/scholarship-portal/internal/credential"
	"github.com/nhle/scholarship-portal/internal/model"
)

type mapStore map[string]string

func (s mapStore) Get(key string) (string, error) {
	v, ok := s[key]
	if !ok {
		return "", credential.ErrNotFound
	}
	return v, nil
}

func (s mapStore) Set(key, value string) error { s[key] = value; return nil }

func (s mapStore) Delete(key string) error { delete(s, key); return nil }

func baseConfig() *model.AppConfig {
	return &model.AppConfig{
		API:           model.APIConfig{BaseURL: "http://localhost:5000", Timeout: 30 * time.Second},
		Notifications: model.NotificationsConfig{PollInterval: 30 * time.Second},
		Session:       model.SessionConfig{Enabled: true, IdleTimeout: 30 * time.Minute, WarningTime: time.Minute},
		Access:        model.AccessConfig{InstitutionalDomain: "@s.ubaguio.edu"},
	}
}

type validatorCall struct {
	baseURL string
	token   string
}

func recordingValidator(user *model.User, err error, calls *[]validatorCall) Validator {
	return func(_ context.Context, baseURL, token string) (*model.User, error) {
		*calls = append(*calls, validatorCall{baseURL: baseURL, token: token})
		return user, err
	}
}

var ana = &model.User{ID: "u1", Name: "Ana", Email: "ana@s.ubaguio.edu"}

func TestCheckAndSaveStoresTokenAndWritesConfig(t *testing.T) {
	t.Setenv(credential.TokenEnv, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	creds := mapStore{}
	var calls []validatorCall
	m := New(baseConfig(), path, creds, recordingValidator(ana, nil, &calls), 80, 24)

	cfg := baseConfig()
	cfg.API.BaseURL = "https://portal.example.edu"
	msg := m.checkAndSave(cfg, "new-token")().(savedInternalMsg)

	require.NoError(t, msg.err)
	assert.Equal(t, ana, msg.user)
	assert.Equal(t, []validatorCall{{baseURL: "https://portal.example.edu", token: "new-token"}}, calls)
	assert.Equal(t, "new-token", creds[credential.TokenKey])

	written, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example.edu", written.API.BaseURL)
}

func TestCheckAndSaveReusesStoredTokenWhenFieldEmpty(t *testing.T) {
	t.Setenv(credential.TokenEnv, "")
	creds := mapStore{credential.TokenKey: "stored"}
	var calls []validatorCall
	m := New(baseConfig(), filepath.Join(t.TempDir(), "config.yaml"), creds, recordingValidator(ana, nil, &calls), 80, 24)

	msg := m.checkAndSave(baseConfig(), "")().(savedInternalMsg)

	require.NoError(t, msg.err)
	require.Len(t, calls, 1)
	assert.Equal(t, "stored", calls[0].token)
	assert.Equal(t, "stored", creds[credential.TokenKey])
}

func TestCheckAndSaveRejectedTokenSavesNothing(t *testing.T) {
	t.Setenv(credential.TokenEnv, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	creds := mapStore{}
	var calls []validatorCall
	m := New(baseConfig(), path, creds, recordingValidator(nil, nil, &calls), 80, 24)

	msg := m.checkAndSave(baseConfig(), "bad")().(savedInternalMsg)

	assert.ErrorIs(t, msg.err, ErrTokenRejected)
	assert.Empty(t, creds)
	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCheckAndSaveValidatorError(t *testing.T) {
	t.Setenv(credential.TokenEnv, "")
	boom := errors.New("connection refused")
	var calls []validatorCall
	m := New(baseConfig(), filepath.Join(t.TempDir(), "config.yaml"), mapStore{}, recordingValidator(nil, boom, &calls), 80, 24)

	msg := m.checkAndSave(baseConfig(), "tok")().(savedInternalMsg)

	assert.ErrorIs(t, msg.err, boom)
}

func TestSavedResultEmitsSavedMsg(t *testing.T) {
	m := New(baseConfig(), "unused", mapStore{}, nil, 80, 24)
	m.mode = ModeValidating

	cfg := baseConfig()
	cfg.Notifications.PollInterval = time.Minute
	m, cmd := m.Update(savedInternalMsg{cfg: cfg, user: ana})

	assert.Equal(t, ModeResult, m.Mode())
	require.NotNil(t, cmd)
	saved, ok := cmd().(SavedMsg)
	require.True(t, ok)
	assert.Equal(t, time.Minute, saved.Config.Notifications.PollInterval)
	assert.Equal(t, ana, saved.User)
}

func TestResultIgnoredAfterCancel(t *testing.T) {
	m := New(baseConfig(), "unused", mapStore{}, nil, 80, 24)
	m.mode = ModeValidating

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, ModeSummary, m.Mode())

	m, cmd := m.Update(savedInternalMsg{cfg: baseConfig(), user: ana})

	assert.Nil(t, cmd)
	assert.Equal(t, ModeSummary, m.Mode())
}

func TestFailedResultStaysOpenOnEnter(t *testing.T) {
	m := New(baseConfig(), "unused", mapStore{}, nil, 80, 24)
	m.mode = ModeResult
	m.err = ErrTokenRejected

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Equal(t, ModeSummary, m.Mode())
}

func TestEscFromSummaryClosesView(t *testing.T) {
	m := New(baseConfig(), "unused", mapStore{}, nil, 80, 24)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)

	assert.Equal(t, DoneMsg{}, cmd())
}

func TestFieldsApply(t *testing.T) {
	f := &fields{
		baseURL:        " https://portal.example.edu/ ",
		idleTimeout:    "15m",
		warningTime:    "0s",
		pollInterval:   "1m",
		sessionEnabled: false,
	}

	cfg, err := f.apply(baseConfig())

	require.NoError(t, err)
	assert.Equal(t, "https://portal.example.edu", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Minute, cfg.Session.IdleTimeout)
	assert.Zero(t, cfg.Session.WarningTime)
	assert.Equal(t, time.Minute, cfg.Notifications.PollInterval)
	assert.False(t, cfg.Session.Enabled)
	assert.Equal(t, "@s.ubaguio.edu", cfg.Access.InstitutionalDomain)

	f.idleTimeout = "soon"
	_, err = f.apply(baseConfig())
	assert.Error(t, err)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateURL("https://portal.example.edu"))
	assert.Error(t, validateURL(""))
	assert.Error(t, validateURL("portal.example.edu"))

	assert.NoError(t, validateDuration("Idle", false)("30m"))
	assert.Error(t, validateDuration("Idle", false)("0s"))
	assert.NoError(t, validateDuration("Warning", true)("0s"))
	assert.Error(t, validateDuration("Warning", true)("-1s"))
	assert.Error(t, validateDuration("Idle", false)("abc"))
}

func TestTokenStatus(t *testing.T) {
	t.Setenv(credential.TokenEnv, "")

	assert.Equal(t, "unavailable", tokenStatus(nil))
	assert.Equal(t, "not set", tokenStatus(mapStore{}))
	assert.Equal(t, "stored", tokenStatus(mapStore{credential.TokenKey: "x"}))
}
