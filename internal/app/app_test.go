package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/config"
	"github.com/Gustavoab019/startia/internal/i18n"
	"github.com/Gustavoab019/startia/internal/message"
	"github.com/Gustavoab019/startia/internal/report"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LOCALE", "en")
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestOpen_MemoryStoreRunsConversation(t *testing.T) {
	cfg := memoryConfig(t)
	require.NoError(t, i18n.Init(cfg.Locale))

	a, err := Open(context.Background(), cfg, zap.NewNop(), Options{Deliver: true})
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.Nil(t, a.Sender)
	require.NoError(t, a.Ready(context.Background()))

	ctx := context.Background()
	require.NoError(t, a.Engine.Process(ctx, message.Inbound{ActorID: "351910000001", Text: "hi"}))
	out, err := a.Engine.Handle(ctx, message.Inbound{ActorID: "351910000001", Text: "Ana"})
	require.NoError(t, err)
	assert.Contains(t, message.Render(out), "Ana")

	actor, err := a.Store.Actors.GetByPhone(ctx, "351910000001")
	require.NoError(t, err)
	require.NotNil(t, actor)
	assert.Equal(t, "Ana", actor.Name)

	rows, err := a.Reports.Attendance(ctx, report.Filter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestOpen_ZAPISenderWhenConfigured(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.ZAPI.Instance = "inst"
	cfg.ZAPI.Token = "tok"

	a, err := Open(context.Background(), cfg, zap.NewNop(), Options{Deliver: true})
	require.NoError(t, err)
	assert.NotNil(t, a.Sender)

	a, err = Open(context.Background(), cfg, zap.NewNop(), Options{})
	require.NoError(t, err)
	assert.Nil(t, a.Sender)
}
