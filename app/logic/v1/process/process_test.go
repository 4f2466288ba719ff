package process

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/livetable/app/core"
	v1 "github.com/quka-ai/livetable/app/logic/v1"
	"github.com/quka-ai/livetable/pkg/security"
	"github.com/quka-ai/livetable/pkg/types"
)

func TestPresenceSweeper(t *testing.T) {
	c := core.MustSetupCore(core.CoreConfig{
		Storage: core.StorageConfig{Driver: core.STORAGE_DRIVER_MEMORY},
		Log:     core.Log{Level: "error"},
		Sync: core.SyncConfig{SessionTTL: 1},
	})
	t.Cleanup(c.Shutdown)

	p := NewProcess(c)
	assert.Len(t, p.Cron().Entries(), 1)

	ctx := v1.WithTokenClaim(context.Background(), security.NewTokenClaims(types.DEFAULT_APPID, "alice", 0))
	table, err := v1.NewTableLogic(ctx, c).CreateTable("t", "")
	require.NoError(t, err)
	_, err = v1.NewPresenceLogic(ctx, c).Join(table.ID, nil)
	require.NoError(t, err)

	evicted, err := NewPresenceSweeper(c).Sweep(context.Background())
	require.NoError(t, err)
	// 刚加入的会话仍在 TTL 内
	assert.Zero(t, evicted)

	users, err := v1.NewPresenceLogic(ctx, c).ActiveUsers(table.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)
}
