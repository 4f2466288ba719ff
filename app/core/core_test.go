package core

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupMemoryCore(t *testing.T) {
	cfg := CoreConfig{Storage: StorageConfig{Driver: STORAGE_DRIVER_MEMORY}, Log: Log{Level: "error"}}
	core := MustSetupCore(cfg)
	defer core.Shutdown()

	require.NotNil(t, core.Store())
	require.NotNil(t, core.Srv().Fanout())
	require.NotNil(t, core.Srv().Locker())
	assert.Nil(t, core.Redis())

	user, err := core.ParseIdentity("u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", user)
}

func TestUnknownStorageDriver(t *testing.T) {
	assert.Panics(t, func() {
		MustSetupCore(CoreConfig{Storage: StorageConfig{Driver: "mysql"}, Log: Log{Level: "error"}})
	})
}

func TestSetupRedisClient(t *testing.T) {
	single := setupRedis(RedisConfig{Addr: "127.0.0.1:6379"})
	defer single.Close()
	assert.IsType(t, &redis.Client{}, single)

	cluster := setupRedis(RedisConfig{Cluster: true, ClusterAddrs: []string{"127.0.0.1:7000"}})
	defer cluster.Close()
	assert.IsType(t, &redis.ClusterClient{}, cluster)
}
