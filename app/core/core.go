package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/quka-ai/livetable/app/core/srv"
	"github.com/quka-ai/livetable/app/store"
	"github.com/quka-ai/livetable/app/store/memstore"
	"github.com/quka-ai/livetable/app/store/sqlstore"
	"github.com/quka-ai/livetable/pkg/security"
	"github.com/quka-ai/livetable/pkg/socket/broker"
	"github.com/quka-ai/livetable/pkg/types/protocol"
	"github.com/quka-ai/livetable/pkg/utils"
)

type Core struct {
	cfg CoreConfig
	srv *srv.Srv

	stores     store.Provider
	redis      redis.UniversalClient
	httpEngine *gin.Engine
	publicKey  []byte

	metrics *Metrics
}

func setupLogger(cfg Log) {
	var writer io.Writer = os.Stdout
	if cfg.Path != "" {
		writer = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    500, // megabytes
			MaxBackups: 3,
			MaxAge:     28,   //days
			Compress:   true, // disabled by default
		}
	}
	l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(l)
}

func MustSetupCore(cfg CoreConfig) *Core {
	cfg.ApplyDefaults()
	setupLogger(cfg.Log)
	utils.SetupIDWorker(1)

	core := &Core{
		cfg:        cfg,
		metrics:    NewMetrics("livetable", "core"),
		httpEngine: gin.New(),
	}

	if cfg.Identity.Mode == IDENTITY_MODE_JWT {
		raw, err := os.ReadFile(cfg.Identity.PublicKeyPath)
		if err != nil {
			panic(fmt.Errorf("failed to read identity public key, %w", err))
		}
		core.publicKey = raw
	}

	// setup store
	setupStore(core)

	var fanoutBroker broker.Broker = broker.NewLocal()
	if cfg.Sync.FanoutMode == FANOUT_MODE_DISTRIBUTED {
		core.redis = setupRedis(cfg.Redis)
		fanoutBroker = broker.NewRedis(core.redis, cfg.Redis.KeyPrefix)
	}

	core.srv = srv.SetupSrvs(
		// 协同广播，分布式模式下经由 redis 转发
		srv.ApplyFanout(fanoutBroker, cfg.Sync.EchoToOriginator),
	)
	core.srv.Fanout().Observe(func(op protocol.Operation, delivered int) {
		core.metrics.FanoutDeliveredAdd(string(op), delivered)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := core.srv.Fanout().Start(ctx); err != nil {
		panic(err)
	}

	slog.Info("core setup done", slog.String("storage", cfg.Storage.Driver), slog.String("fanout", cfg.Sync.FanoutMode))
	return core
}

func setupStore(core *Core) {
	switch core.cfg.Storage.Driver {
	case STORAGE_DRIVER_MEMORY:
		core.stores = memstore.New()
	case STORAGE_DRIVER_POSTGRES:
		core.stores = sqlstore.MustSetup(core.cfg.Postgres)()
		// 执行数据库表初始化
		if err := core.stores.Install(); err != nil {
			panic(err)
		}
	default:
		panic(fmt.Errorf("unknown storage driver %q", core.cfg.Storage.Driver))
	}
}

func setupRedis(cfg RedisConfig) redis.UniversalClient {
	opts := &redis.UniversalOptions{
		Addrs:        []string{cfg.Addr},
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}
	if cfg.Cluster {
		opts.Addrs = cfg.ClusterAddrs
		opts.Password = cfg.ClusterPasswd
		// 单个地址的集群也走集群客户端
		return redis.NewClusterClient(opts.Cluster())
	}
	return redis.NewUniversalClient(opts)
}

func (s *Core) Cfg() CoreConfig {
	return s.cfg
}

func (s *Core) HttpEngine() *gin.Engine {
	return s.httpEngine
}

func (s *Core) Metrics() *Metrics {
	return s.metrics
}

func (s *Core) Store() store.Provider {
	return s.stores
}

func (s *Core) Srv() *srv.Srv {
	return s.srv
}

func (s *Core) Redis() redis.UniversalClient {
	return s.redis
}

// ParseIdentity resolves the caller identity from a raw credential: the user id
// itself in header mode, a signed token in jwt mode.
func (s *Core) ParseIdentity(credential string) (string, error) {
	if s.cfg.Identity.Mode != IDENTITY_MODE_JWT {
		return credential, nil
	}
	claims, err := security.VerifyToken(credential, s.publicKey)
	if err != nil {
		return "", err
	}
	return claims.GetUser(), nil
}

func (s *Core) Shutdown() {
	if err := s.srv.Fanout().Close(); err != nil {
		slog.Error("failed to close fan-out broker", slog.String("error", err.Error()))
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if err := s.stores.Close(); err != nil {
		slog.Error("failed to close store", slog.String("error", err.Error()))
	}
}
