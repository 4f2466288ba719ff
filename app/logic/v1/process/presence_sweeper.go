package process

import (
	"context"
	"log/slog"

	"github.com/quka-ai/livetable/app/core"
	v1 "github.com/quka-ai/livetable/app/logic/v1"
	"github.com/quka-ai/livetable/pkg/register"
)

// PresenceSweeper evicts sessions whose transport died without a leave, including sessions
// owned by a process that crashed.
type PresenceSweeper struct {
	core *core.Core
}

func NewPresenceSweeper(core *core.Core) *PresenceSweeper {
	return &PresenceSweeper{core: core}
}

func (p *PresenceSweeper) Sweep(ctx context.Context) (int, error) {
	return v1.NewPresenceLogic(ctx, p.core).EvictStale(p.core.Cfg().Sync.TTL())
}

func init() {
	register.RegisterFunc(ProcessKey{}, func(provider *Process) {
		spec := provider.Core().Cfg().Sync.SweepSpec
		_, err := provider.Cron().AddFunc(spec, func() {
			evicted, err := NewPresenceSweeper(provider.Core()).Sweep(context.Background())
			if err != nil {
				slog.Error("Failed to sweep stale sessions", slog.String("error", err.Error()))
				return
			}
			if evicted > 0 {
				slog.Info("Stale sessions evicted", slog.Int("count", evicted))
			}
		})
		if err != nil {
			panic(err)
		}
	})
}
