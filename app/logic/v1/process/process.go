package process

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/quka-ai/livetable/app/core"
	"github.com/quka-ai/livetable/pkg/register"
)

type Process struct {
	cron *cron.Cron
	core *core.Core
}

type ProcessKey struct{}

func NewProcess(core *core.Core) *Process {
	p := &Process{
		cron: cron.New(cron.WithChain(cron.Recover(cronLogger{}))),
		core: core,
	}

	for _, h := range register.ResolveFuncHandlers[*Process](ProcessKey{}) {
		h(p)
	}

	return p
}

func (p *Process) Cron() *cron.Cron {
	return p.cron
}

func (p *Process) Core() *core.Core {
	return p.core
}

func (p *Process) Start() {
	p.cron.Start()
}

func (p *Process) Stop() {
	// 停止 cron 调度器，等待正在执行的任务结束
	if p.cron != nil {
		ctx := p.cron.Stop()
		<-ctx.Done()
	}
}

// cronLogger routes cron's own logging into slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug(msg, append([]any{slog.String("component", "cron")}, keysAndValues...)...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error(msg, append([]any{slog.String("component", "cron"), slog.String("error", err.Error())}, keysAndValues...)...)
}
