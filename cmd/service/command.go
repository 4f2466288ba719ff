package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/quka-ai/livetable/app/core"
	"github.com/quka-ai/livetable/app/logic/v1/process"
	"github.com/quka-ai/livetable/app/store/sqlstore"
)

type Options struct {
	ConfigPath string
}

func (o *Options) AddFlags(flagSet *pflag.FlagSet) {
	// Add flags for generic options
	flagSet.StringVarP(&o.ConfigPath, "config", "c", "", "init api by given config")
}

func NewCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "service",
		Short: "collaborative table service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func Run(opts *Options) error {
	app := core.MustSetupCore(core.MustLoadBaseConfig(opts.ConfigPath))
	defer app.Shutdown()

	p := process.NewProcess(app)
	p.Start()
	defer p.Stop()

	srv := serve(app)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigs := make(chan os.Signal, 1)
	// 监听 os.Interrupt (Ctrl+C) 和 syscall.SIGTERM (kill)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigs:
	case err := <-errCh:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func NewMigrateCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "create the postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunMigrate(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func RunMigrate(opts *Options) error {
	cfg := core.MustLoadBaseConfig(opts.ConfigPath)
	if cfg.Storage.Driver != core.STORAGE_DRIVER_POSTGRES {
		return fmt.Errorf("migrate requires the postgres storage driver, got %q", cfg.Storage.Driver)
	}

	stores := sqlstore.MustSetup(cfg.Postgres)()
	defer stores.Close()
	if err := stores.Install(); err != nil {
		return err
	}
	fmt.Println("schema installed")
	return nil
}
