package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/quka-ai/livetable/app/store"
	"github.com/quka-ai/livetable/pkg/register"
	"github.com/quka-ai/livetable/pkg/sqlstore"
	"github.com/quka-ai/livetable/pkg/types"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func init() {
	sq.StatementBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

var provider = &Provider{
	stores: &Stores{},
}

func GetProvider() *Provider {
	return provider
}

type Provider struct {
	*sqlstore.SqlProvider
	stores *Stores
}

type Stores struct {
	store.TableStore
	store.ColumnStore
	store.CellStore
	store.SessionStore
}

type RegisterKey struct{}

func MustSetup(m sqlstore.ConnectConfig, s ...sqlstore.ConnectConfig) func() *Provider {
	provider.SqlProvider = sqlstore.MustSetupProvider(m, s...)

	for _, f := range register.ResolveFuncHandlers[*Provider](RegisterKey{}) {
		f(provider)
	}

	return func() *Provider {
		return provider
	}
}

// Install 按文件名顺序执行未执行过的迁移文件
func (p *Provider) Install() error {
	if err := p.ensureMigrationTable(); err != nil {
		return err
	}

	files, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name() < files[j].Name()
	})

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		executed, err := p.isFileExecuted(file.Name())
		if err != nil {
			return err
		}
		if executed {
			continue
		}

		raw, err := migrationFiles.ReadFile("migrations/" + file.Name())
		if err != nil {
			return err
		}

		err = p.Transaction(context.Background(), func(ctx context.Context) error {
			tx := p.GetTxFromCtx(ctx)
			if _, err := tx.Exec(string(raw)); err != nil {
				return fmt.Errorf("failed to execute migration %s, %w", file.Name(), err)
			}
			_, err := tx.Exec("INSERT INTO "+types.TABLE_PREFIX+"schema_migrations (filename, executed_at) VALUES ($1, $2) ON CONFLICT (filename) DO NOTHING",
				file.Name(), time.Now().Unix())
			return err
		})
		if err != nil {
			return err
		}
		slog.Info("migration executed", slog.String("file", file.Name()))
	}
	return nil
}

func (p *Provider) ensureMigrationTable() error {
	createTableSQL := `
CREATE TABLE IF NOT EXISTS ` + types.TABLE_PREFIX + `schema_migrations (
    filename VARCHAR(255) PRIMARY KEY,
    executed_at BIGINT NOT NULL
);`
	_, err := p.SqlProvider.GetMaster().Exec(createTableSQL)
	return err
}

func (p *Provider) isFileExecuted(filename string) (bool, error) {
	var count int
	err := p.SqlProvider.GetMaster().Get(&count,
		"SELECT COUNT(*) FROM "+types.TABLE_PREFIX+"schema_migrations WHERE filename = $1", filename)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (p *Provider) TableStore() store.TableStore {
	return p.stores.TableStore
}

func (p *Provider) ColumnStore() store.ColumnStore {
	return p.stores.ColumnStore
}

func (p *Provider) CellStore() store.CellStore {
	return p.stores.CellStore
}

func (p *Provider) SessionStore() store.SessionStore {
	return p.stores.SessionStore
}

var _ store.Provider = (*Provider)(nil)
