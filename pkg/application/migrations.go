package application

import (
	"context"
	"embed"
	"io/fs"
	"sort"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MigrationManager collects embedded schema files from modules and applies
// them against the pool. Schema files must be idempotent; Apply runs every
// registered file on each startup.
type MigrationManager interface {
	RegisterSchema(files *embed.FS)
	Apply(ctx context.Context) error
}

func NewMigrationManager(pool *pgxpool.Pool) MigrationManager {
	return &migrationManager{pool: pool}
}

type migrationManager struct {
	pool    *pgxpool.Pool
	schemas []*embed.FS
}

func (m *migrationManager) RegisterSchema(files *embed.FS) {
	m.schemas = append(m.schemas, files)
}

func (m *migrationManager) Apply(ctx context.Context) error {
	if m.pool == nil {
		return errors.New("migrations require a database pool")
	}
	for _, schema := range m.schemas {
		var paths []string
		err := fs.WalkDir(schema, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepathExtIsSQL(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return errors.Wrap(err, "failed to walk schema files")
		}
		sort.Strings(paths)
		for _, path := range paths {
			contents, err := schema.ReadFile(path)
			if err != nil {
				return errors.Wrapf(err, "failed to read schema file %s", path)
			}
			if _, err := m.pool.Exec(ctx, string(contents)); err != nil {
				return errors.Wrapf(err, "failed to apply schema file %s", path)
			}
		}
	}
	return nil
}

func filepathExtIsSQL(path string) bool {
	return len(path) > 4 && path[len(path)-4:] == ".sql"
}
