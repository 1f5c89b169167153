package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/modera-shop/modera/app/services"
	"github.com/modera-shop/modera/config"
	"github.com/modera-shop/modera/database/seeders"
	"github.com/modera-shop/modera/pkg/cache"
	"github.com/modera-shop/modera/pkg/database"
	"github.com/modera-shop/modera/pkg/migration"
	"github.com/modera-shop/modera/pkg/router"
)

// ErrSQLOnly is returned by migration history commands on the Mongo store,
// which has indexes but no versioned schema.
var ErrSQLOnly = errors.New("command needs STORE_DRIVER=sql")

// Migrate brings the store schema up to date: SQL migrations or Mongo
// indexes, then the product id counter sync.
func Migrate(ctx context.Context, s *config.Settings, out io.Writer) error {
	stores, err := Open(ctx, s)
	if err != nil {
		return err
	}
	defer stores.Close(ctx)

	fmt.Fprintf(out, "Migrating %s store...\n", stores.Driver)
	if err := stores.Migrate(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "Done.")
	return nil
}

// Rollback reverses the last SQL migration batch.
func Rollback(s *config.Settings, out io.Writer) error {
	return withRunner(s, out, (*migration.Runner).Rollback)
}

// MigrationStatus prints every registered SQL migration and its batch.
func MigrationStatus(s *config.Settings, out io.Writer) error {
	return withRunner(s, out, (*migration.Runner).Status)
}

func withRunner(s *config.Settings, out io.Writer, fn func(*migration.Runner) error) error {
	if s.StoreDriver != "sql" {
		return ErrSQLOnly
	}
	db, err := database.Open(s.SQLDriver, s.SQLDSN)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	return fn(migration.New(db).WithOutput(out))
}

// Seed runs every registered seeder against the configured store.
func Seed(ctx context.Context, s *config.Settings, out io.Writer) error {
	stores, err := Open(ctx, s)
	if err != nil {
		return err
	}
	defer stores.Close(ctx)

	if err := stores.Migrate(ctx); err != nil {
		return err
	}
	return seeders.RunAll(ctx, stores, out)
}

// FixImages rewrites the from prefix of every product image URL to to and
// reports how many products changed.
func FixImages(ctx context.Context, s *config.Settings, from, to string, out io.Writer) error {
	if from == "" || to == "" {
		return errors.New("both --from and --to are required")
	}
	stores, err := Open(ctx, s)
	if err != nil {
		return err
	}
	defer stores.Close(ctx)

	catalog := services.NewCatalogService(stores.Catalog, cache.NewMemory(), s.CatalogCacheTTL, s.BaseURL)
	n, err := catalog.FixImages(ctx, from, to)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Updated %d product(s): %s -> %s\n", n, from, to)
	return nil
}

// PrintRoutes writes the named route table sorted by path then method.
func PrintRoutes(r *router.Router, out io.Writer) error {
	infos := r.Routes()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No named routes registered.")
		return nil
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Path != infos[j].Path {
			return infos[i].Path < infos[j].Path
		}
		return infos[i].Method < infos[j].Method
	})

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPATH\tNAME")
	fmt.Fprintln(w, "------\t----\t----")
	for _, ri := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
	}
	return w.Flush()
}
