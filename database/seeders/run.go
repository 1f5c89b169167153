// Package seeders fills an empty store with sample data. Seeders register
// themselves from init and run in registration order with `modera seed`.
package seeders

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/modera-shop/modera/app/repositories"
)

// Seeder writes sample rows. It must be a no-op on a store that already
// holds its data.
type Seeder func(ctx context.Context, stores *repositories.Stores) error

type registry struct {
	mu    sync.Mutex
	names []string
	fns   map[string]Seeder
}

var seeders = &registry{fns: map[string]Seeder{}}

// Register adds a seeder under name. Registering the same name twice panics.
func Register(name string, fn Seeder) {
	seeders.mu.Lock()
	defer seeders.mu.Unlock()
	if _, dup := seeders.fns[name]; dup {
		panic(fmt.Sprintf("seeders: %q registered twice", name))
	}
	seeders.names = append(seeders.names, name)
	seeders.fns[name] = fn
}

// RunAll executes every seeder and stops on the first error.
func RunAll(ctx context.Context, stores *repositories.Stores, out io.Writer) error {
	seeders.mu.Lock()
	names := append([]string(nil), seeders.names...)
	seeders.mu.Unlock()

	if len(names) == 0 {
		fmt.Fprintln(out, "Nothing to seed.")
		return nil
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		seeders.mu.Lock()
		fn := seeders.fns[name]
		seeders.mu.Unlock()

		if err := fn(ctx, stores); err != nil {
			fmt.Fprintf(out, "%-12s failed\n", name)
			return fmt.Errorf("seed %s: %w", name, err)
		}
		fmt.Fprintf(out, "%-12s seeded\n", name)
	}
	return nil
}
