// Command migrate applies the embedded schema migrations.
//
// Usage:
//
//	migrate -dsn postgres://... up
//	migrate -dsn postgres://... status
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"notevault.org/internal/migrate"
	"notevault.org/migrations"
)

func main() {
	dsn := flag.String("dsn", os.Getenv("NOTEVAULT_PG_DSN"), "postgres connection string")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}
	if *dsn == "" {
		fatal("a postgres DSN is required (-dsn or NOTEVAULT_PG_DSN)")
	}

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatal("open postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	mgr := migrate.NewManager(db, migrations.FS)

	switch cmd {
	case "up":
		applied, err := mgr.Up(ctx)
		if err != nil {
			fatal("migrate up: %v", err)
		}
		if len(applied) == 0 {
			fmt.Println("nothing to apply")
			return
		}
		for _, name := range applied {
			fmt.Println("applied", name)
		}
	case "status":
		names, err := mgr.Status(ctx)
		if err != nil {
			fatal("migrate status: %v", err)
		}
		if len(names) == 0 {
			fmt.Println("no migrations applied")
			return
		}
		for _, name := range names {
			fmt.Println(name)
		}
	default:
		fatal("unknown command %q (want up or status)", cmd)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
