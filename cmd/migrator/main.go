package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/aimsports/aim-backend/migrations"
)

func main() {
	var storagePath, migrationsTable string
	var down bool

	flag.StringVar(&storagePath, "storage-path", "", "path to sqlite database")
	flag.StringVar(&migrationsTable, "migrations-table", "schema_migrations", "name of migrations table")
	flag.BoolVar(&down, "down", false, "roll back all migrations")
	flag.Parse()

	if storagePath == "" {
		panic(errors.New("storage-path is required"))
	}

	if down {
		if err := migrations.Down(storagePath, migrationsTable); err != nil {
			panic(err)
		}

		fmt.Println("migrations rolled back")
		return
	}

	applied, err := migrations.Up(storagePath, migrationsTable)
	if err != nil {
		panic(err)
	}

	if !applied {
		fmt.Println("no migrations to apply")
		return
	}

	fmt.Println("migrations applied")
}
