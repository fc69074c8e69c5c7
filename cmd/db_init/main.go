package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/pflag"

	"webomatic/internal/config"
	"webomatic/internal/database"
	"webomatic/internal/logger"
)

func main() {
	fs := config.Flags("db_init")
	recreate := fs.Bool("recreate", false, "drop the database before creating it")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}

	c, err := config.Load(fs)
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}
	if c.Database.DSN == "" {
		log.Fatal("database.dsn is not set (config.yaml or WEBOMATIC_DATABASE_DSN)")
	}

	dsnCfg, err := mysql.ParseDSN(c.Database.DSN)
	if err != nil {
		log.Fatalf("Error parsing dsn: %v", err)
	}
	name := dsnCfg.DBName
	if name == "" {
		log.Fatal("dsn has no database name")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// connect without a database to create it
	dsnCfg.DBName = ""
	server, err := sql.Open("mysql", dsnCfg.FormatDSN())
	if err != nil {
		log.Fatalf("Error connecting to MySQL: %v", err)
	}
	defer server.Close()

	if *recreate {
		if _, err := server.ExecContext(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", name)); err != nil {
			log.Fatalf("Error dropping database: %v", err)
		}
		fmt.Printf("Database %s dropped (if it existed)\n", name)
	}

	_, err = server.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", name))
	if err != nil {
		log.Fatalf("Error creating database: %v", err)
	}
	fmt.Printf("Database %s ready\n", name)

	db, err := database.Open(ctx, c.Database.DSN)
	if err != nil {
		log.Fatalf("Error connecting to the new database: %v", err)
	}
	defer db.Close()

	if err := database.NewDatabaseManager(db, true, logger.NewNop()).EnsureSchema(ctx); err != nil {
		log.Fatalf("Error creating tables: %v", err)
	}
	fmt.Printf("Created %d tables\n", len(database.Schema))
}
