// Command backuptool exports or restores a register database offline.
//
//	backuptool -db pos.db -export backups/
//	backuptool -db pos.db -import pos_backup_2026-03-14.json           (preview)
//	backuptool -db pos.db -import pos_backup_2026-03-14.json -confirm  (restore)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cafepos/internal/backup"
	"cafepos/internal/store"
	pgstore "cafepos/internal/store/postgres"
	"cafepos/internal/store/sqlite"
)

type options struct {
	dbPath      string
	databaseURL string
	exportTo    string
	importFrom  string
	confirm     bool
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var opts options
	flag.StringVar(&opts.dbPath, "db", "pos.db", "SQLite database path")
	flag.StringVar(&opts.databaseURL, "database-url", "", "Postgres URL; overrides -db")
	flag.StringVar(&opts.exportTo, "export", "", "write a backup to this file or directory (- for stdout)")
	flag.StringVar(&opts.importFrom, "import", "", "read a backup from this file")
	flag.BoolVar(&opts.confirm, "confirm", false, "apply the import instead of previewing it")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("backuptool failed")
	}
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	if (opts.exportTo == "") == (opts.importFrom == "") {
		return errors.New("exactly one of -export or -import is required")
	}

	repo, closeRepo, err := open(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRepo(); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}()

	m := backup.NewManager(repo, nil, nil)
	if opts.exportTo != "" {
		return export(ctx, m, opts.exportTo, stdout)
	}

	content, err := os.ReadFile(opts.importFrom)
	if err != nil {
		return err
	}
	preview, err := m.Import(ctx, content, opts.confirm)
	if err != nil {
		return err
	}
	if !preview.Applied {
		log.Info().Msg("preview only; pass -confirm to replace every table with this backup")
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(preview)
}

func export(ctx context.Context, m *backup.Manager, target string, stdout io.Writer) error {
	doc, err := m.Export(ctx)
	if err != nil {
		return err
	}
	content, err := backup.Marshal(doc)
	if err != nil {
		return err
	}
	if target == "-" {
		_, err := stdout.Write(content)
		return err
	}

	path := target
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		path = filepath.Join(target, backup.FileName(doc.Timestamp))
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return err
	}
	log.Info().Str("path", path).Str("digest", backup.Digest(content)).Msg("backup written")
	fmt.Fprintln(stdout, path)
	return nil
}

func open(ctx context.Context, opts options) (store.Repository, func() error, error) {
	if opts.databaseURL != "" {
		pg, err := pgstore.New(ctx, opts.databaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		return pg, pg.Close, nil
	}
	db, err := sqlite.Open(ctx, opts.dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite %s: %w", opts.dbPath, err)
	}
	return db, db.Close, nil
}
