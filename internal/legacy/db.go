/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package legacy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	applog "golaunchpad/internal/log"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// requiredColumns lists the tables and columns the importer reads.
var requiredColumns = map[string][]string{
	"apps":   {"item_id", "title", "bundleid"},
	"groups": {"item_id", "title"},
	"items":  {"rowid", "uuid", "type", "parent_id", "ordering"},
}

// tableOrder keeps error reporting deterministic.
var tableOrder = []string{"apps", "groups", "items"}

// LocateDatabase returns the path of the current user's Launchpad database. It asks
// getconf for the per-user Darwin directory; failures are returned, never fatal.
func LocateDatabase(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "getconf", "DARWIN_USER_DIR").Output()
	if err != nil {
		return "", &ImportError{Op: "locate database", Err: fmt.Errorf("getconf DARWIN_USER_DIR: %w", err)}
	}
	dir := strings.TrimSpace(string(out))
	if dir == "" {
		return "", &ImportError{Op: "locate database", Err: errors.New("getconf returned an empty directory")}
	}
	return filepath.Join(dir, "com.apple.dock.launchpad", "db", "db"), nil
}

// ReadDatabase loads the apps, groups and items tables from the SQLite file at path,
// opened read-only.
func ReadDatabase(ctx context.Context, path string) (Database, error) {
	l := applog.WithOperation(applog.WithComponent("legacy"), "read_db").With(slog.String("path", path))
	if _, err := os.Stat(path); err != nil {
		return Database{}, &ImportError{Op: "open database", Err: err}
	}
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return Database{}, &ImportError{Op: "open database", Err: err}
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	if err := checkSchema(ctx, db); err != nil {
		l.Warn("legacy schema check failed", slog.Any("err", err))
		return Database{}, &ImportError{Op: "check schema", Err: err}
	}

	out := Database{Apps: map[int64]AppRecord{}, Groups: map[int64]GroupRecord{}}
	if err := queryRows(ctx, db, `SELECT item_id, title, bundleid FROM apps`, func(rows *sql.Rows) error {
		var (
			r            AppRecord
			title, bunID sql.NullString
		)
		if err := rows.Scan(&r.ItemID, &title, &bunID); err != nil {
			return err
		}
		r.Title, r.BundleID = title.String, bunID.String
		out.Apps[r.ItemID] = r
		return nil
	}); err != nil {
		return Database{}, &ImportError{Op: "read apps", Err: err}
	}
	if err := queryRows(ctx, db, `SELECT item_id, title FROM groups`, func(rows *sql.Rows) error {
		var (
			g     GroupRecord
			title sql.NullString
		)
		if err := rows.Scan(&g.ItemID, &title); err != nil {
			return err
		}
		g.Title = title.String
		out.Groups[g.ItemID] = g
		return nil
	}); err != nil {
		return Database{}, &ImportError{Op: "read groups", Err: err}
	}
	if err := queryRows(ctx, db, `SELECT rowid, uuid, type, parent_id, ordering FROM items ORDER BY rowid`, func(rows *sql.Rows) error {
		var (
			it       ItemRecord
			uuid     sql.NullString
			parent   sql.NullInt64
			ordering sql.NullInt64
		)
		if err := rows.Scan(&it.ID, &uuid, &it.Type, &parent, &ordering); err != nil {
			return err
		}
		it.UUID, it.ParentID, it.Ordering = uuid.String, parent.Int64, ordering.Int64
		out.Items = append(out.Items, it)
		return nil
	}); err != nil {
		return Database{}, &ImportError{Op: "read items", Err: err}
	}
	l.Debug("legacy database read",
		slog.Int("apps", len(out.Apps)), slog.Int("groups", len(out.Groups)), slog.Int("items", len(out.Items)))
	return out, nil
}

func checkSchema(ctx context.Context, db *sql.DB) error {
	for _, table := range tableOrder {
		cols := map[string]bool{}
		err := queryRows(ctx, db, fmt.Sprintf("PRAGMA table_info(%q)", table), func(rows *sql.Rows) error {
			var (
				cid     int
				name    string
				typ     sql.NullString
				notNull int
				dflt    sql.NullString
				pk      int
			)
			if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
				return err
			}
			cols[strings.ToLower(name)] = true
			return nil
		})
		if err != nil {
			return err
		}
		if len(cols) == 0 {
			return fmt.Errorf("%w: %s", ErrMissingTable, table)
		}
		for _, c := range requiredColumns[table] {
			if c == "rowid" {
				continue // implicit on every ordinary table
			}
			if !cols[c] {
				return fmt.Errorf("%w: %s.%s", ErrMissingColumn, table, c)
			}
		}
	}
	return nil
}

func queryRows(ctx context.Context, db *sql.DB, q string, scan func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
