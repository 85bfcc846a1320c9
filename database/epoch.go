/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const defaultEpochWindow = 2

// EpochRootsChannel is the postgres NOTIFY channel announcing newly
// published epochs. The payload is the epoch number.
const EpochRootsChannel = "shadowpay_epoch_roots"

// InsertEpochRoots publishes roots for an epoch and returns how many were
// new. Republishing a root for the same epoch is a no-op.
func (d *Datasource) InsertEpochRoots(ctx context.Context, epoch int64, roots []string) (int64, error) {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	publishedAt := time.Now().UTC()
	var inserted int64
	for _, root := range roots {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO epoch_roots (root, epoch, published_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (root, epoch) DO NOTHING
		`, strings.ToLower(strings.TrimSpace(root)), epoch, publishedAt)
		if err != nil {
			return 0, errors.Wrap(err, "failed to insert epoch root")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, errors.Wrap(err, "failed to insert epoch root")
		}
		inserted += n
	}

	// Delivered on commit, so listeners never see roots they cannot read.
	if inserted > 0 && d.Driver == DriverPostgres {
		if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, EpochRootsChannel, strconv.FormatInt(epoch, 10)); err != nil {
			return 0, errors.Wrap(err, "failed to notify epoch roots")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit epoch roots")
	}
	return inserted, nil
}

// GetActiveEpochRoots returns the roots of the most recent EpochWindow epochs.
func (d *Datasource) GetActiveEpochRoots(ctx context.Context) ([]string, error) {
	window := d.EpochWindow
	if window <= 0 {
		window = defaultEpochWindow
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT DISTINCT root
		FROM epoch_roots
		WHERE epoch > (SELECT COALESCE(MAX(epoch), 0) FROM epoch_roots) - $1
	`, window)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load epoch roots")
	}
	defer rows.Close()

	roots := []string{}
	for rows.Next() {
		var root string
		if err := rows.Scan(&root); err != nil {
			return nil, errors.Wrap(err, "failed to scan epoch root")
		}
		roots = append(roots, root)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to load epoch roots")
	}
	return roots, nil
}

// GetLatestEpoch returns the highest published epoch, or 0 when none exist.
func (d *Datasource) GetLatestEpoch(ctx context.Context) (int64, error) {
	var epoch int64
	err := d.Conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(epoch), 0) FROM epoch_roots`).Scan(&epoch)
	if err != nil {
		return 0, errors.Wrap(err, "failed to load latest epoch")
	}
	return epoch, nil
}
