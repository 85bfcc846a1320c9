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
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
)

var ErrEmptyNullifier = errors.New("nullifier cannot be empty")

// ReserveNullifier records a nullifier if it is not present yet. It returns
// true only for the caller whose insert created the row.
func (d *Datasource) ReserveNullifier(ctx context.Context, nullifier string) (bool, error) {
	if nullifier == "" {
		return false, ErrEmptyNullifier
	}

	res, err := d.Conn.ExecContext(ctx, `
		INSERT INTO nullifiers (nullifier, reserved_at)
		VALUES ($1, $2)
		ON CONFLICT (nullifier) DO NOTHING
	`, nullifier, time.Now().UTC())
	if err != nil {
		return false, pkgerrors.Wrap(err, "failed to reserve nullifier")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, pkgerrors.Wrap(err, "failed to reserve nullifier")
	}
	return rows == 1, nil
}

// NullifierStore adapts an IDataSource to the gate's reservation interface.
type NullifierStore struct {
	ds nullifier
}

func NewNullifierStore(ds IDataSource) *NullifierStore {
	return &NullifierStore{ds: ds}
}

func (s *NullifierStore) Reserve(ctx context.Context, nullifier string) (bool, error) {
	return s.ds.ReserveNullifier(ctx, nullifier)
}
