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
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

func (d *Datasource) Lookup(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	inv := model.Invoice{}
	row := d.Conn.QueryRowContext(ctx, `
		SELECT invoice_id, currency, scheme, amount, active, note, created_at
		FROM invoices
		WHERE invoice_id = $1
	`, invoiceID)

	err := row.Scan(&inv.InvoiceID, &inv.Currency, &inv.Scheme, &inv.Amount, &inv.Active, &inv.Note, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrInvoiceNotFound
		}
		return nil, errors.Wrap(err, "failed to retrieve invoice")
	}
	return &inv, nil
}

// CreateInvoice inserts a new invoice. An existing id is reported as
// model.ErrInvoiceExists and the stored invoice is left untouched.
func (d *Datasource) CreateInvoice(ctx context.Context, inv model.Invoice) (*model.Invoice, error) {
	inv.InvoiceID = strings.TrimSpace(inv.InvoiceID)
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	res, err := d.Conn.ExecContext(ctx, `
		INSERT INTO invoices (invoice_id, currency, scheme, amount, active, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (invoice_id) DO NOTHING
	`, inv.InvoiceID, inv.Currency, inv.Scheme, inv.Amount, inv.Active, inv.Note, inv.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create invoice")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create invoice")
	}
	if rows == 0 {
		return nil, model.ErrInvoiceExists
	}
	return &inv, nil
}

func (d *Datasource) DeactivateInvoice(ctx context.Context, invoiceID string) error {
	res, err := d.Conn.ExecContext(ctx, `
		UPDATE invoices SET active = $1 WHERE invoice_id = $2
	`, false, invoiceID)
	if err != nil {
		return errors.Wrap(err, "failed to deactivate invoice")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to deactivate invoice")
	}
	if rows == 0 {
		return model.ErrInvoiceNotFound
	}
	return nil
}
