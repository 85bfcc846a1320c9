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

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	invoice
	nullifier
	epochRoot
	Close() error
}

// invoice defines methods for handling invoices.
type invoice interface {
	Lookup(ctx context.Context, invoiceID string) (*model.Invoice, error)
	CreateInvoice(ctx context.Context, invoice model.Invoice) (*model.Invoice, error)
	DeactivateInvoice(ctx context.Context, invoiceID string) error
}

// nullifier defines methods for one-time-use reservations.
type nullifier interface {
	ReserveNullifier(ctx context.Context, nullifier string) (bool, error)
}

// epochRoot defines methods for the published merkle roots.
type epochRoot interface {
	InsertEpochRoots(ctx context.Context, epoch int64, roots []string) (int64, error)
	GetActiveEpochRoots(ctx context.Context) ([]string, error)
	GetLatestEpoch(ctx context.Context) (int64, error)
}
