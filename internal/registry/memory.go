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

// Package registry holds invoice registry adapters that do not need a SQL
// database: an in-memory store for demos and tests, and a read-through cache
// placed in front of any other store.
package registry

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

const (
	DemoInvoiceID = "inv_demo_1"
	DemoCurrency  = "USDC"
	DemoScheme    = "shadowpay_v1"
)

// Store is the read/write invoice surface shared by every adapter.
type Store interface {
	Lookup(ctx context.Context, invoiceID string) (*model.Invoice, error)
	CreateInvoice(ctx context.Context, invoice model.Invoice) (*model.Invoice, error)
	DeactivateInvoice(ctx context.Context, invoiceID string) error
}

// Memory is a mutex guarded invoice map. Lookups return copies so callers
// can never mutate registry state.
type Memory struct {
	mu       sync.RWMutex
	invoices map[string]model.Invoice
}

func NewMemory(invoices ...model.Invoice) *Memory {
	m := &Memory{invoices: make(map[string]model.Invoice, len(invoices))}
	for _, inv := range invoices {
		m.invoices[inv.InvoiceID] = inv
	}
	return m
}

// DemoInvoice is the invoice a fresh gate ships with.
func DemoInvoice() model.Invoice {
	return model.Invoice{
		InvoiceID: DemoInvoiceID,
		Currency:  DemoCurrency,
		Scheme:    DemoScheme,
		Amount:    decimal.NewFromInt(1),
		Active:    true,
		Note:      "Demo invoice for the ShadowPay protected endpoint",
		CreatedAt: time.Now().UTC(),
	}
}

// NewDemo returns a registry seeded with the demo invoice.
func NewDemo() *Memory {
	return NewMemory(DemoInvoice())
}

func (m *Memory) Lookup(_ context.Context, invoiceID string) (*model.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return nil, model.ErrInvoiceNotFound
	}
	return &inv, nil
}

func (m *Memory) CreateInvoice(_ context.Context, invoice model.Invoice) (*model.Invoice, error) {
	invoice.InvoiceID = strings.TrimSpace(invoice.InvoiceID)
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.invoices[invoice.InvoiceID]; exists {
		return nil, model.ErrInvoiceExists
	}
	m.invoices[invoice.InvoiceID] = invoice
	return &invoice, nil
}

func (m *Memory) DeactivateInvoice(_ context.Context, invoiceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return model.ErrInvoiceNotFound
	}
	inv.Active = false
	m.invoices[invoiceID] = inv
	return nil
}
