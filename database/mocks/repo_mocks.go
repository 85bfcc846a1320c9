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

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Invoice methods

func (m *MockDataSource) Lookup(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	if inv, ok := args.Get(0).(*model.Invoice); ok {
		return inv, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDataSource) CreateInvoice(ctx context.Context, invoice model.Invoice) (*model.Invoice, error) {
	args := m.Called(ctx, invoice)
	if inv, ok := args.Get(0).(*model.Invoice); ok {
		return inv, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDataSource) DeactivateInvoice(ctx context.Context, invoiceID string) error {
	args := m.Called(ctx, invoiceID)
	return args.Error(0)
}

// Nullifier methods

func (m *MockDataSource) ReserveNullifier(ctx context.Context, nullifier string) (bool, error) {
	args := m.Called(ctx, nullifier)
	return args.Bool(0), args.Error(1)
}

// Epoch root methods

func (m *MockDataSource) InsertEpochRoots(ctx context.Context, epoch int64, roots []string) (int64, error) {
	args := m.Called(ctx, epoch, roots)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) GetActiveEpochRoots(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if roots, ok := args.Get(0).([]string); ok {
		return roots, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDataSource) GetLatestEpoch(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) Close() error {
	return m.Called().Error(0)
}
