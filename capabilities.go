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

package shadowpay

import (
	"context"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

// InvoiceRegistry looks up payment contexts. Lookup returns
// model.ErrInvoiceNotFound when the invoice does not exist; any other error
// is treated as a collaborator fault.
type InvoiceRegistry interface {
	Lookup(ctx context.Context, invoiceID string) (*model.Invoice, error)
}

// InvoiceStore is an InvoiceRegistry that the admin surface can write to.
type InvoiceStore interface {
	InvoiceRegistry
	CreateInvoice(ctx context.Context, invoice model.Invoice) (*model.Invoice, error)
	DeactivateInvoice(ctx context.Context, invoiceID string) error
}

// RootSet answers whether a merkle root belongs to the current epoch window.
// Implementations must be safe for concurrent readers while the set is
// being replaced.
type RootSet interface {
	IsAccepted(root string) bool
}

// NullifierStore reserves one-time-use tokens. Reserve must be a single
// atomic reserve-if-absent: for concurrent callers with the same nullifier
// exactly one observes true. Reservations are never released.
type NullifierStore interface {
	Reserve(ctx context.Context, nullifier string) (bool, error)
}

// ProofVerifier is the cryptographic predicate over a proof and the root and
// scheme it claims. An error is never a crash of the gate; the pipeline
// treats it as an invalid proof.
type ProofVerifier interface {
	Verify(ctx context.Context, proof []byte, merkleRoot, scheme string, pc model.PaymentContext) (bool, error)
}

// EscrowOracle queries ledger state for escrow-backed payments. It is only
// consulted when the submission carries an escrow account.
type EscrowOracle interface {
	CheckEscrow(ctx context.Context, escrowAccount string) (model.EscrowStatus, error)
	CheckTiming(ctx context.Context, invoiceID string) (model.TimingStatus, error)
}

// EventPublisher receives admitted payments for downstream processing.
type EventPublisher interface {
	PublishProofAccepted(ctx context.Context, event model.ProofAcceptedEvent) error
}
