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
package model

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

var (
	invoiceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,128}$`)
	rootPattern      = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
)

type CreateInvoice struct {
	InvoiceID string          `json:"invoice_id"`
	Currency  string          `json:"currency"`
	Scheme    string          `json:"scheme"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note"`
}

type PublishEpochRoots struct {
	Epoch int64    `json:"epoch"`
	Roots []string `json:"roots"`
}

type PublishEpochRootsResponse struct {
	Epoch int64 `json:"epoch"`
	Roots int   `json:"roots"`
}

// PublicInvoice is what unauthenticated clients see of an invoice.
type PublicInvoice struct {
	InvoiceID string          `json:"invoice_id"`
	Currency  string          `json:"currency"`
	Scheme    string          `json:"scheme"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note,omitempty"`
}

func positiveAmount(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("invalid amount type")
	}
	if amount.IsNegative() {
		return errors.New("amount cannot be negative")
	}
	return nil
}

func (i *CreateInvoice) ValidateCreateInvoice() error {
	return validation.ValidateStruct(i,
		validation.Field(&i.InvoiceID, validation.Match(invoiceIDPattern).Error("invoice id may only contain letters, digits, - and _")),
		validation.Field(&i.Currency, validation.Required, validation.Length(1, 16)),
		validation.Field(&i.Scheme, validation.Length(0, 64)),
		validation.Field(&i.Amount, validation.By(positiveAmount)),
		validation.Field(&i.Note, validation.Length(0, 512)),
	)
}

// ToInvoice converts the request into an active invoice. An empty scheme
// becomes defaultScheme.
func (i *CreateInvoice) ToInvoice(defaultScheme string) model.Invoice {
	scheme := strings.TrimSpace(i.Scheme)
	if scheme == "" {
		scheme = defaultScheme
	}
	return model.Invoice{
		InvoiceID: strings.TrimSpace(i.InvoiceID),
		Currency:  strings.ToUpper(strings.TrimSpace(i.Currency)),
		Scheme:    scheme,
		Amount:    i.Amount,
		Active:    true,
		Note:      i.Note,
	}
}

func (p *PublishEpochRoots) ValidatePublishEpochRoots() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Epoch, validation.Min(int64(0))),
		validation.Field(&p.Roots, validation.Required, validation.Length(1, 1024), validation.Each(validation.Required, validation.Match(rootPattern).Error("roots must be 64 character hex strings"))),
	)
}

func ToPublicInvoice(invoice *model.Invoice) PublicInvoice {
	return PublicInvoice{
		InvoiceID: invoice.InvoiceID,
		Currency:  invoice.Currency,
		Scheme:    invoice.Scheme,
		Amount:    invoice.Amount,
		Note:      invoice.Note,
	}
}
