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
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a payment context issued by the billing system. The gate only
// ever reads invoices; they are created and deactivated out of band.
type Invoice struct {
	InvoiceID string          `json:"invoice_id"`
	Currency  string          `json:"currency"`
	Scheme    string          `json:"scheme"`
	Amount    decimal.Decimal `json:"amount"`
	Active    bool            `json:"active"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AcceptsScheme reports whether a submission declaring scheme may be checked
// against this invoice. An invoice without a scheme accepts any scheme.
func (i *Invoice) AcceptsScheme(scheme string) bool {
	return i.Scheme == "" || i.Scheme == scheme
}
