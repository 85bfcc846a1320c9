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

import "errors"

var (
	ErrInvoiceNotFound  = errors.New("invoice not found")
	ErrInvoiceExists    = errors.New("invoice already exists")
	ErrInvalidEpochRoot = errors.New("epoch roots must be 64 character hex strings")
)

// EscrowStatus is the ledger's view of an escrow account.
type EscrowStatus string

const (
	EscrowUnlocked      EscrowStatus = "unlocked"
	EscrowLocked        EscrowStatus = "locked"
	EscrowNotApplicable EscrowStatus = "not_applicable"
)

// TimingStatus is the ledger's view of whether an invoice's payment may be
// consumed yet.
type TimingStatus string

const (
	TimingReady               TimingStatus = "ready"
	TimingTooEarly            TimingStatus = "too_early"
	TimingNotApplicable       TimingStatus = "not_applicable"
	TimingPreconditionMissing TimingStatus = "precondition_missing"
)
