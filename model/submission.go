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
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ProofSubmission is the proof material attached to a single request. It
// lives for one pipeline run and is never persisted as-is.
type ProofSubmission struct {
	Proof         string
	Nullifier     string
	MerkleRoot    string
	InvoiceID     string
	EscrowAccount string
	Scheme        string
}

// HasProofFields reports whether all mandatory proof fields are present.
// Presence says nothing about validity.
func (s ProofSubmission) HasProofFields() bool {
	return strings.TrimSpace(s.Proof) != "" &&
		strings.TrimSpace(s.Nullifier) != "" &&
		strings.TrimSpace(s.MerkleRoot) != "" &&
		strings.TrimSpace(s.InvoiceID) != ""
}

// HasEscrow reports whether the submission names an escrow account.
func (s ProofSubmission) HasEscrow() bool {
	return strings.TrimSpace(s.EscrowAccount) != ""
}

// PaymentContext is the verified context handed to downstream handlers once
// every stage of the pipeline has passed.
type PaymentContext struct {
	InvoiceID     string  `json:"invoice_id"`
	Nullifier     string  `json:"nullifier"`
	MerkleRoot    string  `json:"merkle_root"`
	EscrowAccount *string `json:"escrow_account"`
	Scheme        string  `json:"scheme"`
}

// Fingerprint returns a short, non-reversible tag for a sensitive value such
// as a nullifier, safe to put in logs and events.
func Fingerprint(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:6])
}
