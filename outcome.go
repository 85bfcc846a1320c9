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

import "github.com/Radrdotfun/radr-http-434-private-payment-proof/model"

// OutcomeKind tags the single result of a pipeline run.
type OutcomeKind int

const (
	OutcomeOk OutcomeKind = iota
	OutcomeMalformedProofEncoding
	OutcomeInvalidMerkleRootEncoding
	OutcomeUnacceptedMerkleRoot
	OutcomeInvalidNullifierFormat
	OutcomeUnknownOrInactiveInvoice
	OutcomeSchemeMismatch
	OutcomeNullifierAlreadyUsed
	OutcomeEscrowLocked
	OutcomeProofCryptographicallyInvalid
	OutcomeTimingConditionNotMet
	OutcomePreconditionMissing
)

var outcomeNames = map[OutcomeKind]string{
	OutcomeOk:                            "ok",
	OutcomeMalformedProofEncoding:        "malformed_proof_encoding",
	OutcomeInvalidMerkleRootEncoding:     "invalid_merkle_root_encoding",
	OutcomeUnacceptedMerkleRoot:          "unaccepted_merkle_root",
	OutcomeInvalidNullifierFormat:        "invalid_nullifier_format",
	OutcomeUnknownOrInactiveInvoice:      "unknown_or_inactive_invoice",
	OutcomeSchemeMismatch:                "scheme_mismatch",
	OutcomeNullifierAlreadyUsed:          "nullifier_already_used",
	OutcomeEscrowLocked:                  "escrow_locked",
	OutcomeProofCryptographicallyInvalid: "proof_cryptographically_invalid",
	OutcomeTimingConditionNotMet:         "timing_condition_not_met",
	OutcomePreconditionMissing:           "precondition_missing",
}

func (k OutcomeKind) String() string {
	if name, ok := outcomeNames[k]; ok {
		return name
	}
	return "unknown"
}

// Outcome is produced once per pipeline run. Context is only set for
// OutcomeOk.
type Outcome struct {
	Kind    OutcomeKind
	Context *model.PaymentContext
}

// Ok reports whether every stage passed.
func (o Outcome) Ok() bool {
	return o.Kind == OutcomeOk && o.Context != nil
}
