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
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/apierror"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

// DecisionClass is the top level classifier of a gate decision.
type DecisionClass string

const (
	ClassAllow        DecisionClass = "allow"
	ClassRequireProof DecisionClass = "require-proof"
	ClassReject       DecisionClass = "reject"
)

// Decision is what the gate hands back to the transport layer.
type Decision struct {
	Class   DecisionClass
	Reason  apierror.Reason
	Problem *apierror.Problem
	Context *model.PaymentContext
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool {
	return d.Class == ClassAllow
}

// Status is the HTTP status conventionally paired with the decision.
func (d Decision) Status() int {
	return apierror.StatusForReason(d.Reason)
}

// DecisionOptions carries the descriptive metadata copied into problem
// bodies. It never influences the class or the reason.
type DecisionOptions struct {
	ProofType     string
	PaymentScheme string
	InvoiceID     string
}

type outcomeMapping struct {
	reason apierror.Reason
	detail string
}

// outcomeTable is fixed; only the detail text is cosmetic.
var outcomeTable = map[OutcomeKind]outcomeMapping{
	OutcomeMalformedProofEncoding:        {apierror.ReasonInvalidProof, "Proof is not valid base64."},
	OutcomeInvalidMerkleRootEncoding:     {apierror.ReasonInvalidProof, "Merkle root must be 32 byte hex."},
	OutcomeUnacceptedMerkleRoot:          {apierror.ReasonInvalidProof, "Merkle root is not part of an accepted epoch."},
	OutcomeInvalidNullifierFormat:        {apierror.ReasonInvalidProof, "Nullifier looks invalid."},
	OutcomeProofCryptographicallyInvalid: {apierror.ReasonInvalidProof, "Proof failed verification."},
	OutcomeSchemeMismatch:                {apierror.ReasonInvalidProof, "Scheme does not match invoice."},
	OutcomeUnknownOrInactiveInvoice:      {apierror.ReasonPreconditionRequired, "Unknown or inactive ShadowPay invoice id."},
	OutcomeNullifierAlreadyUsed:          {apierror.ReasonConflict, "This ShadowPay nullifier has already been used."},
	OutcomeEscrowLocked:                  {apierror.ReasonLocked, "Escrow account is locked."},
	OutcomeTimingConditionNotMet:         {apierror.ReasonTooEarly, "Payment is not final yet, retry later."},
	OutcomePreconditionMissing:           {apierror.ReasonPreconditionRequired, "Payment prerequisites are not in place for this invoice."},
}

const (
	detailProofRequired   = "This endpoint requires a valid ShadowPay payment proof."
	detailGenericRejected = "ShadowPay proof could not be verified."
)

// MapOutcome translates a pipeline outcome into a decision. It is total:
// kinds without an entry are rejected as invalid proofs.
func MapOutcome(o Outcome, opts DecisionOptions) Decision {
	if o.Ok() {
		return Decision{Class: ClassAllow, Reason: apierror.ReasonNone, Context: o.Context}
	}

	m, ok := outcomeTable[o.Kind]
	if !ok {
		m = outcomeMapping{apierror.ReasonInvalidProof, detailGenericRejected}
	}
	return reject(m.reason, m.detail, opts)
}

// RequireProof builds the decision for requests that carry no proof at all.
// opts.InvoiceID should point at an example invoice clients can pay.
func RequireProof(opts DecisionOptions) Decision {
	return Decision{
		Class:   ClassRequireProof,
		Reason:  apierror.ReasonRequireProof,
		Problem: problem(apierror.ReasonRequireProof, detailProofRequired, opts),
	}
}

// genericRejection is returned when a collaborator faulted. The client only
// learns that the proof was not accepted.
func genericRejection(opts DecisionOptions) Decision {
	return reject(apierror.ReasonInvalidProof, detailGenericRejected, opts)
}

func reject(reason apierror.Reason, detail string, opts DecisionOptions) Decision {
	return Decision{
		Class:   ClassReject,
		Reason:  reason,
		Problem: problem(reason, detail, opts),
	}
}

func problem(reason apierror.Reason, detail string, opts DecisionOptions) *apierror.Problem {
	return &apierror.Problem{
		Status:        apierror.StatusForReason(reason),
		Title:         apierror.TitleForReason(reason),
		Detail:        detail,
		ProofType:     opts.ProofType,
		PaymentScheme: opts.PaymentScheme,
		InvoiceID:     opts.InvoiceID,
	}
}
