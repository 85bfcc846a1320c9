package apierror

import "net/http"

// Reason is the machine-readable classifier attached to every gate decision.
// Clients automate on the reason, never on the prose.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonRequireProof         Reason = "require-proof"
	ReasonInvalidProof         Reason = "invalid-proof"
	ReasonConflict             Reason = "conflict"
	ReasonLocked               Reason = "locked"
	ReasonTooEarly             Reason = "too-early"
	ReasonPreconditionRequired Reason = "precondition-required"
)

// StatusPaymentProofRequired is the non-standard status returned when a
// protected resource is requested without proof headers.
const StatusPaymentProofRequired = 434

// Problem is the body written for require-proof and reject decisions.
type Problem struct {
	Status        int    `json:"status"`
	Title         string `json:"title"`
	Detail        string `json:"detail"`
	ProofType     string `json:"proof_type"`
	PaymentScheme string `json:"payment_scheme"`
	InvoiceID     string `json:"invoice_id,omitempty"`
}

// StatusForReason maps a reason to its HTTP status. The table is fixed.
func StatusForReason(reason Reason) int {
	switch reason {
	case ReasonNone:
		return http.StatusOK
	case ReasonRequireProof:
		return StatusPaymentProofRequired
	case ReasonInvalidProof:
		return http.StatusUnprocessableEntity
	case ReasonConflict:
		return http.StatusConflict
	case ReasonLocked:
		return http.StatusLocked
	case ReasonTooEarly:
		return http.StatusTooEarly
	case ReasonPreconditionRequired:
		return http.StatusPreconditionRequired
	default:
		return http.StatusUnprocessableEntity
	}
}

// TitleForReason returns the default title for a reason.
func TitleForReason(reason Reason) string {
	switch reason {
	case ReasonRequireProof:
		return "Private Payment Proof Required"
	case ReasonConflict:
		return "ShadowPay Nullifier Conflict"
	case ReasonLocked:
		return "ShadowPay Escrow Locked"
	case ReasonTooEarly:
		return "ShadowPay Payment Not Yet Final"
	case ReasonPreconditionRequired:
		return "ShadowPay Precondition Required"
	default:
		return "Invalid ShadowPay Proof"
	}
}
