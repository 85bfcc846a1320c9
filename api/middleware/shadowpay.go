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
package middleware

import (
	"github.com/gin-gonic/gin"

	shadowpay "github.com/Radrdotfun/radr-http-434-private-payment-proof"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

const (
	ProofHeader         = "X-ShadowPay-Proof"
	NullifierHeader     = "X-ShadowPay-Nullifier"
	MerkleRootHeader    = "X-ShadowPay-Merkle-Root"
	InvoiceIDHeader     = "X-ShadowPay-Invoice-Id"
	SchemeHeader        = "X-ShadowPay-Scheme"
	EscrowAccountHeader = "X-ShadowPay-Escrow-Account"

	// PaymentContextKey is the gin context key holding the verified
	// *model.PaymentContext.
	PaymentContextKey = "shadowpay"

	problemContentType = "application/problem+json"
)

// SubmissionFromRequest reads the proof headers of a request.
func SubmissionFromRequest(c *gin.Context) model.ProofSubmission {
	return model.ProofSubmission{
		Proof:         c.GetHeader(ProofHeader),
		Nullifier:     c.GetHeader(NullifierHeader),
		MerkleRoot:    c.GetHeader(MerkleRootHeader),
		InvoiceID:     c.GetHeader(InvoiceIDHeader),
		EscrowAccount: c.GetHeader(EscrowAccountHeader),
		Scheme:        c.GetHeader(SchemeHeader),
	}
}

// ShadowPay admits a request only when it carries an accepted payment proof.
// Every other decision is written as a problem body with the decision's
// status and the chain is aborted.
func ShadowPay(gate *shadowpay.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		decision := gate.Evaluate(c.Request.Context(), route, SubmissionFromRequest(c))
		if !decision.Allowed() {
			c.Header("Content-Type", problemContentType)
			c.Header("Cache-Control", "no-store")
			c.AbortWithStatusJSON(decision.Status(), decision.Problem)
			return
		}

		c.Set(PaymentContextKey, decision.Context)
		c.Next()
	}
}

// PaymentContext returns the verified payment context placed by ShadowPay.
func PaymentContext(c *gin.Context) (*model.PaymentContext, bool) {
	v, ok := c.Get(PaymentContextKey)
	if !ok {
		return nil, false
	}
	pc, ok := v.(*model.PaymentContext)
	return pc, ok && pc != nil
}
