package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProofSubmission_HasProofFields(t *testing.T) {
	full := ProofSubmission{Proof: "cHJvb2Y=", Nullifier: "n", MerkleRoot: "r", InvoiceID: "inv"}
	assert.True(t, full.HasProofFields())

	tests := []struct {
		name   string
		mutate func(s *ProofSubmission)
	}{
		{"missing proof", func(s *ProofSubmission) { s.Proof = "" }},
		{"missing nullifier", func(s *ProofSubmission) { s.Nullifier = "" }},
		{"blank merkle root", func(s *ProofSubmission) { s.MerkleRoot = "   " }},
		{"missing invoice id", func(s *ProofSubmission) { s.InvoiceID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := full
			tt.mutate(&s)
			assert.False(t, s.HasProofFields())
		})
	}
}

func TestInvoice_AcceptsScheme(t *testing.T) {
	inv := Invoice{Scheme: "shadowpay_v1"}
	assert.True(t, inv.AcceptsScheme("shadowpay_v1"))
	assert.False(t, inv.AcceptsScheme("shadowpay_v2"))

	open := Invoice{}
	assert.True(t, open.AcceptsScheme("anything"))
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("nullifier-value-0001")
	assert.Len(t, a, 12)
	assert.Equal(t, a, Fingerprint("nullifier-value-0001"))
	assert.NotEqual(t, a, Fingerprint("nullifier-value-0002"))
	assert.NotContains(t, a, "nullifier")
}
