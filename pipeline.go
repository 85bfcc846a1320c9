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
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

var (
	tracer = otel.Tracer("shadowpay.pipeline")
)

const (
	DefaultMinNullifierLength = 16
	merkleRootHexLength       = 64
)

// Pipeline runs the fixed, ordered validation stages over one submission and
// stops at the first stage that does not pass.
//
// Stage order:
//  1. invoice lookup and active state
//  2. scheme match
//  3. proof encoding
//  4. merkle root encoding, then epoch membership
//  5. nullifier format
//  6. nullifier reservation
//  7. escrow lock (escrowed submissions only)
//  8. proof verification
//  9. timing and preconditions (escrowed submissions only)
//
// The reservation in stage 6 is never undone, whatever later stages decide.
type Pipeline struct {
	invoices           InvoiceRegistry
	roots              RootSet
	nullifiers         NullifierStore
	verifier           ProofVerifier
	oracle             EscrowOracle
	minNullifierLength int
	stages             []stage
}

type stage struct {
	name string
	run  func(ctx context.Context, st *runState) (OutcomeKind, error)
}

// runState is what earlier stages hand to later ones during a single run.
type runState struct {
	sub     model.ProofSubmission
	invoice *model.Invoice
	proof   []byte
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithMinNullifierLength overrides the minimum accepted nullifier length.
func WithMinNullifierLength(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.minNullifierLength = n
		}
	}
}

// NewPipeline wires the collaborators into a pipeline. All collaborators are
// required.
func NewPipeline(invoices InvoiceRegistry, roots RootSet, nullifiers NullifierStore, verifier ProofVerifier, oracle EscrowOracle, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		invoices:           invoices,
		roots:              roots,
		nullifiers:         nullifiers,
		verifier:           verifier,
		oracle:             oracle,
		minNullifierLength: DefaultMinNullifierLength,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.stages = []stage{
		{"invoice", p.checkInvoice},
		{"scheme", p.checkScheme},
		{"proof_encoding", p.checkProofEncoding},
		{"merkle_root", p.checkMerkleRoot},
		{"nullifier_format", p.checkNullifierFormat},
		{"nullifier_reservation", p.reserveNullifier},
		{"escrow", p.checkEscrow},
		{"verification", p.verifyProof},
		{"timing", p.checkTiming},
	}
	return p
}

// Run executes every stage in order. A non-nil error means a collaborator
// faulted; the outcome is then meaningless and the caller decides how to
// answer.
func (p *Pipeline) Run(ctx context.Context, sub model.ProofSubmission) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "Running proof pipeline")
	defer span.End()
	span.SetAttributes(
		attribute.String("shadowpay.invoice_id", sub.InvoiceID),
		attribute.String("shadowpay.scheme", sub.Scheme),
	)

	st := &runState{sub: sub}
	for _, s := range p.stages {
		kind, err := p.runStage(ctx, s, st)
		if err != nil {
			span.SetStatus(codes.Error, s.name)
			return Outcome{}, logAndRecordError(span, "proof pipeline fault: ", fmt.Errorf("%s stage: %w", s.name, err))
		}
		if kind != OutcomeOk {
			span.SetAttributes(
				attribute.String("shadowpay.stage", s.name),
				attribute.String("shadowpay.outcome", kind.String()),
			)
			return Outcome{Kind: kind}, nil
		}
	}

	pc := paymentContext(sub)
	span.SetAttributes(attribute.String("shadowpay.outcome", OutcomeOk.String()))
	return Outcome{Kind: OutcomeOk, Context: &pc}, nil
}

// runStage runs a single stage under its own child span.
func (p *Pipeline) runStage(ctx context.Context, s stage, st *runState) (OutcomeKind, error) {
	ctx, span := tracer.Start(ctx, "stage."+s.name)
	defer span.End()

	kind, err := s.run(ctx, st)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return kind, err
	}
	span.SetAttributes(attribute.String("shadowpay.outcome", kind.String()))
	return kind, nil
}

func logAndRecordError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	logrus.Error(msg, err)
	return err
}

func (p *Pipeline) checkInvoice(ctx context.Context, st *runState) (OutcomeKind, error) {
	invoice, err := p.invoices.Lookup(ctx, st.sub.InvoiceID)
	if errors.Is(err, model.ErrInvoiceNotFound) {
		return OutcomeUnknownOrInactiveInvoice, nil
	}
	if err != nil {
		return OutcomeOk, err
	}
	// Missing and inactive are reported identically.
	if invoice == nil || !invoice.Active {
		return OutcomeUnknownOrInactiveInvoice, nil
	}
	st.invoice = invoice
	return OutcomeOk, nil
}

func (p *Pipeline) checkScheme(_ context.Context, st *runState) (OutcomeKind, error) {
	if !st.invoice.AcceptsScheme(st.sub.Scheme) {
		return OutcomeSchemeMismatch, nil
	}
	return OutcomeOk, nil
}

func (p *Pipeline) checkProofEncoding(_ context.Context, st *runState) (OutcomeKind, error) {
	proof, ok := decodeProof(st.sub.Proof)
	if !ok {
		return OutcomeMalformedProofEncoding, nil
	}
	st.proof = proof
	return OutcomeOk, nil
}

func (p *Pipeline) checkMerkleRoot(_ context.Context, st *runState) (OutcomeKind, error) {
	if !isHex32(st.sub.MerkleRoot) {
		return OutcomeInvalidMerkleRootEncoding, nil
	}
	if !p.roots.IsAccepted(st.sub.MerkleRoot) {
		return OutcomeUnacceptedMerkleRoot, nil
	}
	return OutcomeOk, nil
}

func (p *Pipeline) checkNullifierFormat(_ context.Context, st *runState) (OutcomeKind, error) {
	n := st.sub.Nullifier
	if n == "" || len(n) < p.minNullifierLength {
		return OutcomeInvalidNullifierFormat, nil
	}
	return OutcomeOk, nil
}

func (p *Pipeline) reserveNullifier(ctx context.Context, st *runState) (OutcomeKind, error) {
	reserved, err := p.nullifiers.Reserve(ctx, st.sub.Nullifier)
	if err != nil {
		return OutcomeOk, err
	}
	if !reserved {
		return OutcomeNullifierAlreadyUsed, nil
	}
	return OutcomeOk, nil
}

func (p *Pipeline) checkEscrow(ctx context.Context, st *runState) (OutcomeKind, error) {
	if !st.sub.HasEscrow() {
		return OutcomeOk, nil
	}
	status, err := p.oracle.CheckEscrow(ctx, st.sub.EscrowAccount)
	if err != nil {
		return OutcomeOk, err
	}
	switch status {
	case model.EscrowUnlocked, model.EscrowNotApplicable:
		return OutcomeOk, nil
	case model.EscrowLocked:
		return OutcomeEscrowLocked, nil
	default:
		return OutcomeOk, fmt.Errorf("unexpected escrow status %q", status)
	}
}

func (p *Pipeline) verifyProof(ctx context.Context, st *runState) (kind OutcomeKind, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logrus.WithField("invoice_id", st.sub.InvoiceID).Errorf("proof verifier panicked: %v", rec)
			kind, err = OutcomeProofCryptographicallyInvalid, nil
		}
	}()

	valid, verr := p.verifier.Verify(ctx, st.proof, st.sub.MerkleRoot, st.sub.Scheme, paymentContext(st.sub))
	if verr != nil {
		logrus.WithFields(logrus.Fields{
			"invoice_id": st.sub.InvoiceID,
			"scheme":     st.sub.Scheme,
		}).Errorf("proof verifier failed: %v", verr)
		return OutcomeProofCryptographicallyInvalid, nil
	}
	if !valid {
		return OutcomeProofCryptographicallyInvalid, nil
	}
	return OutcomeOk, nil
}

func (p *Pipeline) checkTiming(ctx context.Context, st *runState) (OutcomeKind, error) {
	if !st.sub.HasEscrow() {
		return OutcomeOk, nil
	}
	status, err := p.oracle.CheckTiming(ctx, st.sub.InvoiceID)
	if err != nil {
		return OutcomeOk, err
	}
	switch status {
	case model.TimingReady, model.TimingNotApplicable:
		return OutcomeOk, nil
	case model.TimingTooEarly:
		return OutcomeTimingConditionNotMet, nil
	case model.TimingPreconditionMissing:
		return OutcomePreconditionMissing, nil
	default:
		return OutcomeOk, fmt.Errorf("unexpected timing status %q", status)
	}
}

func paymentContext(sub model.ProofSubmission) model.PaymentContext {
	pc := model.PaymentContext{
		InvoiceID:  sub.InvoiceID,
		Nullifier:  sub.Nullifier,
		MerkleRoot: sub.MerkleRoot,
		Scheme:     sub.Scheme,
	}
	if sub.HasEscrow() {
		account := sub.EscrowAccount
		pc.EscrowAccount = &account
	}
	return pc
}

// decodeProof accepts standard, padded base64 once whitespace is removed.
// The payload must re-encode to exactly the same text.
func decodeProof(value string) ([]byte, bool) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value)
	if clean == "" {
		return nil, false
	}
	decoded, err := base64.StdEncoding.Strict().DecodeString(clean)
	if err != nil || len(decoded) == 0 {
		return nil, false
	}
	if base64.StdEncoding.EncodeToString(decoded) != clean {
		return nil, false
	}
	return decoded, true
}

func isHex32(value string) bool {
	if len(value) != merkleRootHexLength {
		return false
	}
	_, err := hex.DecodeString(value)
	return err == nil
}
