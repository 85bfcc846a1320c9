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
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

const (
	DefaultScheme           = "shadowpay_v1"
	DefaultProofType        = "groth16"
	DefaultExampleInvoiceID = "inv_demo_1"
)

// GateOptions is the descriptive metadata the gate advertises to clients.
type GateOptions struct {
	DefaultScheme    string
	ProofType        string
	ExampleInvoiceID string
}

// Gate is the entry point of the admission check. It tells "no proof" apart
// from "bad proof", drives the pipeline and never lets a collaborator fault
// escape.
type Gate struct {
	pipeline  *Pipeline
	opts      GateOptions
	publisher EventPublisher
	onFault   func(error)
	now       func() time.Time
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithEventPublisher publishes a proof.accepted event for every allow.
func WithEventPublisher(p EventPublisher) GateOption {
	return func(g *Gate) { g.publisher = p }
}

// WithFaultNotifier is called with every collaborator fault, after it has
// been logged.
func WithFaultNotifier(fn func(error)) GateOption {
	return func(g *Gate) { g.onFault = fn }
}

func NewGate(pipeline *Pipeline, opts GateOptions, options ...GateOption) *Gate {
	if opts.DefaultScheme == "" {
		opts.DefaultScheme = DefaultScheme
	}
	if opts.ProofType == "" {
		opts.ProofType = DefaultProofType
	}
	if opts.ExampleInvoiceID == "" {
		opts.ExampleInvoiceID = DefaultExampleInvoiceID
	}
	g := &Gate{pipeline: pipeline, opts: opts, now: time.Now}
	for _, o := range options {
		o(g)
	}
	return g
}

// Options returns the metadata the gate advertises.
func (g *Gate) Options() GateOptions {
	return g.opts
}

// Evaluate decides whether the request on route carrying sub may proceed.
// Every path returns a decision.
func (g *Gate) Evaluate(ctx context.Context, route string, sub model.ProofSubmission) (decision Decision) {
	ctx, span := tracer.Start(ctx, "Evaluating payment proof")
	defer span.End()

	sub = g.normalize(sub)
	defer func() {
		if rec := recover(); rec != nil {
			g.fault(route, sub, fmt.Errorf("panic during proof evaluation: %v", rec))
			decision = genericRejection(g.decisionOptions(sub))
		}
		span.SetAttributes(
			attribute.String("shadowpay.class", string(decision.Class)),
			attribute.String("shadowpay.reason", string(decision.Reason)),
		)
		logDecision(route, sub, decision)
	}()

	if !sub.HasProofFields() {
		return RequireProof(DecisionOptions{
			ProofType:     g.opts.ProofType,
			PaymentScheme: g.opts.DefaultScheme,
			InvoiceID:     g.opts.ExampleInvoiceID,
		})
	}

	outcome, err := g.pipeline.Run(ctx, sub)
	if err != nil {
		span.RecordError(err)
		g.fault(route, sub, err)
		return genericRejection(g.decisionOptions(sub))
	}

	decision = MapOutcome(outcome, g.decisionOptions(sub))
	if decision.Allowed() {
		g.publishAccepted(ctx, route, decision.Context)
	}
	return decision
}

func (g *Gate) normalize(sub model.ProofSubmission) model.ProofSubmission {
	sub.Proof = strings.TrimSpace(sub.Proof)
	sub.Nullifier = strings.TrimSpace(sub.Nullifier)
	sub.MerkleRoot = strings.TrimSpace(sub.MerkleRoot)
	sub.InvoiceID = strings.TrimSpace(sub.InvoiceID)
	sub.EscrowAccount = strings.TrimSpace(sub.EscrowAccount)
	sub.Scheme = strings.TrimSpace(sub.Scheme)
	if sub.Scheme == "" {
		sub.Scheme = g.opts.DefaultScheme
	}
	return sub
}

func (g *Gate) decisionOptions(sub model.ProofSubmission) DecisionOptions {
	return DecisionOptions{
		ProofType:     g.opts.ProofType,
		PaymentScheme: sub.Scheme,
		InvoiceID:     sub.InvoiceID,
	}
}

func (g *Gate) fault(route string, sub model.ProofSubmission, err error) {
	logrus.WithFields(logrus.Fields{
		"route":      route,
		"invoice_id": sub.InvoiceID,
		"scheme":     sub.Scheme,
	}).Errorf("proof gate collaborator fault: %v", err)
	if g.onFault != nil {
		g.onFault(err)
	}
}

func (g *Gate) publishAccepted(ctx context.Context, route string, pc *model.PaymentContext) {
	if g.publisher == nil || pc == nil {
		return
	}
	log := logrus.WithFields(logrus.Fields{
		"route":      route,
		"invoice_id": pc.InvoiceID,
	})
	// The nullifier is already spent; a publisher failure must not turn the
	// allow into a rejection.
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("panic publishing proof accepted event: %v", rec)
		}
	}()

	event := model.ProofAcceptedEvent{
		EventID:              uuid.NewString(),
		InvoiceID:            pc.InvoiceID,
		Scheme:               pc.Scheme,
		NullifierFingerprint: model.Fingerprint(pc.Nullifier),
		Escrowed:             pc.EscrowAccount != nil,
		Route:                route,
		AcceptedAt:           g.now().UTC(),
	}
	if err := g.publisher.PublishProofAccepted(ctx, event); err != nil {
		log.Warnf("failed to publish proof accepted event: %v", err)
	}
}

// logDecision logs only the classifier, route, invoice id and scheme. Proofs,
// nullifiers and roots stay out of the logs.
func logDecision(route string, sub model.ProofSubmission, d Decision) {
	classifier := string(d.Reason)
	if d.Allowed() {
		classifier = string(ClassAllow)
	}
	entry := logrus.WithFields(logrus.Fields{
		"classifier": classifier,
		"route":      route,
		"invoice_id": sub.InvoiceID,
		"scheme":     sub.Scheme,
	})
	if d.Allowed() {
		entry.Info("shadowpay proof accepted")
		return
	}
	entry.Info("shadowpay proof not accepted")
}
