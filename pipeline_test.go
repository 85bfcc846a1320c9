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
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/epoch"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/nullifier"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/oracle"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/registry"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/verifier"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

const (
	testRoot      = "0f1e2d3c4b5a69788796a5b4c3d2e1f00f1e2d3c4b5a69788796a5b4c3d2e1f0"
	lockedEscrow  = "LOCKED_ESCROW_FOR_DEMO"
	unlockedEscro = "acct_open_escrow"
)

var testProof = base64.StdEncoding.EncodeToString([]byte("groth16-proof-bytes"))

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(ctx context.Context, proof []byte, merkleRoot, scheme string, pc model.PaymentContext) (bool, error) {
	args := m.Called(ctx, proof, merkleRoot, scheme, pc)
	return args.Bool(0), args.Error(1)
}

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) CheckEscrow(ctx context.Context, account string) (model.EscrowStatus, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(model.EscrowStatus), args.Error(1)
}

func (m *mockOracle) CheckTiming(ctx context.Context, invoiceID string) (model.TimingStatus, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).(model.TimingStatus), args.Error(1)
}

type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) Lookup(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	inv, _ := args.Get(0).(*model.Invoice)
	return inv, args.Error(1)
}

type failingStore struct{}

func (failingStore) Reserve(context.Context, string) (bool, error) {
	return false, errors.New("store unavailable")
}

type panickingVerifier struct{}

func (panickingVerifier) Verify(context.Context, []byte, string, string, model.PaymentContext) (bool, error) {
	panic("verifier blew up")
}

type countingStore struct {
	*nullifier.MemoryStore
	calls int32
}

func (c *countingStore) Reserve(ctx context.Context, n string) (bool, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.MemoryStore.Reserve(ctx, n)
}

func newNullifier() string {
	return gofakeit.LetterN(24)
}

func validSubmission() model.ProofSubmission {
	return model.ProofSubmission{
		Proof:      testProof,
		Nullifier:  newNullifier(),
		MerkleRoot: testRoot,
		InvoiceID:  registry.DemoInvoiceID,
		Scheme:     registry.DemoScheme,
	}
}

type pipelineDeps struct {
	invoices   InvoiceRegistry
	roots      RootSet
	nullifiers NullifierStore
	verifier   ProofVerifier
	oracle     EscrowOracle
}

func demoDeps() pipelineDeps {
	return pipelineDeps{
		invoices:   registry.NewDemo(),
		roots:      epoch.NewOpenSet(),
		nullifiers: nullifier.NewMemoryStore(),
		verifier:   verifier.Structural{},
		oracle:     oracle.NewStatic(lockedEscrow),
	}
}

func (d pipelineDeps) pipeline(opts ...PipelineOption) *Pipeline {
	return NewPipeline(d.invoices, d.roots, d.nullifiers, d.verifier, d.oracle, opts...)
}

func TestPipeline_DemoRoundTrip(t *testing.T) {
	sub := validSubmission()

	outcome, err := demoDeps().pipeline().Run(context.Background(), sub)
	require.NoError(t, err)
	require.True(t, outcome.Ok())
	assert.Equal(t, OutcomeOk, outcome.Kind)
	assert.Equal(t, model.PaymentContext{
		InvoiceID:  sub.InvoiceID,
		Nullifier:  sub.Nullifier,
		MerkleRoot: sub.MerkleRoot,
		Scheme:     sub.Scheme,
	}, *outcome.Context)
}

func TestPipeline_Outcomes(t *testing.T) {
	inactive := registry.DemoInvoice()
	inactive.InvoiceID = "inv_inactive"
	inactive.Active = false
	anyScheme := registry.DemoInvoice()
	anyScheme.InvoiceID = "inv_any_scheme"
	anyScheme.Scheme = ""

	tests := []struct {
		name   string
		mutate func(*model.ProofSubmission)
		want   OutcomeKind
	}{
		{"valid", func(s *model.ProofSubmission) {}, OutcomeOk},
		{"unknown invoice", func(s *model.ProofSubmission) { s.InvoiceID = "inv_missing" }, OutcomeUnknownOrInactiveInvoice},
		{"inactive invoice", func(s *model.ProofSubmission) { s.InvoiceID = "inv_inactive" }, OutcomeUnknownOrInactiveInvoice},
		{"scheme mismatch", func(s *model.ProofSubmission) { s.Scheme = "shadowpay_v2" }, OutcomeSchemeMismatch},
		{"invoice without scheme accepts any", func(s *model.ProofSubmission) {
			s.InvoiceID = "inv_any_scheme"
			s.Scheme = "shadowpay_v2"
		}, OutcomeOk},
		{"proof not base64", func(s *model.ProofSubmission) { s.Proof = "not*base64!" }, OutcomeMalformedProofEncoding},
		{"proof unpadded", func(s *model.ProofSubmission) { s.Proof = "cHJvb2Y" }, OutcomeMalformedProofEncoding},
		{"proof url alphabet", func(s *model.ProofSubmission) { s.Proof = "-_-_" }, OutcomeMalformedProofEncoding},
		{"proof with whitespace", func(s *model.ProofSubmission) { s.Proof = "cHJv\nb2Y=" }, OutcomeOk},
		{"root too short", func(s *model.ProofSubmission) { s.MerkleRoot = testRoot[:62] }, OutcomeInvalidMerkleRootEncoding},
		{"root not hex", func(s *model.ProofSubmission) { s.MerkleRoot = "zz" + testRoot[2:] }, OutcomeInvalidMerkleRootEncoding},
		{"root upper case", func(s *model.ProofSubmission) { s.MerkleRoot = "0F1E" + testRoot[4:] }, OutcomeOk},
		{"nullifier too short", func(s *model.ProofSubmission) { s.Nullifier = "short-nullifier" }, OutcomeInvalidNullifierFormat},
		{"nullifier minimum length", func(s *model.ProofSubmission) { s.Nullifier = gofakeit.LetterN(16) }, OutcomeOk},
		{"locked escrow", func(s *model.ProofSubmission) { s.EscrowAccount = lockedEscrow }, OutcomeEscrowLocked},
		{"unlocked escrow", func(s *model.ProofSubmission) { s.EscrowAccount = unlockedEscro }, OutcomeOk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := demoDeps()
			deps.invoices = registry.NewMemory(registry.DemoInvoice(), inactive, anyScheme)

			sub := validSubmission()
			tt.mutate(&sub)

			outcome, err := deps.pipeline().Run(context.Background(), sub)
			require.NoError(t, err)
			assert.Equal(t, tt.want.String(), outcome.Kind.String())
			assert.Equal(t, tt.want == OutcomeOk, outcome.Ok())
		})
	}
}

func TestPipeline_UnacceptedRoot(t *testing.T) {
	deps := demoDeps()
	deps.roots = epoch.NewSet("aa" + testRoot[2:])

	outcome, err := deps.pipeline().Run(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnacceptedMerkleRoot, outcome.Kind)
}

func TestPipeline_StageOrder(t *testing.T) {
	deps := demoDeps()
	store := &countingStore{MemoryStore: nullifier.NewMemoryStore()}
	deps.nullifiers = store

	// Unknown invoice wins over every syntactic defect.
	sub := model.ProofSubmission{
		Proof:      "%%%",
		Nullifier:  "x",
		MerkleRoot: "nothex",
		InvoiceID:  "inv_missing",
		Scheme:     "other",
	}
	outcome, err := deps.pipeline().Run(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownOrInactiveInvoice, outcome.Kind)

	// Scheme before proof encoding.
	sub.InvoiceID = registry.DemoInvoiceID
	outcome, _ = deps.pipeline().Run(context.Background(), sub)
	assert.Equal(t, OutcomeSchemeMismatch, outcome.Kind)

	// Proof encoding before root.
	sub.Scheme = registry.DemoScheme
	outcome, _ = deps.pipeline().Run(context.Background(), sub)
	assert.Equal(t, OutcomeMalformedProofEncoding, outcome.Kind)

	// Root before nullifier.
	sub.Proof = testProof
	outcome, _ = deps.pipeline().Run(context.Background(), sub)
	assert.Equal(t, OutcomeInvalidMerkleRootEncoding, outcome.Kind)

	sub.MerkleRoot = testRoot
	outcome, _ = deps.pipeline().Run(context.Background(), sub)
	assert.Equal(t, OutcomeInvalidNullifierFormat, outcome.Kind)

	// Nothing reached the store yet.
	assert.Equal(t, int32(0), atomic.LoadInt32(&store.calls))
}

func TestPipeline_NullifierReuse(t *testing.T) {
	p := demoDeps().pipeline()
	sub := validSubmission()

	outcome, err := p.Run(context.Background(), sub)
	require.NoError(t, err)
	assert.True(t, outcome.Ok())

	for i := 0; i < 3; i++ {
		outcome, err = p.Run(context.Background(), sub)
		require.NoError(t, err)
		assert.Equal(t, OutcomeNullifierAlreadyUsed, outcome.Kind)
	}
}

func TestPipeline_NullifierStaysReservedAfterFailedVerification(t *testing.T) {
	deps := demoDeps()
	v := &mockVerifier{}
	v.On("Verify", mock.Anything, mock.Anything, testRoot, registry.DemoScheme, mock.Anything).Return(false, nil).Once()
	deps.verifier = v
	p := deps.pipeline()
	sub := validSubmission()

	outcome, err := p.Run(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProofCryptographicallyInvalid, outcome.Kind)

	outcome, err = p.Run(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNullifierAlreadyUsed, outcome.Kind)
	v.AssertExpectations(t)
}

func TestPipeline_EscrowLockedStillConsumesNullifier(t *testing.T) {
	p := demoDeps().pipeline()
	sub := validSubmission()
	sub.EscrowAccount = lockedEscrow

	outcome, err := p.Run(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, OutcomeEscrowLocked, outcome.Kind)

	sub.EscrowAccount = ""
	outcome, err = p.Run(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNullifierAlreadyUsed, outcome.Kind)
}

func TestPipeline_VerifierPassesDecodedProof(t *testing.T) {
	deps := demoDeps()
	v := &mockVerifier{}
	sub := validSubmission()
	v.On("Verify", mock.Anything, []byte("groth16-proof-bytes"), testRoot, registry.DemoScheme,
		model.PaymentContext{InvoiceID: sub.InvoiceID, Nullifier: sub.Nullifier, MerkleRoot: testRoot, Scheme: registry.DemoScheme}).
		Return(true, nil)
	deps.verifier = v

	outcome, err := deps.pipeline().Run(context.Background(), sub)
	require.NoError(t, err)
	assert.True(t, outcome.Ok())
	v.AssertExpectations(t)
}

func TestPipeline_VerifierFailuresAreInvalidProofs(t *testing.T) {
	deps := demoDeps()
	v := &mockVerifier{}
	v.On("Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("prover timeout"))
	deps.verifier = v

	outcome, err := deps.pipeline().Run(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.Equal(t, OutcomeProofCryptographicallyInvalid, outcome.Kind)

	deps.verifier = panickingVerifier{}
	outcome, err = deps.pipeline().Run(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.Equal(t, OutcomeProofCryptographicallyInvalid, outcome.Kind)
}

func TestPipeline_Timing(t *testing.T) {
	tests := []struct {
		status model.TimingStatus
		want   OutcomeKind
	}{
		{model.TimingReady, OutcomeOk},
		{model.TimingNotApplicable, OutcomeOk},
		{model.TimingTooEarly, OutcomeTimingConditionNotMet},
		{model.TimingPreconditionMissing, OutcomePreconditionMissing},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			deps := demoDeps()
			o := &mockOracle{}
			o.On("CheckEscrow", mock.Anything, unlockedEscro).Return(model.EscrowUnlocked, nil)
			o.On("CheckTiming", mock.Anything, registry.DemoInvoiceID).Return(tt.status, nil)
			deps.oracle = o

			sub := validSubmission()
			sub.EscrowAccount = unlockedEscro
			outcome, err := deps.pipeline().Run(context.Background(), sub)
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome.Kind)
			if tt.want == OutcomeOk {
				require.NotNil(t, outcome.Context.EscrowAccount)
				assert.Equal(t, unlockedEscro, *outcome.Context.EscrowAccount)
			}
			o.AssertExpectations(t)
		})
	}
}

func TestPipeline_OracleNotConsultedWithoutEscrow(t *testing.T) {
	deps := demoDeps()
	o := &mockOracle{}
	deps.oracle = o

	outcome, err := deps.pipeline().Run(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.True(t, outcome.Ok())
	o.AssertNotCalled(t, "CheckEscrow", mock.Anything, mock.Anything)
	o.AssertNotCalled(t, "CheckTiming", mock.Anything, mock.Anything)
}

func TestPipeline_CollaboratorFaults(t *testing.T) {
	t.Run("registry", func(t *testing.T) {
		deps := demoDeps()
		reg := &mockRegistry{}
		reg.On("Lookup", mock.Anything, registry.DemoInvoiceID).Return(nil, errors.New("db down"))
		deps.invoices = reg

		_, err := deps.pipeline().Run(context.Background(), validSubmission())
		assert.ErrorContains(t, err, "invoice stage")
	})

	t.Run("nullifier store", func(t *testing.T) {
		deps := demoDeps()
		deps.nullifiers = failingStore{}

		_, err := deps.pipeline().Run(context.Background(), validSubmission())
		assert.ErrorContains(t, err, "store unavailable")
	})

	t.Run("oracle", func(t *testing.T) {
		deps := demoDeps()
		o := &mockOracle{}
		o.On("CheckEscrow", mock.Anything, unlockedEscro).Return(model.EscrowStatus(""), errors.New("ledger down"))
		deps.oracle = o

		sub := validSubmission()
		sub.EscrowAccount = unlockedEscro
		_, err := deps.pipeline().Run(context.Background(), sub)
		assert.ErrorContains(t, err, "ledger down")
	})

	t.Run("unexpected oracle status", func(t *testing.T) {
		deps := demoDeps()
		o := &mockOracle{}
		o.On("CheckEscrow", mock.Anything, unlockedEscro).Return(model.EscrowStatus("frozen"), nil)
		deps.oracle = o

		sub := validSubmission()
		sub.EscrowAccount = unlockedEscro
		_, err := deps.pipeline().Run(context.Background(), sub)
		assert.Error(t, err)
	})
}

func TestPipeline_TracesEveryStage(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	t.Run("allow", func(t *testing.T) {
		recorder.Reset()
		_, err := demoDeps().pipeline().Run(context.Background(), validSubmission())
		require.NoError(t, err)

		names := endedSpanNames(recorder)
		assert.Equal(t, []string{
			"stage.invoice",
			"stage.scheme",
			"stage.proof_encoding",
			"stage.merkle_root",
			"stage.nullifier_format",
			"stage.nullifier_reservation",
			"stage.escrow",
			"stage.verification",
			"stage.timing",
			"Running proof pipeline",
		}, names)

		spans := recorder.Ended()
		root := spans[len(spans)-1]
		for _, sp := range spans[:len(spans)-1] {
			assert.Equal(t, root.SpanContext().SpanID(), sp.Parent().SpanID(), sp.Name())
		}
	})

	t.Run("stops at the failing stage", func(t *testing.T) {
		recorder.Reset()
		sub := validSubmission()
		sub.Proof = "not base64!"
		_, err := demoDeps().pipeline().Run(context.Background(), sub)
		require.NoError(t, err)

		assert.Equal(t, []string{
			"stage.invoice",
			"stage.scheme",
			"stage.proof_encoding",
			"Running proof pipeline",
		}, endedSpanNames(recorder))
	})

	t.Run("fault is recorded on the stage span", func(t *testing.T) {
		recorder.Reset()
		deps := demoDeps()
		deps.nullifiers = failingStore{}
		_, err := deps.pipeline().Run(context.Background(), validSubmission())
		require.Error(t, err)

		var stageSpan sdktrace.ReadOnlySpan
		for _, sp := range recorder.Ended() {
			if sp.Name() == "stage.nullifier_reservation" {
				stageSpan = sp
			}
		}
		require.NotNil(t, stageSpan)
		require.NotEmpty(t, stageSpan.Events())
		assert.Equal(t, "exception", stageSpan.Events()[0].Name)
	})
}

func endedSpanNames(recorder *tracetest.SpanRecorder) []string {
	var names []string
	for _, sp := range recorder.Ended() {
		names = append(names, sp.Name())
	}
	return names
}

func TestPipeline_MinNullifierLength(t *testing.T) {
	p := demoDeps().pipeline(WithMinNullifierLength(32))
	sub := validSubmission()
	sub.Nullifier = gofakeit.LetterN(24)

	outcome, err := p.Run(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalidNullifierFormat, outcome.Kind)
}

func TestPipeline_ConcurrentIdenticalNullifiers(t *testing.T) {
	const callers = 50
	p := demoDeps().pipeline()
	sub := validSubmission()

	var (
		wg       sync.WaitGroup
		accepted int32
		conflict int32
		start    = make(chan struct{})
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			outcome, err := p.Run(context.Background(), sub)
			assert.NoError(t, err)
			switch outcome.Kind {
			case OutcomeOk:
				atomic.AddInt32(&accepted, 1)
			case OutcomeNullifierAlreadyUsed:
				atomic.AddInt32(&conflict, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), accepted)
	assert.Equal(t, int32(callers-1), conflict)
}

func TestOutcomeKind_String(t *testing.T) {
	assert.Equal(t, "ok", OutcomeOk.String())
	assert.Equal(t, "nullifier_already_used", OutcomeNullifierAlreadyUsed.String())
	assert.Equal(t, "unknown", OutcomeKind(99).String())
	assert.False(t, Outcome{Kind: OutcomeOk}.Ok())
}
