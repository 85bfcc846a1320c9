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
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/config"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/database"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/epoch"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/notification"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/nullifier"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/oracle"
	pg_listener "github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/pg-listener"
	redis_db "github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/redis-db"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/registry"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/verifier"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

var ErrInvalidEpochRoot = model.ErrInvalidEpochRoot

// EpochRootStore is where published roots live: the database when one is
// configured, process memory otherwise.
type EpochRootStore interface {
	epoch.RootSource
	InsertEpochRoots(ctx context.Context, epoch int64, roots []string) (int64, error)
	GetLatestEpoch(ctx context.Context) (int64, error)
}

// ShadowPay wires the gate to its backends.
type ShadowPay struct {
	cnf        *config.Configuration
	gate       *Gate
	invoices   InvoiceStore
	roots      *epoch.Set
	rootStore  EpochRootStore
	refresher  *epoch.Refresher
	listener   *pg_listener.DBListener
	datasource database.IDataSource
	redis      *redis_db.Redis
	queue      *Queue
	notifier   *notification.Notifier
}

// Option overrides a backend chosen from configuration.
type Option func(*ShadowPay)

// WithDatasource uses ds for invoices, nullifiers and epoch roots instead of
// connecting to configuration.DataSource.
func WithDatasource(ds database.IDataSource) Option {
	return func(s *ShadowPay) { s.datasource = ds }
}

// NewShadowPay builds a gate from configuration. Backends fall back to
// in-memory demo implementations when their service is not configured:
// the demo invoice registry, a memory nullifier store, an accept-any root
// set, the structural verifier and the static escrow oracle.
func NewShadowPay(cnf *config.Configuration, opts ...Option) (*ShadowPay, error) {
	s := &ShadowPay{cnf: cnf, notifier: notification.New(cnf)}
	for _, opt := range opts {
		opt(s)
	}

	if s.datasource == nil && cnf.DataSource.Dns != "" {
		ds, err := database.NewDataSource(cnf)
		if err != nil {
			return nil, fmt.Errorf("error getting datasource: %w", err)
		}
		s.datasource = ds
	}

	if cnf.Redis.Dns != "" {
		rdb, err := redis_db.NewRedisClient([]string{cnf.Redis.Dns}, cnf.Redis.SkipTLSVerify)
		if err != nil {
			return nil, fmt.Errorf("error connecting to redis: %w", err)
		}
		s.redis = rdb

		q, err := NewQueue(cnf)
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("error creating proof event queue: %w", err)
		}
		s.queue = q
	}

	s.invoices = s.newInvoiceStore()
	s.roots = epoch.NewOpenSet()
	if s.datasource != nil {
		s.rootStore = s.datasource
	} else {
		s.rootStore = epoch.NewMemorySource(cnf.Epoch.Window)
	}
	s.refresher = epoch.NewRefresher(s.roots, s.rootStore, time.Duration(cnf.Epoch.RefreshIntervalSec)*time.Second)

	pipeline := NewPipeline(s.invoices, s.roots, s.newNullifierStore(), s.newVerifier(), s.newOracle(),
		WithMinNullifierLength(cnf.Gate.MinNullifierLength))

	gateOptions := []GateOption{WithFaultNotifier(s.notifier.NotifyError)}
	if s.queue != nil {
		gateOptions = append(gateOptions, WithEventPublisher(s.queue))
	}
	s.gate = NewGate(pipeline, GateOptions{
		DefaultScheme:    cnf.Gate.DefaultScheme,
		ProofType:        cnf.Gate.ProofType,
		ExampleInvoiceID: cnf.Gate.ExampleInvoiceID,
	}, gateOptions...)

	return s, nil
}

func (s *ShadowPay) newInvoiceStore() InvoiceStore {
	if s.datasource == nil {
		logrus.Warn("no data source configured, serving the in-memory demo invoice registry")
		return registry.NewDemo()
	}
	if s.redis != nil {
		return registry.NewCached(s.datasource, s.redis.Client(), registry.DefaultCacheTTL)
	}
	return registry.NewCached(s.datasource, nil, registry.DefaultCacheTTL)
}

func (s *ShadowPay) newNullifierStore() NullifierStore {
	switch {
	case s.redis != nil:
		return nullifier.NewRedisStore(s.redis.Client(), nullifier.DefaultKeyPrefix)
	case s.datasource != nil:
		return database.NewNullifierStore(s.datasource)
	default:
		logrus.Warn("no redis or data source configured, nullifiers are only unique within this process")
		return nullifier.NewMemoryStore()
	}
}

func (s *ShadowPay) newVerifier() ProofVerifier {
	if s.cnf.Verifier.Url == "" {
		logrus.Warn("no verifier url configured, using the structural demo verifier")
		return verifier.Structural{}
	}
	return verifier.NewRemote(s.cnf.Verifier.Url, time.Duration(s.cnf.Verifier.TimeoutMs)*time.Millisecond)
}

func (s *ShadowPay) newOracle() EscrowOracle {
	if s.cnf.Ledger.Url == "" {
		return oracle.NewStatic(s.cnf.Ledger.LockedEscrowAccounts...)
	}
	return oracle.NewHTTP(s.cnf.Ledger.Url, time.Duration(s.cnf.Ledger.TimeoutMs)*time.Millisecond)
}

// Gate returns the admission gate.
func (s *ShadowPay) Gate() *Gate {
	return s.gate
}

// Config returns the configuration the instance was built from.
func (s *ShadowPay) Config() *config.Configuration {
	return s.cnf
}

// Start loads the epoch root set and keeps it fresh. The set stays open
// (accepting any well-formed root) until roots have been published.
func (s *ShadowPay) Start(ctx context.Context) error {
	if err := s.refresher.Start(ctx); err != nil {
		return err
	}
	return s.listenForEpochRoots(ctx)
}

// listenForEpochRoots refreshes the root set as soon as another instance
// publishes roots to a shared postgres database.
func (s *ShadowPay) listenForEpochRoots(ctx context.Context) error {
	driver, source, err := database.ParseDNS(s.cnf.DataSource.Dns)
	if err != nil || driver != database.DriverPostgres {
		return nil
	}

	s.listener = pg_listener.NewDBListener(pg_listener.ListenerConfig{
		PgConnStr: source,
		Channel:   database.EpochRootsChannel,
	}, pg_listener.HandlerFunc(func(ctx context.Context, _, payload string) error {
		logrus.WithField("epoch", payload).Debug("epoch roots changed, refreshing")
		return s.refresher.Refresh(ctx)
	}))
	if err := s.listener.Start(ctx); err != nil {
		// Polling still picks up new roots; only the fast path is lost.
		logrus.Warnf("could not listen for epoch root notifications: %v", err)
		s.listener = nil
	}
	return nil
}

// Close stops background work and releases connections.
func (s *ShadowPay) Close() error {
	s.refresher.Stop()
	var errs []error
	if s.listener != nil {
		errs = append(errs, s.listener.Close())
	}
	if s.queue != nil {
		errs = append(errs, s.queue.Close())
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.datasource != nil {
		errs = append(errs, s.datasource.Close())
	}
	return errors.Join(errs...)
}

// GetInvoice returns an invoice for public display.
func (s *ShadowPay) GetInvoice(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	return s.invoices.Lookup(ctx, invoiceID)
}

// CreateInvoice registers a new invoice, generating an id when none is set.
func (s *ShadowPay) CreateInvoice(ctx context.Context, invoice model.Invoice) (*model.Invoice, error) {
	if strings.TrimSpace(invoice.InvoiceID) == "" {
		invoice.InvoiceID = "inv_" + uuid.NewString()
	}
	return s.invoices.CreateInvoice(ctx, invoice)
}

func (s *ShadowPay) DeactivateInvoice(ctx context.Context, invoiceID string) error {
	return s.invoices.DeactivateInvoice(ctx, invoiceID)
}

// PublishEpochRoots stores roots for epochNumber and reloads the live set.
// A zero epochNumber publishes the roots as the next epoch. It returns the
// epoch used.
func (s *ShadowPay) PublishEpochRoots(ctx context.Context, epochNumber int64, roots []string) (int64, error) {
	if len(roots) == 0 {
		return 0, ErrInvalidEpochRoot
	}
	for _, r := range roots {
		if !isHex32(strings.TrimSpace(r)) {
			return 0, ErrInvalidEpochRoot
		}
	}

	if epochNumber == 0 {
		latest, err := s.rootStore.GetLatestEpoch(ctx)
		if err != nil {
			return 0, err
		}
		epochNumber = latest + 1
	}

	if _, err := s.rootStore.InsertEpochRoots(ctx, epochNumber, roots); err != nil {
		return 0, err
	}
	if err := s.refresher.Refresh(ctx); err != nil {
		return 0, err
	}
	logrus.WithFields(logrus.Fields{"epoch": epochNumber, "roots": len(roots)}).Info("published epoch roots")
	return epochNumber, nil
}

// AcceptedRoots reports the live root set size and whether the set still
// accepts any root.
func (s *ShadowPay) AcceptedRoots() (size int, open bool) {
	return s.roots.Len(), s.roots.Open()
}
