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

package registry

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

const (
	cacheSize       = 128000
	cacheKeyPrefix  = "shadowpay:invoice:"
	DefaultCacheTTL = 30 * time.Second
)

// Cached is a read-through cache in front of a Store. Only successful
// lookups are cached, so an unknown invoice created later becomes visible
// immediately. Deactivation evicts the entry; other gate instances see the
// change once their local entry expires.
type Cached struct {
	store Store
	cache *cache.Cache
	ttl   time.Duration
}

// NewCached wraps store. client may be nil, in which case only the local
// TinyLFU tier is used.
func NewCached(store Store, client redis.UniversalClient, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	opts := &cache.Options{
		LocalCache: cache.NewTinyLFU(cacheSize, ttl),
	}
	if client != nil {
		opts.Redis = client
	}
	return &Cached{store: store, cache: cache.New(opts), ttl: ttl}
}

func (c *Cached) Lookup(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	var invoice model.Invoice
	err := c.cache.Once(&cache.Item{
		Ctx:   ctx,
		Key:   cacheKey(invoiceID),
		Value: &invoice,
		TTL:   c.ttl,
		Do: func(*cache.Item) (interface{}, error) {
			return c.store.Lookup(ctx, invoiceID)
		},
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (c *Cached) CreateInvoice(ctx context.Context, invoice model.Invoice) (*model.Invoice, error) {
	created, err := c.store.CreateInvoice(ctx, invoice)
	if err != nil {
		return nil, err
	}
	// The invoice exists at this point; a failed eviction only delays
	// visibility until the entry expires.
	if err := c.evict(ctx, created.InvoiceID); err != nil {
		logrus.WithField("invoice_id", created.InvoiceID).Warnf("failed to evict cached invoice: %v", err)
	}
	return created, nil
}

func (c *Cached) DeactivateInvoice(ctx context.Context, invoiceID string) error {
	if err := c.store.DeactivateInvoice(ctx, invoiceID); err != nil {
		return err
	}
	return c.evict(ctx, invoiceID)
}

// evict drops the cached entry. An entry that was never cached is not an
// error.
func (c *Cached) evict(ctx context.Context, invoiceID string) error {
	err := c.cache.Delete(ctx, cacheKey(invoiceID))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}

func cacheKey(invoiceID string) string {
	return cacheKeyPrefix + invoiceID
}
