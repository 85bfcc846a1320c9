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

// Package nullifier implements one-time-use reservation of proof nullifiers.
package nullifier

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultKeyPrefix = "shadowpay:nullifier:"
	reservedValue    = "1"
)

var ErrEmptyNullifier = errors.New("nullifier cannot be empty")

// RedisStore reserves nullifiers with SET NX and no expiry, so the first
// writer wins across every gate instance sharing the redis deployment.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Reserve returns true when this call created the reservation and false when
// the nullifier was already reserved.
func (s *RedisStore) Reserve(ctx context.Context, nullifier string) (bool, error) {
	if nullifier == "" {
		return false, ErrEmptyNullifier
	}
	return s.client.SetNX(ctx, s.key(nullifier), reservedValue, 0).Result()
}

// IsReserved is a read-only check used by tooling. The gate itself only ever
// calls Reserve.
func (s *RedisStore) IsReserved(ctx context.Context, nullifier string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(nullifier)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) key(nullifier string) string {
	return s.prefix + nullifier
}

// MemoryStore keeps reservations in process memory. It is only correct for a
// single gate instance.
type MemoryStore struct {
	mu         sync.Mutex
	nullifiers map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nullifiers: make(map[string]struct{})}
}

func (s *MemoryStore) Reserve(_ context.Context, nullifier string) (bool, error) {
	if nullifier == "" {
		return false, ErrEmptyNullifier
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, used := s.nullifiers[nullifier]; used {
		return false, nil
	}
	s.nullifiers[nullifier] = struct{}{}
	return true, nil
}

func (s *MemoryStore) IsReserved(_ context.Context, nullifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, used := s.nullifiers[nullifier]
	return used, nil
}

// Len returns the number of reservations held.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nullifiers)
}
