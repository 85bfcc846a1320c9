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

// Package epoch holds the set of merkle roots currently accepted by the gate.
package epoch

import (
	"strings"
	"sync/atomic"
)

type snapshot struct {
	roots map[string]struct{}
	open  bool
}

// Set is a copy-on-write root set. Readers load one immutable snapshot, so a
// concurrent Swap is observed either entirely or not at all.
type Set struct {
	current atomic.Pointer[snapshot]
}

// NewSet returns an empty set that accepts nothing until roots are swapped in.
func NewSet(roots ...string) *Set {
	s := &Set{}
	s.Swap(roots)
	return s
}

// NewOpenSet returns a set that accepts any root until the first Swap. It
// backs deployments that have no epoch publisher.
func NewOpenSet() *Set {
	s := &Set{}
	s.current.Store(&snapshot{roots: map[string]struct{}{}, open: true})
	return s
}

// IsAccepted reports whether root is part of the current epoch window.
func (s *Set) IsAccepted(root string) bool {
	snap := s.current.Load()
	if snap.open {
		return true
	}
	_, ok := snap.roots[normalize(root)]
	return ok
}

// Swap replaces the whole set in one step.
func (s *Set) Swap(roots []string) {
	next := &snapshot{roots: make(map[string]struct{}, len(roots))}
	for _, r := range roots {
		if r = normalize(r); r != "" {
			next.roots[r] = struct{}{}
		}
	}
	s.current.Store(next)
}

// Len returns the size of the current snapshot.
func (s *Set) Len() int {
	return len(s.current.Load().roots)
}

// Open reports whether the set still accepts any root.
func (s *Set) Open() bool {
	return s.current.Load().open
}

func normalize(root string) string {
	return strings.ToLower(strings.TrimSpace(root))
}
