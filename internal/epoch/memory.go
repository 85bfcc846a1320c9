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

package epoch

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemorySource keeps published roots in process memory and serves the most
// recent window epochs. It pairs with a Refresher when no database is
// configured.
type MemorySource struct {
	mu     sync.RWMutex
	window int
	epochs map[int64]map[string]struct{}
}

func NewMemorySource(window int) *MemorySource {
	if window <= 0 {
		window = 2
	}
	return &MemorySource{window: window, epochs: make(map[int64]map[string]struct{})}
}

// InsertEpochRoots records roots for epoch and returns how many were new.
func (m *MemorySource) InsertEpochRoots(_ context.Context, epoch int64, roots []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.epochs[epoch]
	if !ok {
		set = make(map[string]struct{}, len(roots))
		m.epochs[epoch] = set
	}
	var inserted int64
	for _, root := range roots {
		root = strings.ToLower(strings.TrimSpace(root))
		if _, exists := set[root]; exists || root == "" {
			continue
		}
		set[root] = struct{}{}
		inserted++
	}
	return inserted, nil
}

func (m *MemorySource) GetActiveEpochRoots(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	epochs := make([]int64, 0, len(m.epochs))
	for e := range m.epochs {
		epochs = append(epochs, e)
	}
	if len(epochs) == 0 {
		return []string{}, nil
	}
	sort.Slice(epochs, func(i, j int) bool { return epochs[i] > epochs[j] })

	floor := epochs[0] - int64(m.window)
	seen := map[string]struct{}{}
	roots := []string{}
	for _, e := range epochs {
		if e <= floor {
			break
		}
		for root := range m.epochs[e] {
			if _, dup := seen[root]; !dup {
				seen[root] = struct{}{}
				roots = append(roots, root)
			}
		}
	}
	return roots, nil
}

func (m *MemorySource) GetLatestEpoch(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest int64
	for e := range m.epochs {
		if e > latest {
			latest = e
		}
	}
	return latest, nil
}
