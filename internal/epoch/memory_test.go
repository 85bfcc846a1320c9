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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySource_Window(t *testing.T) {
	ctx := context.Background()
	src := NewMemorySource(2)

	roots, err := src.GetActiveEpochRoots(ctx)
	require.NoError(t, err)
	assert.Empty(t, roots)

	n, err := src.InsertEpochRoots(ctx, 1, []string{"R1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, _ = src.InsertEpochRoots(ctx, 2, []string{"r2"})
	_, _ = src.InsertEpochRoots(ctx, 3, []string{"r3", "r2"})

	n, err = src.InsertEpochRoots(ctx, 3, []string{"r3"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	roots, err = src.GetActiveEpochRoots(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r2", "r3"}, roots)

	latest, err := src.GetLatestEpoch(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), latest)
}

func TestRefresher_OpenSetStaysOpenOnEmptySource(t *testing.T) {
	ctx := context.Background()
	set := NewOpenSet()
	src := NewMemorySource(2)
	r := NewRefresher(set, src, 0)

	require.NoError(t, r.Refresh(ctx))
	assert.True(t, set.Open())
	assert.True(t, set.IsAccepted("anything"))

	_, err := src.InsertEpochRoots(ctx, 1, []string{"AA"})
	require.NoError(t, err)
	require.NoError(t, r.Refresh(ctx))
	assert.False(t, set.Open())
	assert.True(t, set.IsAccepted("aa"))
	assert.False(t, set.IsAccepted("bb"))
}
