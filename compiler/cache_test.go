/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package compiler

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestAnalysisCacheGetOrLoad(t *testing.T) {
	cache := newAnalysisCache()

	var loadCount atomic.Int32
	loader := func() (*analysis, error) {
		loadCount.Add(1)
		return &analysis{Output: []byte("out")}, nil
	}

	a1, err := cache.GetOrLoad("a.ts", "v1", loader)
	if err != nil {
		t.Fatalf("GetOrLoad failed: %v", err)
	}
	a2, err := cache.GetOrLoad("a.ts", "v1", loader)
	if err != nil {
		t.Fatalf("GetOrLoad failed: %v", err)
	}

	if loadCount.Load() != 1 {
		t.Errorf("Expected 1 load, got %d", loadCount.Load())
	}
	if a1 != a2 {
		t.Error("Expected the same cached analysis")
	}
}

func TestAnalysisCacheNewVersionReloads(t *testing.T) {
	cache := newAnalysisCache()

	var loadCount atomic.Int32
	loader := func() (*analysis, error) {
		loadCount.Add(1)
		return &analysis{}, nil
	}

	if _, err := cache.GetOrLoad("a.ts", "v1", loader); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.GetOrLoad("a.ts", "v2", loader); err != nil {
		t.Fatal(err)
	}

	if loadCount.Load() != 2 {
		t.Errorf("Expected 2 loads for 2 versions, got %d", loadCount.Load())
	}
}

func TestAnalysisCacheLoaderError(t *testing.T) {
	cache := newAnalysisCache()
	wantErr := errors.New("parse failed")

	_, err := cache.GetOrLoad("a.ts", "v1", func() (*analysis, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected loader error, got %v", err)
	}

	// Errors are not cached past invalidation.
	cache.Invalidate("a.ts")
	a, err := cache.GetOrLoad("a.ts", "v1", func() (*analysis, error) {
		return &analysis{}, nil
	})
	if err != nil || a == nil {
		t.Fatalf("Expected successful reload after invalidation, got %v", err)
	}
}

func TestAnalysisCacheInvalidate(t *testing.T) {
	cache := newAnalysisCache()

	var loadCount atomic.Int32
	loader := func() (*analysis, error) {
		loadCount.Add(1)
		return &analysis{}, nil
	}

	if _, err := cache.GetOrLoad("a.ts", "v1", loader); err != nil {
		t.Fatal(err)
	}
	cache.Invalidate("a.ts")
	if _, err := cache.GetOrLoad("a.ts", "v1", loader); err != nil {
		t.Fatal(err)
	}

	if loadCount.Load() != 2 {
		t.Errorf("Expected reload after invalidation, got %d loads", loadCount.Load())
	}
}

func TestAnalysisCacheConcurrentSingleFlight(t *testing.T) {
	cache := newAnalysisCache()

	var loadCount atomic.Int32
	loader := func() (*analysis, error) {
		loadCount.Add(1)
		return &analysis{}, nil
	}

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.GetOrLoad("a.ts", "v1", loader); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if loadCount.Load() != 1 {
		t.Errorf("Expected 1 load across concurrent callers, got %d", loadCount.Load())
	}
}
