// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package supervisor

import (
	"context"
	"fmt"
	"sync/atomic"
)

// stubService stands in for the recommend and HTTP services. It fails its
// first failFirst runs, then blocks until canceled.
type stubService struct {
	name      string
	failFirst int32
	starts    atomic.Int32
	stops     atomic.Int32
}

func newStubService(name string, failFirst int) *stubService {
	return &stubService{name: name, failFirst: int32(failFirst)}
}

func (s *stubService) Serve(ctx context.Context) error {
	n := s.starts.Add(1)
	defer s.stops.Add(1)

	if n <= s.failFirst {
		return fmt.Errorf("%s: run %d failed", s.name, n)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *stubService) String() string { return s.name }
