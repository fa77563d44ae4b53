// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordRun verifies run outcomes land in the right result label
func TestRecordRun(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		result string
	}{
		{name: "success", err: nil, result: "success"},
		{name: "generic failure", err: errors.New("catalog unavailable"), result: "failure"},
		{name: "cancelled", err: context.Canceled, result: "cancelled"},
		{name: "wrapped deadline", err: fmt.Errorf("run: %w", context.DeadlineExceeded), result: "cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(RunsTotal.WithLabelValues(tt.result))
			RecordRun(2*time.Second, tt.err)
			after := testutil.ToFloat64(RunsTotal.WithLabelValues(tt.result))
			if after != before+1 {
				t.Errorf("runs_total{result=%q} = %v, want %v", tt.result, after, before+1)
			}
		})
	}
}

func TestRecordRun_LastSuccess(t *testing.T) {
	RecordRun(time.Second, nil)
	if ts := testutil.ToFloat64(RunLastSuccess); ts <= 0 {
		t.Errorf("last success timestamp = %v, want > 0", ts)
	}
}

func TestRecordRunSkipped(t *testing.T) {
	before := testutil.ToFloat64(RunsTotal.WithLabelValues("skipped"))
	RecordRunSkipped()
	if got := testutil.ToFloat64(RunsTotal.WithLabelValues("skipped")); got != before+1 {
		t.Errorf("skipped = %v, want %v", got, before+1)
	}
}

func TestTrackRunInProgress(t *testing.T) {
	TrackRunInProgress(true)
	if got := testutil.ToFloat64(RunInProgress); got != 1 {
		t.Errorf("in progress = %v, want 1", got)
	}
	TrackRunInProgress(false)
	if got := testutil.ToFloat64(RunInProgress); got != 0 {
		t.Errorf("in progress = %v, want 0", got)
	}
}

func TestRecordRow(t *testing.T) {
	tests := []struct {
		name   string
		kind   string
		dryRun bool
		mode   string
	}{
		{name: "top picks written", kind: "top_picks", dryRun: false, mode: "write"},
		{name: "because rows dry run", kind: "because_you_watched", dryRun: true, mode: "dry_run"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(RowsWritten.WithLabelValues(tt.kind, tt.mode))
			RecordRow(tt.kind, 12, tt.dryRun)
			after := testutil.ToFloat64(RowsWritten.WithLabelValues(tt.kind, tt.mode))
			if after != before+1 {
				t.Errorf("rows{kind=%q,mode=%q} = %v, want %v", tt.kind, tt.mode, after, before+1)
			}
		})
	}
}

func TestRecordVectorize(t *testing.T) {
	RecordVectorize(150*time.Millisecond, 420, 9001)
	if got := testutil.ToFloat64(CatalogItems); got != 420 {
		t.Errorf("catalog items = %v, want 420", got)
	}
	if got := testutil.ToFloat64(VocabularySize); got != 9001 {
		t.Errorf("vocabulary size = %v, want 9001", got)
	}
}

func TestRecordCFTraining(t *testing.T) {
	okBefore := testutil.ToFloat64(CFTrainingTotal.WithLabelValues("success"))
	failBefore := testutil.ToFloat64(CFTrainingTotal.WithLabelValues("failure"))

	RecordCFTraining(nil)
	RecordCFTraining(errors.New("singular matrix"))

	if got := testutil.ToFloat64(CFTrainingTotal.WithLabelValues("success")); got != okBefore+1 {
		t.Errorf("cf success = %v, want %v", got, okBefore+1)
	}
	if got := testutil.ToFloat64(CFTrainingTotal.WithLabelValues("failure")); got != failBefore+1 {
		t.Errorf("cf failure = %v, want %v", got, failBefore+1)
	}
}

func TestRecordUserAndCollectionWrite(t *testing.T) {
	before := testutil.ToFloat64(UsersProcessed.WithLabelValues("ranked"))
	RecordUser("ranked")
	if got := testutil.ToFloat64(UsersProcessed.WithLabelValues("ranked")); got != before+1 {
		t.Errorf("users ranked = %v, want %v", got, before+1)
	}

	before = testutil.ToFloat64(CollectionWrites.WithLabelValues("create"))
	RecordCollectionWrite("create")
	if got := testutil.ToFloat64(CollectionWrites.WithLabelValues("create")); got != before+1 {
		t.Errorf("collection creates = %v, want %v", got, before+1)
	}
}

// TestRecordDBQuery_ErrorTruncation verifies error labels are truncated at 50 chars
func TestRecordDBQuery_ErrorTruncation(t *testing.T) {
	long := errors.New(strings.Repeat("c", 100))
	RecordDBQuery("INSERT", "runs", time.Millisecond, long)

	label := strings.Repeat("c", 50)
	if got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("INSERT", "runs", label)); got < 1 {
		t.Errorf("truncated error label count = %v, want >= 1", got)
	}

	// Successful queries never touch the error counter
	RecordDBQuery("SELECT", "rows", time.Millisecond, nil)
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/status", "200"))
	RecordAPIRequest("GET", "/api/v1/status", "200", 25*time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/status", "200")); got != before+1 {
		t.Errorf("api requests = %v, want %v", got, before+1)
	}
}

// TestConcurrentMetricRecording tests thread safety of metric recording
func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	numGoroutines := 50
	operationsPerGoroutine := 20

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < operationsPerGoroutine; j++ {
				RecordUser("ranked")
				RecordRow("top_picks", j, false)
				RecordJellyfinRequest("items", time.Duration(j)*time.Millisecond, nil)
				TrackActiveRequest(true)
				TrackActiveRequest(false)
			}
		}()
	}

	wg.Wait()
}
