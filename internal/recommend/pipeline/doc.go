// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

/*
Package pipeline runs a recommendation pass over the whole library.

A run loads the catalog, fits TF-IDF vectors, and then walks every selected
user:

 1. the newest interactions are folded into a decayed profile
 2. unseen items are ranked against the profile ("Top picks for ...")
 3. each recent finished item anchors an item-to-item row ("Because you
    watched ...")
 4. every non-empty row is handed to the configured ResultConsumers

When collaborative filtering is enabled an ALS model is trained over all
users first, and its scores are blended into the top picks ranking. A
training failure only disables the blend for that run.

# Concurrency

Only one run executes at a time; a second call to Run returns
ErrRunInProgress immediately. Users are processed by up to
Config.Concurrency goroutines. A failure for one user is logged and
counted in RunSummary.Failures; only catalog or user listing errors and
context cancellation abort a run.

# Usage

	engine, err := pipeline.NewEngine(cfg, logger, source, source, writer, store)
	if err != nil {
	    return err
	}
	summary, err := engine.Run(ctx)
*/
package pipeline
