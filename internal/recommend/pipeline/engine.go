// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/localrecs/internal/logging"
	"github.com/tomtom215/localrecs/internal/metrics"
	"github.com/tomtom215/localrecs/internal/recommend"
	"github.com/tomtom215/localrecs/internal/recommend/algorithms"
	"github.com/tomtom215/localrecs/internal/recommend/vectorize"
)

// ErrRunInProgress is returned by Run while another run is active.
var ErrRunInProgress = errors.New("recommendation run already in progress")

// dryRunLogItems is how many scored items a dry run logs per row.
const dryRunLogItems = 10

// RunSummary describes a finished run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Items is the number of catalog items loaded.
	Items int `json:"items"`

	// Vocabulary is the number of distinct tokens fitted.
	Vocabulary int `json:"vocabulary"`

	// Users is the number of users selected for the run.
	Users int `json:"users"`

	// UsersWithInteractions counts users that had any history.
	UsersWithInteractions int `json:"users_with_interactions"`

	TopPicksRows int `json:"top_picks_rows"`
	BecauseRows  int `json:"because_rows"`

	// Failures counts users whose processing failed.
	Failures int `json:"failures"`

	// CFBlended is true when collaborative scores were mixed in.
	CFBlended bool `json:"cf_blended"`

	DryRun bool `json:"dry_run"`

	// Error is set when the run aborted.
	Error string `json:"error,omitempty"`
}

// Duration returns how long the run took.
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Status is a point-in-time view of the engine.
type Status struct {
	Running    bool        `json:"running"`
	RunID      string      `json:"run_id,omitempty"`
	StartedAt  time.Time   `json:"started_at,omitempty"`
	Progress   float64     `json:"progress"`
	UsersDone  int         `json:"users_done"`
	UsersTotal int         `json:"users_total"`
	LastRun    *RunSummary `json:"last_run,omitempty"`
	LastError  string      `json:"last_error,omitempty"`
}

// Engine orchestrates recommendation runs.
type Engine struct {
	cfg          *recommend.Config
	logger       zerolog.Logger
	catalog      CatalogSource
	interactions InteractionSource
	consumer     MultiConsumer
	recorders    []RunRecorder
	filter       *UserFilter

	now      func() time.Time
	newRunID func() string

	// runMu guards against concurrent runs.
	runMu sync.Mutex

	statusMu sync.RWMutex
	status   Status
}

// NewEngine creates an engine. cfg is cloned; consumers implementing
// RunRecorder also receive the run summary.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEngine(
	cfg *recommend.Config,
	logger zerolog.Logger,
	catalog CatalogSource,
	interactions InteractionSource,
	consumers ...ResultConsumer,
) (*Engine, error) {
	if cfg == nil {
		cfg = recommend.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if catalog == nil || interactions == nil {
		return nil, errors.New("catalog and interaction sources are required")
	}

	filter, err := NewUserFilter(cfg.UserFilter)
	if err != nil {
		return nil, err
	}

	var recorders []RunRecorder
	for _, c := range consumers {
		if r, ok := c.(RunRecorder); ok {
			recorders = append(recorders, r)
		}
	}

	return &Engine{
		cfg:          cfg.Clone(),
		logger:       logger.With().Str("component", "pipeline").Logger(),
		catalog:      catalog,
		interactions: interactions,
		consumer:     MultiConsumer(consumers),
		recorders:    recorders,
		filter:       filter,
		now:          time.Now,
		newRunID:     func() string { return uuid.New().String() },
	}, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *recommend.Config {
	return e.cfg.Clone()
}

// Status returns the current engine status.
func (e *Engine) Status() Status {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	s := e.status
	if s.LastRun != nil {
		last := *s.LastRun
		s.LastRun = &last
	}
	return s
}

// Run executes one recommendation pass. The summary is returned even when
// the run fails.
func (e *Engine) Run(ctx context.Context) (*RunSummary, error) {
	if !e.runMu.TryLock() {
		metrics.RecordRunSkipped()
		return nil, ErrRunInProgress
	}
	defer e.runMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RunTimeout)
	defer cancel()

	runID := e.newRunID()
	ctx = logging.ContextWithRunID(ctx, runID)
	ctx = logging.ContextWithLogger(ctx, e.logger)
	logger := logging.CtxWith(ctx).Logger()

	summary := &RunSummary{
		RunID:     runID,
		StartedAt: e.now().UTC(),
		DryRun:    e.cfg.DryRun,
	}
	e.beginStatus(summary)
	metrics.TrackRunInProgress(true)

	logger.Info().Bool("dry_run", e.cfg.DryRun).Msg("Recommendation run started")
	start := time.Now()

	err := e.run(ctx, &logger, summary)

	summary.FinishedAt = e.now().UTC()
	if err != nil {
		summary.Error = err.Error()
	}
	metrics.TrackRunInProgress(false)
	metrics.RecordRun(time.Since(start), err)
	e.finishStatus(summary, err)
	e.recordRun(context.WithoutCancel(ctx), &logger, summary)

	event := logger.Info()
	if err != nil {
		event = logger.Error().Err(err)
	}
	event.
		Int("items", summary.Items).
		Int("vocabulary", summary.Vocabulary).
		Int("users", summary.Users).
		Int("users_with_interactions", summary.UsersWithInteractions).
		Int("top_picks_rows", summary.TopPicksRows).
		Int("because_rows", summary.BecauseRows).
		Int("failures", summary.Failures).
		Dur("duration", summary.Duration()).
		Msg("Recommendation run finished")

	return summary, err
}

// runState is the fitted data shared by all users in one run.
type runState struct {
	catalog []recommend.CatalogItem
	model   *vectorize.Model
	titles  map[string]string
	weights recommend.SignalWeights
	now     time.Time

	cf       *algorithms.ALS
	history  map[string][]recommend.Interaction
	fetchErr map[string]error
}

// userResult is what one user contributed to the summary.
type userResult struct {
	hadHistory   bool
	topPicksRows int
	becauseRows  int
}

func (e *Engine) run(ctx context.Context, logger *zerolog.Logger, summary *RunSummary) error {
	catalog, err := e.catalog.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	summary.Items = len(catalog)
	if len(catalog) == 0 {
		logger.Warn().Msg("No catalog items found, nothing to recommend")
		return nil
	}

	fitStart := time.Now()
	docs := make([]vectorize.Document, len(catalog))
	titles := make(map[string]string, len(catalog))
	for i := range catalog {
		docs[i] = vectorize.Document{ItemID: catalog[i].ID, Tokens: catalog[i].Tokens()}
		titles[catalog[i].ID] = catalog[i].Name
	}
	model := vectorize.FitTransform(docs)
	summary.Vocabulary = model.Vocabulary().Len()
	metrics.RecordVectorize(time.Since(fitStart), len(catalog), summary.Vocabulary)

	logger.Info().
		Int("items", len(catalog)).
		Int("vocabulary", summary.Vocabulary).
		Int("vectors", len(model.Vectors())).
		Msg("Catalog vectorized")

	if summary.Vocabulary == 0 {
		logger.Warn().Msg("Catalog has no tokens, nothing to recommend")
		return nil
	}

	users, err := e.interactions.Users(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	users = e.selectUsers(logger, users)
	summary.Users = len(users)
	e.setTotal(len(users))
	if len(users) == 0 {
		logger.Warn().Msg("No users selected, nothing to recommend")
		return nil
	}

	state := &runState{
		catalog: catalog,
		model:   model,
		titles:  titles,
		weights: e.cfg.SignalWeights(),
		now:     e.now().UTC(),
	}

	if e.cfg.CF.Enabled {
		if err := e.trainCF(ctx, logger, users, state); err != nil {
			return err
		}
		summary.CFBlended = state.cf != nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)

	for _, user := range users {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, err := e.processUser(gctx, state, user)

			mu.Lock()
			defer mu.Unlock()
			if res.hadHistory {
				summary.UsersWithInteractions++
			}
			summary.TopPicksRows += res.topPicksRows
			summary.BecauseRows += res.becauseRows
			e.advance()

			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				summary.Failures++
				metrics.RecordUser("failure")
				logger.Error().Err(err).
					Str("user_id", user.ID).
					Str("user", user.Name).
					Msg("Failed to generate recommendations for user")
				return nil
			}
			if res.hadHistory {
				metrics.RecordUser("success")
			} else {
				metrics.RecordUser("no_history")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// selectUsers applies the CEL user filter. Users the filter cannot evaluate
// are skipped.
func (e *Engine) selectUsers(logger *zerolog.Logger, users []recommend.User) []recommend.User {
	if e.filter.String() == "" {
		return users
	}
	selected := make([]recommend.User, 0, len(users))
	for _, u := range users {
		ok, err := e.filter.Match(u)
		if err != nil {
			logger.Warn().Err(err).Str("user", u.Name).Msg("User filter failed, skipping user")
			continue
		}
		if ok {
			selected = append(selected, u)
		}
	}
	logger.Debug().
		Str("filter", e.filter.String()).
		Int("total", len(users)).
		Int("selected", len(selected)).
		Msg("User filter applied")
	return selected
}

// trainCF prefetches every user's history and trains the ALS model on it.
// Only cancellation is returned; any other failure leaves state.cf nil.
func (e *Engine) trainCF(ctx context.Context, logger *zerolog.Logger, users []recommend.User, state *runState) error {
	state.history = make(map[string][]recommend.Interaction, len(users))
	state.fetchErr = make(map[string]error)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for _, user := range users {
		g.Go(func() error {
			history, err := e.interactions.Interactions(gctx, user, state.catalog)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				state.fetchErr[user.ID] = err
				return nil
			}
			state.history[user.ID] = history
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var all []recommend.Interaction
	for _, user := range users {
		all = append(all, state.history[user.ID]...)
	}

	als := algorithms.NewALS(algorithms.ALSConfigFrom(e.cfg.CF))
	err := als.Train(ctx, all, state.weights)
	metrics.RecordCFTraining(err)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.Warn().Err(err).Msg("Collaborative filtering training failed, using content scores only")
		return nil
	}

	state.cf = als
	logger.Info().
		Int("interactions", len(all)).
		Int("cf_users", als.NumUsers()).
		Int("cf_items", als.NumItems()).
		Dur("train_time", als.TrainDuration()).
		Msg("Collaborative filtering model trained")
	return nil
}

func (e *Engine) userHistory(ctx context.Context, state *runState, user recommend.User) ([]recommend.Interaction, error) {
	if state.history != nil {
		if err, ok := state.fetchErr[user.ID]; ok {
			return nil, err
		}
		return state.history[user.ID], nil
	}
	return e.interactions.Interactions(ctx, user, state.catalog)
}

func (e *Engine) processUser(ctx context.Context, state *runState, user recommend.User) (userResult, error) {
	var res userResult
	logger := logging.CtxWith(ctx).Str("user", user.Name).Logger()

	history, err := e.userHistory(ctx, state, user)
	if err != nil {
		return res, fmt.Errorf("load interactions: %w", err)
	}
	recent := history[:min(len(history), e.cfg.HistoryLimit())]
	if len(recent) == 0 {
		logger.Debug().Msg("User has no interactions, skipping")
		return res, nil
	}
	res.hadHistory = true

	vectors := state.model.VectorsByID()
	profile := algorithms.BuildProfile(recent, vectors, state.weights, state.now)
	exclude := make(map[string]struct{}, len(recent))
	for i := range recent {
		exclude[recent[i].ItemID] = struct{}{}
	}
	logger.Debug().
		Int("interactions", len(recent)).
		Int("profile_terms", len(profile)).
		Msg("Profile built")

	top, err := e.topPicks(ctx, &logger, state, user, profile, exclude)
	if err != nil {
		return res, err
	}

	var errs []error
	if e.cfg.CreateTopPicksRow && len(top) > 0 {
		row := recommend.Row{
			User:  user,
			Kind:  recommend.RowTopPicks,
			Label: recommend.TopPicksLabel(user.Name),
			Items: top,
		}
		if err := e.emit(ctx, &logger, state, &row); err != nil {
			errs = append(errs, err)
		} else {
			res.topPicksRows++
		}
	}

	if e.cfg.CreateBecauseRows {
		for _, anchor := range finishedAnchors(recent, e.cfg.BecauseRowsPerUser) {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			vec, ok := state.model.Vector(anchor)
			if !ok {
				logger.Debug().Str("anchor", anchor).Msg("Anchor item has no vector, skipping")
				continue
			}
			neighbors := algorithms.NearestNeighbors(
				vectorize.ItemVector{ItemID: anchor, Vector: vec},
				state.model.Vectors(),
				exclude,
				e.cfg.RowLimit(),
				e.cfg.MinimumScoreThreshold,
			)
			if len(neighbors) == 0 {
				continue
			}
			row := recommend.Row{
				User:     user,
				Kind:     recommend.RowBecauseYouWatched,
				AnchorID: anchor,
				Label:    recommend.BecauseYouWatchedLabel(state.titles[anchor]),
				Items:    neighbors,
			}
			if err := e.emit(ctx, &logger, state, &row); err != nil {
				errs = append(errs, err)
			} else {
				res.becauseRows++
			}
		}
	}

	return res, errors.Join(errs...)
}

// topPicks ranks the catalog against the profile. With a trained CF model
// every content candidate is re-scored by the blend before truncation.
func (e *Engine) topPicks(
	ctx context.Context,
	logger *zerolog.Logger,
	state *runState,
	user recommend.User,
	profile vectorize.SparseVector,
	exclude map[string]struct{},
) ([]recommend.ScoredItem, error) {
	candidates := state.model.Vectors()
	limit := e.cfg.RowLimit()
	if state.cf == nil {
		return algorithms.Rank(profile, candidates, exclude, e.cfg.MinimumScoreThreshold, limit), nil
	}

	pool := algorithms.Rank(profile, candidates, exclude, e.cfg.MinimumScoreThreshold, len(candidates))
	ids := make([]string, len(pool))
	for i, it := range pool {
		ids[i] = it.ItemID
	}
	cf, err := state.cf.Predict(ctx, user.ID, ids)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Debug().Err(err).Msg("CF prediction failed, using content scores")
		return pool[:min(len(pool), limit)], nil
	}
	return algorithms.Blend(pool, cf, e.cfg.CF.BlendWeight, limit), nil
}

func (e *Engine) emit(ctx context.Context, logger *zerolog.Logger, state *runState, row *recommend.Row) error {
	row.RunID = logging.RunIDFromContext(ctx)
	row.DryRun = e.cfg.DryRun
	row.GeneratedAt = state.now
	if row.DryRun {
		logger.Debug().
			Str("kind", row.Kind.String()).
			Str("label", row.Label).
			Str("top", formatTop(row.Items, dryRunLogItems)).
			Msg("Dry run row")
	}
	if err := e.consumer.Upsert(ctx, *row); err != nil {
		return fmt.Errorf("write row %q: %w", row.Label, err)
	}
	metrics.RecordRow(row.Kind.String(), len(row.Items), row.DryRun)
	return nil
}

func (e *Engine) recordRun(ctx context.Context, logger *zerolog.Logger, summary *RunSummary) {
	for _, r := range e.recorders {
		if err := r.RecordRun(ctx, summary); err != nil {
			logger.Warn().Err(err).Msg("Failed to record run summary")
		}
	}
}

// finishedAnchors returns up to limit finished item ids, newest first.
func finishedAnchors(recent []recommend.Interaction, limit int) []string {
	anchors := make([]string, 0, min(limit, len(recent)))
	for i := range recent {
		if len(anchors) >= limit {
			break
		}
		if recent[i].Finished {
			anchors = append(anchors, recent[i].ItemID)
		}
	}
	return anchors
}

// formatTop renders the first n items as "id:score" pairs.
func formatTop(items []recommend.ScoredItem, n int) string {
	var b strings.Builder
	for i, it := range items[:min(len(items), n)] {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(it.ItemID)
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(it.Score, 'f', 4, 64))
	}
	return b.String()
}

func (e *Engine) beginStatus(summary *RunSummary) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.status.Running = true
	e.status.RunID = summary.RunID
	e.status.StartedAt = summary.StartedAt
	e.status.Progress = 0
	e.status.UsersDone = 0
	e.status.UsersTotal = 0
}

func (e *Engine) setTotal(total int) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.status.UsersTotal = total
}

func (e *Engine) advance() {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.status.UsersDone++
	if e.status.UsersTotal > 0 {
		e.status.Progress = min(1, float64(e.status.UsersDone)/float64(e.status.UsersTotal))
	}
}

func (e *Engine) finishStatus(summary *RunSummary, err error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	last := *summary
	e.status.Running = false
	e.status.LastRun = &last
	e.status.LastError = ""
	if err != nil {
		e.status.LastError = err.Error()
		return
	}
	e.status.Progress = 1
}
