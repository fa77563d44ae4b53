// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package algorithms

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/tomtom215/localrecs/internal/recommend"
)

// ALSConfig contains configuration for the ALS algorithm.
type ALSConfig struct {
	// NumFactors is the dimension of the latent factor vectors.
	NumFactors int

	// NumIterations is the number of ALS iterations to run.
	NumIterations int

	// Regularization is the L2 regularization parameter.
	Regularization float64

	// Alpha scales the confidence transformation for implicit feedback.
	// c = 1 + alpha * s, where s is the interaction signal.
	Alpha float64

	// NumWorkers is the number of parallel workers for training.
	// If <= 0, defaults to 4.
	NumWorkers int
}

// DefaultALSConfig returns default ALS configuration.
func DefaultALSConfig() ALSConfig {
	return ALSConfig{
		NumFactors:     32,
		NumIterations:  10,
		Regularization: 0.01,
		Alpha:          40.0,
		NumWorkers:     4,
	}
}

// ALSConfigFrom converts the run configuration into ALS parameters.
func ALSConfigFrom(cfg recommend.CFConfig) ALSConfig {
	return ALSConfig{
		NumFactors:     cfg.Factors,
		NumIterations:  cfg.Iterations,
		Regularization: cfg.Regularization,
		Alpha:          cfg.Alpha,
	}
}

// ALS implements Alternating Least Squares for implicit feedback.
// Reference: "Collaborative Filtering for Implicit Feedback Datasets" (Hu, Koren, Volinsky, 2008)
//
// The objective minimizes
//
//	sum_{u,i} c_ui * (p_ui - x_u' * y_i)^2 + lambda * (||x_u||^2 + ||y_i||^2)
//
// where p_ui = 1 if user u has a positive signal for item i and
// c_ui = 1 + alpha * signal_ui.
type ALS struct {
	modelState
	config ALSConfig

	// X is the user factor matrix (numUsers x numFactors)
	X [][]float64

	// Y is the item factor matrix (numItems x numFactors)
	Y [][]float64

	userIndex   map[string]int
	itemIndex   map[string]int
	indexToUser []string
	indexToItem []string
}

// NewALS creates a new ALS model with the given configuration.
func NewALS(cfg ALSConfig) *ALS {
	def := DefaultALSConfig()
	if cfg.NumFactors <= 0 {
		cfg.NumFactors = def.NumFactors
	}
	if cfg.NumIterations <= 0 {
		cfg.NumIterations = def.NumIterations
	}
	if cfg.Regularization <= 0 {
		cfg.Regularization = def.Regularization
	}
	if cfg.Alpha <= 0 {
		cfg.Alpha = def.Alpha
	}
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = def.NumWorkers
	}

	return &ALS{
		config:    cfg,
		userIndex: make(map[string]int),
		itemIndex: make(map[string]int),
	}
}

// Train fits the model on every user's interactions. Interactions with a
// non-positive signal under w are ignored; duplicates keep the strongest
// confidence.
//
//nolint:gocyclo // ML training algorithms are inherently complex
func (a *ALS) Train(ctx context.Context, interactions []recommend.Interaction, w recommend.SignalWeights) error {
	started := time.Now()
	a.mu.Lock()
	defer a.mu.Unlock()

	if canceled(ctx) {
		return ctx.Err()
	}

	a.userIndex = make(map[string]int)
	a.itemIndex = make(map[string]int)
	a.indexToUser = nil
	a.indexToItem = nil
	a.X, a.Y = nil, nil

	// Build confidence matrix (sparse representation)
	userItems := make(map[int]map[int]float64)
	for i := range interactions {
		inter := &interactions[i]
		signal := inter.Signal(w)
		if signal <= 0 {
			continue
		}
		ui, ok := a.userIndex[inter.UserID]
		if !ok {
			ui = len(a.indexToUser)
			a.userIndex[inter.UserID] = ui
			a.indexToUser = append(a.indexToUser, inter.UserID)
		}
		ii, ok := a.itemIndex[inter.ItemID]
		if !ok {
			ii = len(a.indexToItem)
			a.itemIndex[inter.ItemID] = ii
			a.indexToItem = append(a.indexToItem, inter.ItemID)
		}
		if userItems[ui] == nil {
			userItems[ui] = make(map[int]float64)
		}
		conf := 1.0 + a.config.Alpha*signal
		if conf > userItems[ui][ii] {
			userItems[ui][ii] = conf
		}
	}

	numUsers := len(a.indexToUser)
	numItems := len(a.indexToItem)
	numFactors := a.config.NumFactors

	if numUsers == 0 || numItems == 0 {
		a.markTrained(started)
		return nil
	}

	// Transpose for item-to-user access
	itemUsers := make(map[int]map[int]float64)
	for ui, itemMap := range userItems {
		for ii, conf := range itemMap {
			if itemUsers[ii] == nil {
				itemUsers[ii] = make(map[int]float64)
			}
			itemUsers[ii][ui] = conf
		}
	}

	// Deterministic small initialization
	a.X = initFactors(numUsers, numFactors)
	a.Y = initFactors(numItems, numFactors)

	lambda := a.config.Regularization
	for iter := 0; iter < a.config.NumIterations; iter++ {
		if canceled(ctx) {
			return ctx.Err()
		}
		a.solveSide(a.X, a.Y, userItems, numFactors, lambda)

		if canceled(ctx) {
			return ctx.Err()
		}
		a.solveSide(a.Y, a.X, itemUsers, numFactors, lambda)
	}

	a.markTrained(started)
	return nil
}

func initFactors(rows, numFactors int) [][]float64 {
	m := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		m[r] = make([]float64, numFactors)
		for f := 0; f < numFactors; f++ {
			m[r][f] = 0.1 * (float64((r*numFactors+f)%1000)/1000.0 - 0.5)
		}
	}
	return m
}

// solveSide recomputes every row of target while fixed is held constant.
// For users target=X, fixed=Y; for items target=Y, fixed=X.
//
//nolint:gocritic // FtF follows standard linear algebra notation
func (a *ALS) solveSide(target, fixed [][]float64, observed map[int]map[int]float64, numFactors int, lambda float64) {
	// Precompute F'F
	FtF := make([][]float64, numFactors)
	for f := range FtF {
		FtF[f] = make([]float64, numFactors)
	}
	for _, row := range fixed {
		for f1 := 0; f1 < numFactors; f1++ {
			for f2 := f1; f2 < numFactors; f2++ {
				FtF[f1][f2] += row[f1] * row[f2]
				if f1 != f2 {
					FtF[f2][f1] = FtF[f1][f2]
				}
			}
		}
	}

	n := len(target)
	var wg sync.WaitGroup
	chunkSize := (n + a.config.NumWorkers - 1) / a.config.NumWorkers

	for w := 0; w < a.config.NumWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			break
		}

		wg.Add(1)
		go func(from, to int) {
			defer wg.Done()
			for r := from; r < to; r++ {
				target[r] = solveRow(observed[r], fixed, FtF, numFactors, lambda)
			}
		}(start, end)
	}

	wg.Wait()
}

// solveRow solves (F'C F + lambda I) x = F'C p for a single row.
//
//nolint:gocritic // A, FtF follow standard linear algebra notation
func solveRow(observed map[int]float64, fixed, FtF [][]float64, numFactors int, lambda float64) []float64 {
	A := make([][]float64, numFactors)
	for f := range A {
		A[f] = make([]float64, numFactors)
		copy(A[f], FtF[f])
		A[f][f] += lambda
	}

	b := make([]float64, numFactors)
	for j, conf := range observed {
		y := fixed[j]
		cMinus1 := conf - 1.0
		for f1 := 0; f1 < numFactors; f1++ {
			for f2 := f1; f2 < numFactors; f2++ {
				delta := cMinus1 * y[f1] * y[f2]
				A[f1][f2] += delta
				if f1 != f2 {
					A[f2][f1] += delta
				}
			}
			b[f1] += conf * y[f1]
		}
	}

	return solveLinearSystem(A, b)
}

// solveLinearSystem solves A*x = b using Cholesky decomposition.
//
//nolint:gocritic // A, L follow standard linear algebra notation
func solveLinearSystem(A [][]float64, b []float64) []float64 {
	n := len(b)

	L := make([][]float64, n)
	for i := range L {
		L[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := A[i][j]
			for k := 0; k < j; k++ {
				sum -= L[i][k] * L[j][k]
			}

			if i == j {
				if sum <= 0 {
					sum = 1e-10
				}
				L[i][j] = math.Sqrt(sum)
			} else if L[j][j] != 0 {
				L[i][j] = sum / L[j][j]
			}
		}
	}

	// Forward substitution: L * z = b
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := b[i]
		for j := 0; j < i; j++ {
			sum -= L[i][j] * z[j]
		}
		if L[i][i] != 0 {
			z[i] = sum / L[i][i]
		}
	}

	// Back substitution: L' * x = z
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := z[i]
		for j := i + 1; j < n; j++ {
			sum -= L[j][i] * x[j]
		}
		if L[i][i] != 0 {
			x[i] = sum / L[i][i]
		}
	}

	return x
}

// Predict returns min-max normalized scores for the candidates the model
// knows. Unknown users yield an empty map; an untrained model returns
// ErrNotTrained.
func (a *ALS) Predict(ctx context.Context, userID string, candidates []string) (map[string]float64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if canceled(ctx) {
		return nil, ctx.Err()
	}
	if !a.trained {
		return nil, ErrNotTrained
	}

	ui, ok := a.userIndex[userID]
	if !ok || len(a.X) == 0 {
		return map[string]float64{}, nil
	}

	userVec := a.X[ui]
	scores := make(map[string]float64, len(candidates))
	for _, itemID := range candidates {
		ii, ok := a.itemIndex[itemID]
		if !ok {
			continue
		}
		var score float64
		for f := range userVec {
			score += userVec[f] * a.Y[ii][f]
		}
		scores[itemID] = score
	}

	return normalizeScores(scores), nil
}

// NumUsers returns the number of users with factors.
func (a *ALS) NumUsers() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.indexToUser)
}

// NumItems returns the number of items with factors.
func (a *ALS) NumItems() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.indexToItem)
}
