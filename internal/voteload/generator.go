package voteload

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"

	"github.com/nkast/ratekeeper/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	batchShapeDivisor  = 8
	maxLayersPerBatch  = 4
	touchChanceDivisor = 5
)

// Constants for batch shape cases.
const (
	caseIdleScreen     = 0
	caseVideoPlayback  = 1
	caseGameMaxed      = 2
	caseBatterySaver   = 3
	caseScrollingFeed  = 4
	caseSplitScreen    = 5
	caseExplicitApp    = 6
	caseMixedAbstainer = 7
)

// Common content frame rates apps actually request.
var contentRates = []float64{24, 30, 48, 60, 90, 120} //nolint:gochecknoglobals // fixed lookup table

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomInt(max int64) int64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(max))
	return n.Int64()
}

func randomContentRate() float64 {
	return contentRates[randomInt(int64(len(contentRates)))]
}

// generateBatches creates the specified number of layer batches with unique
// layer names.
func generateBatches(ctx context.Context, config *Config, stats *Stats) ([]Batch, error) {
	logger.Get().Info(ctx, "generating layer batches", logger.Int("numBatches", config.NumBatches))

	batches := make([]Batch, config.NumBatches)
	for i := range batches {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			batches[i] = generateSingleBatch()
		}
	}

	stats.BatchesGenerated = len(batches)
	logger.Get().Info(ctx, "generated batches successfully", logger.Int("count", len(batches)))

	return batches, nil
}

// generateSingleBatch creates one batch shaped like a real screen scenario.
func generateSingleBatch() Batch {
	touchActive := randomInt(touchChanceDivisor) == 0

	switch randomInt(batchShapeDivisor) {
	case caseIdleScreen:
		// Nothing cares about the rate
		return Batch{
			Layers: []Layer{
				{Name: layerName("wallpaper"), Vote: "NoVote", Weight: 0},
			},
			TouchActive: touchActive,
		}
	case caseVideoPlayback:
		// Video wants an exact-or-multiple rate, UI abstains
		return Batch{
			Layers: []Layer{
				{Name: layerName("video"), Vote: "ExplicitExactOrMultiple", DesiredFPS: randomContentRate(), Weight: 1},
				{Name: layerName("controls"), Vote: "NoVote", Weight: 0},
			},
			TouchActive: touchActive,
		}
	case caseGameMaxed:
		return Batch{
			Layers: []Layer{
				{Name: layerName("game"), Vote: "Max", Weight: 1},
			},
			TouchActive: touchActive,
		}
	case caseBatterySaver:
		return Batch{
			Layers: []Layer{
				{Name: layerName("screen"), Vote: "Min", Weight: 1},
			},
			TouchActive: false,
		}
	case caseScrollingFeed:
		return Batch{
			Layers: []Layer{
				{Name: layerName("feed"), Vote: "Heuristic", DesiredFPS: randomContentRate(), Weight: 0.5 + getRandomFloat()/2},
			},
			TouchActive: touchActive,
		}
	case caseSplitScreen:
		// Two apps competing with different desired rates
		return Batch{
			Layers: []Layer{
				{Name: layerName("top"), Vote: "Heuristic", DesiredFPS: randomContentRate(), Weight: getRandomFloat()},
				{Name: layerName("bottom"), Vote: "Heuristic", DesiredFPS: randomContentRate(), Weight: getRandomFloat()},
			},
			TouchActive: touchActive,
		}
	case caseExplicitApp:
		// App pinned its preferred rate; touch boost must not override it
		return Batch{
			Layers: []Layer{
				{Name: layerName("app"), Vote: "ExplicitDefault", DesiredFPS: randomContentRate(), Weight: 1},
			},
			TouchActive: touchActive,
		}
	case caseMixedAbstainer:
		fallthrough
	default:
		n := 1 + randomInt(maxLayersPerBatch)
		layers := make([]Layer, 0, n)
		for i := int64(0); i < n; i++ {
			layers = append(layers, Layer{
				Name:       layerName("surface"),
				Vote:       randomVoteName(),
				DesiredFPS: randomContentRate(),
				Weight:     getRandomFloat(),
			})
		}
		return Batch{Layers: layers, TouchActive: touchActive}
	}
}

func layerName(kind string) string {
	return kind + "-" + uuid.New().String()
}

func randomVoteName() string {
	votes := []string{"NoVote", "Min", "Max", "Heuristic", "ExplicitDefault", "ExplicitExactOrMultiple"}
	return votes[randomInt(int64(len(votes)))]
}
