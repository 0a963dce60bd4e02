package auricle

import (
	"context"

	"github.com/auricle-labs/auricle/pkg/muse"
)

// SampleOutput consumes decoded samples.
type SampleOutput interface {
	// Start receives a context and should run in a loop, terminating upon ctx closing or on any errors.
	Start(ctx context.Context) error
	// Receive returns a channel that receives decoded sample input.
	Receive() chan<- *muse.Sample
}
