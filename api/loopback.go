package api

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/netsys-lab/optics/dataplane"
	log "github.com/sirupsen/logrus"
)

type LoopbackOptions struct {
	// Channel from the sender display to the receiver camera. Nil is lossless.
	Forward dataplane.Channel
	// Channel back from the receiver display to the sender camera
	Backward dataplane.Channel
	// Zero means no limit
	MaxRounds int
	OnFrame   dataplane.OnFrameShown
}

type TransferStats struct {
	Rounds   int
	Duration time.Duration
	Sender   dataplane.MetricsSnapshot
	Receiver dataplane.MetricsSnapshot
}

func (s *TransferStats) String() string {
	return fmt.Sprintf("%d rounds in %s, %d data frames shown, %d retransfers, %d requests, %d duplicates",
		s.Rounds, s.Duration, s.Sender.TxDataFrames, s.Sender.Retransfers, s.Receiver.TxRequests, s.Receiver.DuplicateData)
}

// RoundBudget is a generous upper bound on the rounds a transfer of
// packetCount packets needs when each direction loses lossRate of its frames.
func RoundBudget(packetCount uint32, lossRate float64) int {
	if lossRate >= 1 {
		lossRate = 0.99
	}
	delivered := (1 - lossRate) * (1 - lossRate)
	return int(10*float64(packetCount)/delivered) + 20
}

// Loopback drives enc and dec against each other until the encoder
// completes. Each round the encoder gets every reply scanned since its last
// call, and its image is scanned by the decoder.
func Loopback(ctx context.Context, enc *Encoder, dec *Decoder, options *LoopbackOptions) (*TransferStats, error) {
	opts := LoopbackOptions{}
	if options != nil {
		opts = *options
	}
	if opts.Forward == nil {
		opts.Forward = dataplane.PerfectChannel{}
	}
	if opts.Backward == nil {
		opts.Backward = dataplane.PerfectChannel{}
	}

	stats := &TransferStats{}
	start := time.Now()
	defer func() {
		stats.Duration = time.Since(start)
		stats.Sender = enc.Metrics().Snapshot()
		stats.Receiver = dec.Metrics().Snapshot()
	}()

	feedback := make([]image.Image, 0, 1)
	for !enc.Completed() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if opts.MaxRounds > 0 && stats.Rounds >= opts.MaxRounds {
			return stats, fmt.Errorf("%w: %d rounds, encoder in state %s", ErrRoundLimit, stats.Rounds, enc.State())
		}
		stats.Rounds++

		img, err := enc.NextImage(feedback)
		if err != nil {
			return stats, err
		}
		feedback = feedback[:0]
		if opts.OnFrame != nil {
			opts.OnFrame(stats.Rounds, true, img)
		}

		reply, err := dec.ConsumeImage(opts.Forward.Carry(img))
		if err != nil {
			return stats, err
		}
		if reply != nil {
			if opts.OnFrame != nil {
				opts.OnFrame(stats.Rounds, false, reply)
			}
			feedback = append(feedback, opts.Backward.Carry(reply))
		}
	}
	log.Debugf("Loopback transfer completed after %d rounds", stats.Rounds)
	return stats, nil
}
