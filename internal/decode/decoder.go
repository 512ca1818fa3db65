package decode

import (
	"context"
	"errors"
	"image"
	"log/slog"
)

// ErrNoCode reports that a frame contained no decodable QR pattern. It is the
// normal "keep looking" outcome, distinct from a decoder failure.
var ErrNoCode = errors.New("no decodable pattern found")

// Decoder is one tier of the decode strategy. Attempt returns the payload
// string, ErrNoCode on a miss, or any other error on tier failure.
type Decoder interface {
	Name() string
	Attempt(ctx context.Context, img image.Image) (string, error)
}

// Chain tries decoders in rank order until one yields a payload. A tier
// failure is logged and the next tier still runs, so a broken native decoder
// never masks the software fallback.
type Chain struct {
	tiers []Decoder
}

func NewChain(tiers ...Decoder) *Chain {
	return &Chain{tiers: tiers}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Attempt(ctx context.Context, img image.Image) (string, error) {
	for _, tier := range c.tiers {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		payload, err := tier.Attempt(ctx, img)
		if err == nil {
			return payload, nil
		}
		if !errors.Is(err, ErrNoCode) {
			slog.Debug("decode tier failed", "tier", tier.Name(), "error", err)
		}
	}
	return "", ErrNoCode
}

// TierStatus describes decoder availability, reported on /api/decoders.
type TierStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
}

func (c *Chain) Status() []TierStatus {
	var statuses []TierStatus
	for _, tier := range c.tiers {
		s := TierStatus{Name: tier.Name(), Available: true}
		if z, ok := tier.(*ZBar); ok {
			s.Path = z.path
		}
		statuses = append(statuses, s)
	}
	return statuses
}
