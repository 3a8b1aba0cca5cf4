// Package options resolves a directional signal into a concrete
// tradable option contract.
package options

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	apperrors "fyers-orb-bot/internal/errors"
	"fyers-orb-bot/internal/fyers"
	"fyers-orb-bot/internal/models"
	"fyers-orb-bot/internal/strategy"
)

// strikeStep is the NIFTY strike interval used for ATM rounding.
const strikeStep = 50

// chainStrikeCount is how many strikes around ATM the chain query asks for.
const chainStrikeCount = 20

// Selector picks the ATM, nearest-expiry contract for a signal.
type Selector struct {
	client     *fyers.Client
	underlying string
	logger     zerolog.Logger

	now func() time.Time
}

// NewSelector creates an option selector for the configured underlying.
func NewSelector(client *fyers.Client, underlying string, logger zerolog.Logger) *Selector {
	return &Selector{
		client:     client,
		underlying: underlying,
		logger:     logger.With().Str("component", "options").Logger(),
		now:        time.Now,
	}
}

// UnderlyingLTP fetches the current underlying price.
func (s *Selector) UnderlyingLTP(ctx context.Context) (float64, error) {
	return s.client.GetLTP(ctx, s.underlying)
}

// Select resolves the signal direction into a tradable contract:
// ATM strike (underlying rounded to the nearest 50), matching option
// type, nearest expiry then nearest strike, with its current price.
func (s *Selector) Select(ctx context.Context, direction models.Direction, underlyingPrice float64) (*models.TradeCandidate, error) {
	atm := atmStrike(underlyingPrice)

	chain, err := s.client.GetOptionChain(ctx, s.underlying, chainStrikeCount)
	if err != nil {
		return nil, err
	}

	optType := direction.OptionType()
	best, found := pickContract(chain, optType, atm, s.now().In(strategy.IST))
	if !found {
		return nil, apperrors.Wrapf(apperrors.ErrNoContract, "no %s contracts in option chain", optType)
	}

	ltp, err := s.client.GetLTP(ctx, best.Symbol)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("symbol", best.Symbol).
		Int("strike", best.Strike).
		Str("type", optType).
		Float64("ltp", ltp).
		Msg("Option contract selected")

	return &models.TradeCandidate{
		Symbol:          best.Symbol,
		Strike:          best.Strike,
		OptionType:      optType,
		LTP:             ltp,
		UnderlyingPrice: underlyingPrice,
		ATMStrike:       atm,
		Direction:       direction,
	}, nil
}

// atmStrike rounds the underlying price to the nearest strike step.
func atmStrike(price float64) int {
	return int(math.Round(price/strikeStep)) * strikeStep
}

// pickContract filters the chain by option type and minimizes
// (expiry gap, strike gap) lexicographically.
func pickContract(chain []models.OptionContract, optType string, atm int, today time.Time) (models.OptionContract, bool) {
	const farFuture = 999

	var best models.OptionContract
	bestExpiryGap, bestStrikeGap := math.MaxInt32, math.MaxInt32
	found := false

	day := today.Truncate(24 * time.Hour)
	for _, c := range chain {
		if c.OptionType != optType {
			continue
		}

		expiryGap := farFuture
		if !c.Expiry.IsZero() {
			gap := int(c.Expiry.Sub(day).Hours() / 24)
			if gap >= 0 {
				expiryGap = gap
			}
		}

		strikeGap := c.Strike - atm
		if strikeGap < 0 {
			strikeGap = -strikeGap
		}

		if expiryGap < bestExpiryGap || (expiryGap == bestExpiryGap && strikeGap < bestStrikeGap) {
			best = c
			bestExpiryGap = expiryGap
			bestStrikeGap = strikeGap
			found = true
		}
	}

	return best, found
}
