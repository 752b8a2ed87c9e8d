package extractor

import (
	"strings"

	"github.com/Buck-Ouro/Jupiter/internal/logger"
)

// Chain tries each strategy in order until one matches.
type Chain struct {
	strategies []Strategy
}

// NewChain creates a chain from the given strategies.
// Strategies are tried in the order given.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// ForLabel returns the default chain for a label phrase, most specific first:
// a decimal on the label's line, a decimal within a short window after the
// label, an integer on the label's line, then a scan of the label's line and
// the two non-blank lines after it.
func ForLabel(label string) *Chain {
	return NewChain(
		LabelDecimal(label),
		LabelDecimalWindow(label, DefaultWindow),
		LabelInteger(label),
		LineProximity(label, DefaultLookahead),
	)
}

// Extract returns the first match of any strategy.
func (c *Chain) Extract(text string) (Value, bool) {
	for _, s := range c.strategies {
		if v, ok := s.Match(text); ok {
			logger.Debug("value extracted", "strategy", s.Name(), "value", v.Display)
			return v, true
		}
	}
	logger.Debug("no strategy matched", "strategies", c.Name(), "text_size", len(text))
	return Value{}, false
}

// Name returns the chain name.
func (c *Chain) Name() string {
	names := make([]string, 0, len(c.strategies))
	for _, s := range c.strategies {
		names = append(names, s.Name())
	}
	return "chain(" + strings.Join(names, "->") + ")"
}

// Strategies returns the strategies in evaluation order.
func (c *Chain) Strategies() []Strategy {
	out := make([]Strategy, len(c.strategies))
	copy(out, c.strategies)
	return out
}
