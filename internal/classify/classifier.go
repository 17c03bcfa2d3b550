package classify

import (
	"mfDealFlow/internal/domain"
)

// Classifier maps deals to mutual-fund flow signals.
type Classifier struct {
	matcher *Matcher
}

// New builds a Classifier for the given keyword set.
func New(ks *KeywordSet) (*Classifier, error) {
	m, err := NewMatcher(ks)
	if err != nil {
		return nil, err
	}
	return &Classifier{matcher: m}, nil
}

// Matcher exposes the underlying name matcher.
func (c *Classifier) Matcher() *Matcher {
	return c.matcher
}

// Decide is the classification rule, independent of how names were matched.
//
// SINGLE shape: ACCUMULATION iff the client is institutional and the side is BUY,
// EXIT iff institutional and SELL. DUAL shape: ACCUMULATION iff only the buyer is
// institutional, EXIT iff only the seller is. Everything else is IGNORE.
func Decide(shape domain.Shape, side domain.Side, clientInst, buyerInst, sellerInst bool) domain.Signal {
	switch shape {
	case domain.ShapeSingle:
		if !clientInst {
			return domain.SignalIgnore
		}
		switch side {
		case domain.SideBuy:
			return domain.SignalAccumulation
		case domain.SideSell:
			return domain.SignalExit
		}
	case domain.ShapeDual:
		if buyerInst && !sellerInst {
			return domain.SignalAccumulation
		}
		if sellerInst && !buyerInst {
			return domain.SignalExit
		}
	}
	return domain.SignalIgnore
}

// Classify returns the signal of a single deal.
func (c *Classifier) Classify(d *domain.Deal) domain.Signal {
	return classifyWith(d, c.matcher.IsInstitutional)
}

// ClassifyAll returns the signal of every deal, index-aligned with the input.
// Each distinct name is matched once; the result equals calling Classify per row.
func (c *Classifier) ClassifyAll(deals []*domain.Deal) []domain.Signal {
	seen := make(map[string]bool)
	lookup := func(name string) bool {
		if v, ok := seen[name]; ok {
			return v
		}
		v := c.matcher.IsInstitutional(name)
		seen[name] = v
		return v
	}

	out := make([]domain.Signal, len(deals))
	for i, d := range deals {
		out[i] = classifyWith(d, lookup)
	}
	return out
}

// Annotate returns copies of deals with Signal populated. The inputs are not modified.
func (c *Classifier) Annotate(deals []*domain.Deal) []*domain.Deal {
	signals := c.ClassifyAll(deals)
	out := make([]*domain.Deal, len(deals))
	for i, d := range deals {
		cp := *d
		cp.Signal = signals[i]
		out[i] = &cp
	}
	return out
}

func classifyWith(d *domain.Deal, isInst func(string) bool) domain.Signal {
	if d == nil {
		return domain.SignalIgnore
	}
	switch d.Shape {
	case domain.ShapeSingle:
		return Decide(d.Shape, d.Side, isInst(d.ClientName), false, false)
	case domain.ShapeDual:
		return Decide(d.Shape, d.Side, false, isInst(d.BuyerName), isInst(d.SellerName))
	}
	return domain.SignalIgnore
}
