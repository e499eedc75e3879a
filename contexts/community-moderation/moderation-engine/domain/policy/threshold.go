package policy

import (
	"fmt"
	"strings"

	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
)

// ThresholdPolicy yields the number of live endorsements a suggestion needs
// given the current state of its target. Create suggestions see a zero record.
type ThresholdPolicy interface {
	Required(target entities.Record) int
}

type FixedThreshold struct {
	Endorsements int
}

func (p FixedThreshold) Required(entities.Record) int {
	if p.Endorsements < 1 {
		return 1
	}
	return p.Endorsements
}

// PopularityThreshold raises the bar for records that have already been
// edited often: one extra endorsement per Step applied changes, capped at Max.
type PopularityThreshold struct {
	Base int
	Step int
	Max  int
}

func (p PopularityThreshold) Required(target entities.Record) int {
	required := p.Base
	if required < 1 {
		required = 1
	}
	if p.Step > 0 && target.Version > 0 {
		required += int(target.Version / int64(p.Step))
	}
	if p.Max > 0 && required > p.Max {
		required = p.Max
	}
	return required
}

// NewThresholdPolicy resolves a configured mode name.
func NewThresholdPolicy(mode string, base int, step int, max int) (ThresholdPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "fixed":
		return FixedThreshold{Endorsements: base}, nil
	case "popularity":
		return PopularityThreshold{Base: base, Step: step, Max: max}, nil
	default:
		return nil, fmt.Errorf("unknown threshold mode %q", mode)
	}
}
