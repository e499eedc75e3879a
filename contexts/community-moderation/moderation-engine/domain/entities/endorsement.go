package entities

import "time"

type Stance string

const (
	StanceSupport Stance = "support"
	StanceOppose  Stance = "oppose"
)

type Endorsement struct {
	SuggestionID string
	UserID       string
	Stance       Stance
	CreatedAt    time.Time
}

type StanceCounts struct {
	Support int
	Oppose  int
}

func CountStances(items []Endorsement) StanceCounts {
	var counts StanceCounts
	for _, item := range items {
		switch item.Stance {
		case StanceSupport:
			counts.Support++
		case StanceOppose:
			counts.Oppose++
		}
	}
	return counts
}
