package tag

import (
	"github.com/trezcool/rollcall/core"
)

// Student is a roster entry. CardID may be empty for students without a card.
type Student struct {
	ID     string `json:"id" yaml:"id" validate:"required"`
	Name   string `json:"name" yaml:"name"`
	CardID string `json:"card_id" yaml:"card_id"`
}

// Collision reports a card registered to more than one student.
type Collision struct {
	CardID   string `json:"card_id"`
	Previous string `json:"previous"` // overridden student id
	Winner   string `json:"winner"`
}

// Resolver maps scans to students of one roster. It is read-only once built.
type Resolver struct {
	index      map[string]string
	collisions []Collision
	logger     core.Logger
}

// NewResolver indexes roster by normalized card id. When students share a
// card, the last one registered wins and the collision is logged.
func NewResolver(roster []Student, logger core.Logger) *Resolver {
	r := &Resolver{index: make(map[string]string, len(roster)), logger: logger}
	for _, st := range roster {
		card := NormalizeCardID(st.CardID)
		if card == "" || st.ID == "" {
			continue
		}
		if prev, ok := r.index[card]; ok && prev != st.ID {
			c := Collision{CardID: card, Previous: prev, Winner: st.ID}
			r.collisions = append(r.collisions, c)
			logger.Warn("card registered to several students", map[string]interface{}{
				"card": c.CardID, "previous": c.Previous, "winner": c.Winner,
			})
		}
		r.index[card] = st.ID
	}
	return r
}

// Resolve returns the student id of the scanned card. A scan of an unknown
// card is logged and reported as no match.
func (r *Resolver) Resolve(scan Scan) (string, bool) {
	card := scan.CardID()
	if card == "" {
		r.logger.Debug("scan carries no card id")
		return "", false
	}
	id, ok := r.Lookup(card)
	if !ok {
		r.logger.Info("unknown card", map[string]interface{}{"card": card})
	}
	return id, ok
}

// Lookup finds the student of a card id, normalizing it first.
func (r *Resolver) Lookup(cardID string) (string, bool) {
	id, ok := r.index[NormalizeCardID(cardID)]
	return id, ok
}

func (r *Resolver) Collisions() []Collision {
	return append([]Collision(nil), r.collisions...)
}

func (r *Resolver) Len() int {
	return len(r.index)
}
