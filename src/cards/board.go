package cards

// Board is the status line plus the results container.
type Board struct {
	Status string `json:"status"`
	Cards  []Card `json:"cards"`
}

func (b *Board) SetStatus(text string) { b.Status = text }

func (b *Board) Reset() { b.Cards = b.Cards[:0] }

func (b *Board) Append(c Card) { b.Cards = append(b.Cards, c) }

// Find returns the card for placeID.
func (b *Board) Find(placeID string) (Card, bool) {
	for _, c := range b.Cards {
		if c.PlaceID == placeID {
			return c, true
		}
	}
	return Card{}, false
}
