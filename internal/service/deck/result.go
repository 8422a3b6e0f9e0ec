package deck

import "github.com/heartmarshall/flashdeck-backend/internal/domain"

// CardView is a card plus its faces rendered from markdown to HTML.
type CardView struct {
	domain.Card
	RenderedFront string
	RenderedBack  string
}

// DeckDetailResult is the deck detail read model with rendered cards.
type DeckDetailResult struct {
	domain.Deck
	Cards []CardView
}

// DeckPage is one page of deck summaries.
type DeckPage struct {
	Decks []domain.DeckSummary
	Total int
}
