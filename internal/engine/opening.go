package engine

import (
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

func ecoBookInstance() *opening.BookECO {
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })
	return ecoBook
}

// OpeningLabel names the opening played so far (ECO code and title).
// Games whose moves do not replay under full chess rules from the standard start have no label.
func OpeningLabel(history []HistoryEntry) (code, title string) {
	if len(history) == 0 {
		return "", ""
	}
	game := nchess.NewGame()
	notation := nchess.UCINotation{}
	for _, e := range history {
		if err := game.PushNotationMove(e.Move.UCI(), notation, nil); err != nil {
			return "", ""
		}
	}
	book := ecoBookInstance()
	if book == nil {
		return "", ""
	}
	if eco := book.Find(game.Moves()); eco != nil {
		return eco.Code(), eco.Title()
	}
	return "", ""
}
