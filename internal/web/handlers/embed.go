package handlers

import (
	"net/http"

	"github.com/ninthcircle/diceroller/internal/dice"
	"github.com/ninthcircle/diceroller/internal/models"
)

type diceRollsWidget struct {
	Class string
	Rolls []models.RollView
}

// DiceRolls renders the latest rolls as an embeddable HTML fragment.
// count defaults to the history page size, class is set on the table.
func (h *Handlers) DiceRolls(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	rolls, err := h.rolls.Latest(r.Context(), dice.Coerce(query.Get("count")))
	if err != nil {
		h.logger.Error("failed to list latest rolls", "error", err)
		h.error(w, http.StatusInternalServerError, "Failed to load rolls")
		return
	}

	h.renderPartial(w, "dice_rolls", diceRollsWidget{
		Class: query.Get("class"),
		Rolls: rolls,
	})
}
