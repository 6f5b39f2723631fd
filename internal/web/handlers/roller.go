package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ninthcircle/diceroller/internal/dice"
	"github.com/ninthcircle/diceroller/internal/models"
	"github.com/ninthcircle/diceroller/internal/roller"
	"github.com/ninthcircle/diceroller/internal/web/middleware"
)

const defaultDescription = "Roll description"

type notice struct {
	Class string
	Lines []string
}

type rollForm struct {
	CampaignID  int64
	Count       string
	Faces       int
	Modifier    int
	Description string
}

type sortColumn struct {
	Label   string
	URL     string
	NoBreak bool
}

type pageLink struct {
	Number  int
	URL     string
	Current bool
}

type rollerPage struct {
	User      *models.User
	Notice    *notice
	Action    string
	Campaigns []models.Campaign
	Faces     []int
	Modifiers []int
	Form      rollForm
	Columns   []sortColumn
	History   *models.RollPage
	Pages     []pageLink
}

var historyColumns = []struct {
	key     string
	label   string
	noBreak bool
}{
	{models.SortRoller, "User", false},
	{models.SortCampaign, "Campaign Name", false},
	{models.SortSetup, "Setup", true},
	{models.SortDescription, "Description", false},
	{models.SortResult, "Result", false},
	{models.SortDatetime, "Executed at", false},
}

// DiceRoller renders the roll form and the roll history. A POST carrying
// the submit field stores a new roll first.
func (h *Handlers) DiceRoller(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		h.error(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	user := middleware.UserFromContext(ctx)
	data := rollerPage{
		User:      user,
		Faces:     h.cfg.Dice.Faces,
		Modifiers: h.cfg.Dice.Modifiers,
		Form:      h.parseRollForm(r),
	}

	if r.Method == http.MethodPost && r.PostForm.Has("submit") {
		data.Notice = h.roll(r, user)
	}

	campaigns, err := h.rolls.ActiveCampaigns(ctx)
	if err != nil {
		h.logger.Error("failed to list campaigns", "error", err)
		h.error(w, http.StatusInternalServerError, "Failed to load campaigns")
		return
	}
	data.Campaigns = campaigns

	query := r.URL.Query()
	history, err := h.rolls.History(ctx, roller.HistoryRequest{
		OrderBy:    query.Get("orderby"),
		Descending: query.Get("order") == "desc",
		Page:       dice.Coerce(query.Get("num_page")),
	})
	if err != nil {
		h.logger.Error("failed to list rolls", "error", err)
		h.error(w, http.StatusInternalServerError, "Failed to load rolls")
		return
	}
	data.History = history

	path := r.URL.Path
	data.Action = link(path, rebuildQuery(r.URL.RawQuery, "orderby", "num_page"))
	data.Columns = sortColumns(path, r.URL.RawQuery, query.Get("orderby"), query.Get("order"))
	data.Pages = pageLinks(path, r.URL.RawQuery, history)

	h.render(w, "roller", data)
}

func (h *Handlers) roll(r *http.Request, user *models.User) *notice {
	req := roller.RollRequest{
		CampaignID:  int64(dice.Coerce(r.PostForm.Get("roll_campaign"))),
		Count:       dice.Coerce(r.PostForm.Get("N")),
		Faces:       dice.Coerce(r.PostForm.Get("X")),
		Modifier:    dice.Coerce(r.PostForm.Get("M")),
		Description: r.PostForm.Get("roll_description"),
	}
	if user != nil {
		req.RollerID = user.ID
	}

	res, err := h.rolls.Roll(r.Context(), req)
	if err != nil {
		h.logger.Warn("roll failed", "campaign_id", req.CampaignID, "error", err)
		return &notice{Class: "error", Lines: []string{"Error in updating roll table"}}
	}

	return &notice{
		Class: "updated",
		Lines: []string{
			"Roll done!",
			fmt.Sprintf("Result: %s = %d", res.Roll.Setup, res.Roll.Result),
		},
	}
}

// parseRollForm reads the previous submission so the form keeps its values
func (h *Handlers) parseRollForm(r *http.Request) rollForm {
	form := rollForm{
		Count:       "1",
		Description: defaultDescription,
	}
	if len(h.cfg.Dice.Faces) > 0 {
		form.Faces = h.cfg.Dice.Faces[0]
	}

	if r.Form.Has("roll_campaign") {
		form.CampaignID = int64(dice.Coerce(r.Form.Get("roll_campaign")))
	}
	if r.Form.Has("N") {
		form.Count = r.Form.Get("N")
	}
	if r.Form.Has("X") {
		form.Faces = dice.Coerce(r.Form.Get("X"))
	}
	if r.Form.Has("M") {
		form.Modifier = dice.Coerce(r.Form.Get("M"))
	}
	if r.Form.Has("roll_description") {
		form.Description = r.Form.Get("roll_description")
	}
	return form
}

// sortColumns builds the header links. Clicking the column the table is
// already sorted by ascending flips it to descending.
func sortColumns(path, rawQuery, orderBy, order string) []sortColumn {
	base := rebuildQuery(rawQuery, "orderby", "order", "num_page")

	cols := make([]sortColumn, 0, len(historyColumns))
	for _, c := range historyColumns {
		dir := "asc"
		if c.key == orderBy && order != "desc" {
			dir = "desc"
		}
		q := withParam(withParam(base, "orderby", c.key), "order", dir)
		cols = append(cols, sortColumn{Label: c.label, URL: link(path, q), NoBreak: c.noBreak})
	}
	return cols
}

// pageLinks returns nothing when everything fits on one page
func pageLinks(path, rawQuery string, page *models.RollPage) []pageLink {
	if page.Total <= page.PerPage {
		return nil
	}

	base := rebuildQuery(rawQuery, "num_page")
	links := make([]pageLink, 0, page.NumPages)
	for i := 1; i <= page.NumPages; i++ {
		links = append(links, pageLink{
			Number:  i,
			URL:     link(path, withParam(base, "num_page", strconv.Itoa(i))),
			Current: i == page.Page,
		})
	}
	return links
}
