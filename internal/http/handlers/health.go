package handlers

import (
	"net/http"
)

type healthResponse struct {
	Status  string         `json:"status"`
	Gateway string         `json:"gateway"`
	Pledges map[string]int `json:"pledges"`
}

// Health reports liveness plus how many pledges sit in each state.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	counts, err := a.Pledges.Counts(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	pledges := make(map[string]int, len(counts))
	for st, n := range counts {
		pledges[string(st)] = n
	}
	gateway := "mercadopago"
	if a.Sandbox != nil {
		gateway = "sandbox"
	}
	a.json(w, http.StatusOK, healthResponse{Status: "ok", Gateway: gateway, Pledges: pledges})
}
