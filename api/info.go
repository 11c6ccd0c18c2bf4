package api

import (
	"net/http"

	"github.com/9seconds/geotally/tallylib"
)

func (h handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, healthzResponse{Status: "ok"})
}

func (h handler) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := make([]*tallylib.UsageStats, 0, len(h.stats)+1)
	stats = append(stats, h.resolver.UsageStats())
	stats = append(stats, h.stats...)

	sendJSON(w, statsResponse{Results: stats})
}

func (h handler) handleTally(w http.ResponseWriter, _ *http.Request) {
	snapshot, ok := h.state.Get()
	if !ok {
		sendError(w, nil, "Tally is not ready yet", http.StatusServiceUnavailable)

		return
	}

	sendJSON(w, tallyResponse{
		Total:     snapshot.Table.Total(),
		Addresses: snapshot.Addresses,
		UpdatedAt: snapshot.UpdatedAt.Unix(),
		Results:   snapshot.Table.Sorted(),
	})
}

func (h handler) handleChoropleth(w http.ResponseWriter, _ *http.Request) {
	snapshot, ok := h.state.Get()
	if !ok {
		sendError(w, nil, "Tally is not ready yet", http.StatusServiceUnavailable)

		return
	}

	sendJSON(w, choroplethResponse{
		UpdatedAt: snapshot.UpdatedAt.Unix(),
		Results:   snapshot.Rows,
	})
}
