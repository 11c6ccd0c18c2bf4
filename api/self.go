package api

import (
	"net"
	"net/http"
)

func (h handler) handleSelf(w http.ResponseWriter, req *http.Request) {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}

	if net.ParseIP(host) == nil {
		sendError(w, nil, "Address was detected incorrectly", http.StatusBadRequest)

		return
	}

	resolutions, err := h.resolver.ResolveWithPolicy(req.Context(), []string{host}, adHocConversionPolicy)
	if err != nil {
		sendError(w, err, "Cannot resolve IP address", http.StatusInternalServerError)

		return
	}

	sendJSON(w, selfResponse{Result: h.makeResult(resolutions[0])})
}
