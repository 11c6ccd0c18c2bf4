package api

import "github.com/9seconds/geotally/tallylib"

type tallyResponse struct {
	Total     int                     `json:"total"`
	Addresses int                     `json:"addresses"`
	UpdatedAt int64                   `json:"updated_at"`
	Results   []tallylib.CountryCount `json:"results"`
}

type choroplethResponse struct {
	UpdatedAt int64                    `json:"updated_at"`
	Results   []tallylib.ChoroplethRow `json:"results"`
}

type statsResponse struct {
	Results []*tallylib.UsageStats `json:"results"`
}

type resolveRequest struct {
	IPs []string `json:"ips"`
}

type resolveResponse struct {
	Results []resolveResult `json:"results"`
}

type selfResponse struct {
	Result resolveResult `json:"result"`
}

type resolveResult struct {
	tallylib.Resolution

	Details *tallylib.Country `json:"details,omitempty"`
}

type healthzResponse struct {
	Status string `json:"status"`
}
