package api

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/9seconds/geotally/tallylib"
	"github.com/qri-io/jsonschema"
)

const maxRequestBodySize = 1 << 20

// adHocConversionPolicy reports unconvertible addresses per address:
// a single odd country does not fail the whole request.
const adHocConversionPolicy = tallylib.ConversionDrop

var resolveRequestJSONSchema = func() *jsonschema.Schema {
	data := `{
        "type": "object",
        "required": [
            "ips"
        ],
        "additionalProperties": false,
        "properties": {
            "ips": {
                "type": "array",
                "minItems": 1,
                "maxItems": 1024,
                "items": {
                    "type": "string",
                    "minLength": 2,
                    "maxLength": 64
                }
            }
        }
    }`

	rv := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(data), rv); err != nil {
		panic(err)
	}

	return rv
}()

func (h handler) handleResolve(w http.ResponseWriter, req *http.Request) {
	if !strings.Contains(req.Header.Get("Content-Type"), "application/json") {
		sendError(w, nil, "Incorrect content type", http.StatusUnsupportedMediaType)

		return
	}

	bodyBytes, err := ioutil.ReadAll(http.MaxBytesReader(w, req.Body, maxRequestBodySize))

	req.Body.Close()

	if err != nil {
		sendError(w, err, "Cannot read request body", http.StatusBadRequest)

		return
	}

	errs, err := resolveRequestJSONSchema.ValidateBytes(req.Context(), bodyBytes)
	if err != nil {
		sendError(w, err, "Cannot validate body", http.StatusBadRequest)

		return
	}

	if len(errs) > 0 {
		sendError(w, errs[0], "Invalid request body", http.StatusBadRequest)

		return
	}

	parsedRequest := resolveRequest{}
	if err := json.Unmarshal(bodyBytes, &parsedRequest); err != nil {
		sendError(w, err, "Cannot parse request JSON", http.StatusBadRequest)

		return
	}

	resolutions, err := h.resolver.ResolveWithPolicy(req.Context(), parsedRequest.IPs, adHocConversionPolicy)
	if err != nil {
		sendError(w, err, "Cannot resolve given IPs", http.StatusInternalServerError)

		return
	}

	resp := resolveResponse{
		Results: make([]resolveResult, len(resolutions)),
	}

	for i := range resolutions {
		resp.Results[i] = h.makeResult(resolutions[i])
	}

	sendJSON(w, resp)
}

func (h handler) makeResult(resolution tallylib.Resolution) resolveResult {
	rv := resolveResult{Resolution: resolution}

	if resolution.OK() {
		if country, ok := h.resolver.Normalizer().Country(resolution.Code); ok {
			rv.Details = &country
		}
	}

	return rv
}
