package tallylib

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	RendererJSON = "json"
	RendererCSV  = "csv"
	RendererText = "text"

	textBarWidth = 50
)

// Renderer writes choropleth rows somewhere.
type Renderer interface {
	Render(io.Writer, []ChoroplethRow) error
}

type jsonRenderer struct{}

func (j jsonRenderer) Render(w io.Writer, rows []ChoroplethRow) error {
	encoder := json.NewEncoder(w)

	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	envelope := struct {
		Results []ChoroplethRow `json:"results"`
	}{
		Results: rows,
	}

	if err := encoder.Encode(envelope); err != nil {
		return fmt.Errorf("cannot encode json: %w", err)
	}

	return nil
}

type csvRenderer struct{}

func (c csvRenderer) Render(w io.Writer, rows []ChoroplethRow) error {
	writer := csv.NewWriter(w)

	writer.Write([]string{"alpha3_code", "name", "count"}) // nolint: errcheck

	for _, v := range rows {
		writer.Write([]string{v.Alpha3, v.Name, strconv.Itoa(v.Count)}) // nolint: errcheck
	}

	writer.Flush()

	if err := writer.Error(); err != nil {
		return fmt.Errorf("cannot write csv: %w", err)
	}

	return nil
}

// textRenderer draws a horizontal bar chart. Countries with zero
// counter are skipped.
type textRenderer struct{}

func (t textRenderer) Render(w io.Writer, rows []ChoroplethRow) error {
	maxCount := 0

	for _, v := range rows {
		if v.Count > maxCount {
			maxCount = v.Count
		}
	}

	for _, v := range rows {
		if v.Count == 0 {
			continue
		}

		width := v.Count * textBarWidth / maxCount
		if width == 0 {
			width = 1
		}

		_, err := fmt.Fprintf(w, "%-3s %-30.30s %6d %s\n",
			v.Alpha3, v.Name, v.Count, strings.Repeat("#", width))
		if err != nil {
			return fmt.Errorf("cannot write a row: %w", err)
		}
	}

	return nil
}

// NewRenderer returns a renderer by its name.
func NewRenderer(name string) (Renderer, error) {
	switch strings.ToLower(name) {
	case RendererJSON, "":
		return jsonRenderer{}, nil
	case RendererCSV:
		return csvRenderer{}, nil
	case RendererText:
		return textRenderer{}, nil
	}

	return nil, fmt.Errorf("unknown renderer %s", name)
}
