package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type wikiSearch struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type wikiSummary struct {
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

func (r *Registry) wiki(ctx context.Context, query, lang string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return "Uso: /wiki Transformada de Laplace"
	}
	if lang = strings.TrimSpace(lang); lang == "" {
		lang = "es"
	}
	base := r.wikiBase(lang)

	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"utf8":     {"1"},
		"format":   {"json"},
		"srlimit":  {"1"},
	}
	var search wikiSearch
	if err := r.getJSON(ctx, base+"/w/api.php?"+params.Encode(), &search); err != nil {
		r.log.Warnf("Wikipedia search for %q failed: %v", query, err)
		return fmt.Sprintf("Error al consultar Wikipedia: %v", err)
	}
	if len(search.Query.Search) == 0 {
		return "No encontré resultados en Wikipedia."
	}
	title := search.Query.Search[0].Title

	var summary wikiSummary
	if err := r.getJSON(ctx, base+"/api/rest_v1/page/summary/"+url.PathEscape(title), &summary); err != nil {
		r.log.Warnf("Wikipedia summary for %q failed: %v", title, err)
		return fmt.Sprintf("Error al consultar Wikipedia: %v", err)
	}
	extract := summary.Extract
	if extract == "" {
		extract = "(sin extracto)"
	}
	out := fmt.Sprintf("**%s** — %s", title, extract)
	if page := summary.ContentURLs.Desktop.Page; page != "" {
		out += "\n\nEnlace: " + page
	}
	return out
}

func (r *Registry) getJSON(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("User-Agent", "profesorbot/1.0")
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}
