package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

// defaultWikipediaURL is a template keyed by language subdomain.
const defaultWikipediaURL = "https://%s.wikipedia.org/w/api.php"

const maxWikipediaSummary = 2000

// Wikipedia searches articles and fetches intro summaries through the
// MediaWiki action API. No API key is required.
type Wikipedia struct {
	client  *http.Client
	baseURL string
}

var _ tool.Tool = (*Wikipedia)(nil)

// NewWikipedia builds the wikipedia tool against the public MediaWiki API.
func NewWikipedia(client *http.Client) *Wikipedia {
	return &Wikipedia{client: client, baseURL: defaultWikipediaURL}
}

func (w *Wikipedia) Name() string { return "wikipedia" }

func (w *Wikipedia) Description() string {
	return "Searches Wikipedia articles and fetches article summaries. " +
		"Supports multiple languages."
}

func (w *Wikipedia) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "Search query or article title"
			},
			"action": {
				"type": "string",
				"enum": ["search", "summary"],
				"description": "'search' finds articles, 'summary' fetches one article's intro (default: search)"
			},
			"limit": {
				"type": "integer",
				"minimum": 1,
				"maximum": 20,
				"description": "Number of search results (default: 5)"
			},
			"language": {
				"type": "string",
				"description": "Wikipedia language code such as en, es, fr, de, ja (default: en)"
			}
		},
		"required": ["query"]
	}`)
}

type wikipediaArticle struct {
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
	WordCount int    `json:"wordcount,omitempty"`
}

type wikipediaOutput struct {
	Action   string             `json:"action"`
	Query    string             `json:"query"`
	Language string             `json:"language"`
	Results  []wikipediaArticle `json:"results"`
	Summary  string             `json:"summary,omitempty"`
}

func (w *Wikipedia) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		Query    string `json:"query"`
		Action   string `json:"action"`
		Limit    int    `json:"limit"`
		Language string `json:"language"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if strings.TrimSpace(args.Query) == "" {
		return "", errors.New("missing 'query' field")
	}
	if args.Action == "" {
		args.Action = "search"
	}
	if args.Language == "" {
		args.Language = "en"
	}
	if !validLanguageCode(args.Language) {
		return "", fmt.Errorf("language must be a 2-letter lowercase code, got %q", args.Language)
	}
	limit := args.Limit
	if limit < 1 {
		limit = 5
	}
	if limit > 20 {
		limit = 20
	}

	switch args.Action {
	case "search":
		return w.search(ctx, args.Query, args.Language, limit)
	case "summary":
		return w.summary(ctx, args.Query, args.Language)
	default:
		return "", fmt.Errorf("unknown action %q, supported: search, summary", args.Action)
	}
}

func (w *Wikipedia) search(ctx context.Context, query, language string, limit int) (string, error) {
	params := url.Values{
		"action":   {"query"},
		"format":   {"json"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {fmt.Sprint(limit)},
		"srprop":   {"snippet|wordcount"},
	}

	var body struct {
		Query struct {
			Search []struct {
				Title     string `json:"title"`
				Snippet   string `json:"snippet"`
				WordCount int    `json:"wordcount"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := w.getJSON(ctx, language, params, &body); err != nil {
		return "", err
	}

	results := make([]wikipediaArticle, 0, len(body.Query.Search))
	for _, hit := range body.Query.Search {
		results = append(results, wikipediaArticle{
			Title:     hit.Title,
			Snippet:   stripSearchMarkup(hit.Snippet),
			WordCount: hit.WordCount,
		})
	}

	return renderWikipedia(wikipediaOutput{
		Action:   "search",
		Query:    query,
		Language: language,
		Results:  results,
	})
}

func (w *Wikipedia) summary(ctx context.Context, title, language string) (string, error) {
	params := url.Values{
		"action":          {"query"},
		"format":          {"json"},
		"prop":            {"extracts"},
		"exintro":         {"true"},
		"explaintext":     {"true"},
		"exsectionformat": {"plain"},
		"titles":          {title},
		"redirects":       {"true"},
	}

	var body struct {
		Query struct {
			Pages map[string]struct {
				Title   string `json:"title"`
				Extract string `json:"extract"`
				Missing any    `json:"missing"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := w.getJSON(ctx, language, params, &body); err != nil {
		return "", err
	}
	if len(body.Query.Pages) == 0 {
		return "", errors.New("wikipedia returned no pages")
	}

	for _, page := range body.Query.Pages {
		if page.Missing != nil {
			return "", fmt.Errorf("wikipedia page %q not found", title)
		}
		if page.Extract == "" {
			return "", fmt.Errorf("wikipedia page %q carries no extract", title)
		}

		summary := truncateRunes(page.Extract, maxWikipediaSummary)
		pageTitle := page.Title
		if pageTitle == "" {
			pageTitle = title
		}
		return renderWikipedia(wikipediaOutput{
			Action:   "summary",
			Query:    title,
			Language: language,
			Results: []wikipediaArticle{{
				Title:     pageTitle,
				Snippet:   summary,
				WordCount: len(strings.Fields(summary)),
			}},
			Summary: summary,
		})
	}
	return "", errors.New("wikipedia returned no pages")
}

func (w *Wikipedia) getJSON(ctx context.Context, language string, params url.Values, out any) error {
	endpoint := fmt.Sprintf(w.baseURL, language) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("wikipedia request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wikipedia returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("cannot parse wikipedia response: %w", err)
	}
	return nil
}

func renderWikipedia(out wikipediaOutput) (string, error) {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("cannot encode response: %w", err)
	}
	return string(data), nil
}

// stripSearchMarkup removes the highlight spans the search API embeds in
// snippets.
func stripSearchMarkup(s string) string {
	s = strings.ReplaceAll(s, `<span class="searchmatch">`, "")
	return strings.ReplaceAll(s, "</span>", "")
}

func validLanguageCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, c := range code {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
