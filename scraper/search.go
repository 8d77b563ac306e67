package scraper

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// SearchResult represents a single entry from a search engine.
type SearchResult struct {
	Title   string
	Link    string
	Snippet string
}

// WebSearcher handles searching the web, used to enrich Institution nodes
// with public context (website, description snippet).
type WebSearcher struct {
	Client *http.Client
}

func NewWebSearcher() *WebSearcher {
	return &WebSearcher{
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Search performs a web search and returns the top results.
// We use the DDG html version because it is easier to scrape than Google.
func (s *WebSearcher) Search(query string) ([]SearchResult, error) {
	baseURL := "https://html.duckduckgo.com/html/"

	vals := url.Values{}
	vals.Add("q", query)

	req, err := http.NewRequest("POST", baseURL, strings.NewReader(vals.Encode()))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.114 Safari/537.36")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("search status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	doc.Find(".result").Each(func(i int, sel *goquery.Selection) {
		if len(results) >= 5 {
			return
		}

		title := sel.Find(".result__title a").Text()
		link, _ := sel.Find(".result__title a").Attr("href")
		snippet := sel.Find(".result__snippet").Text()

		if title != "" && link != "" {
			results = append(results, SearchResult{
				Title:   strings.TrimSpace(title),
				Link:    link,
				Snippet: strings.TrimSpace(snippet),
			})
		}
	})

	return results, nil
}

// LookupInstitution searches for an institution and returns the best
// matching result, preferring hits whose title mentions the name.
func (s *WebSearcher) LookupInstitution(name string) (*SearchResult, error) {
	results, err := s.Search(name + " university research institution")
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no search results for %q", name)
	}

	nameLower := strings.ToLower(name)
	for i := range results {
		if strings.Contains(strings.ToLower(results[i].Title), nameLower) {
			return &results[i], nil
		}
	}
	return &results[0], nil
}
