package capabilities

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aretw0/switchboard/pkg/capability"
	"github.com/aretw0/switchboard/pkg/schema"
)

const (
	SearchName           = "web_search"
	DefaultSearchBaseURL = "https://api.tavily.com/search"
	DefaultMaxResults    = 3
	searchFailure        = "Failed to perform web search. Please try again later."
	searchEmpty          = "No search results found."
)

// SearchConfig configures the Tavily provider.
type SearchConfig struct {
	APIKey  string
	BaseURL string
}

type searchInput struct {
	Query      string `mapstructure:"query"`
	MaxResults int    `mapstructure:"max_results"`
}

type searchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Snippet string `json:"snippet"`
}

// NewSearch returns the web_search capability.
func NewSearch(cfg SearchConfig, opts Options) capability.Capability {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultSearchBaseURL
	}
	logger := opts.logger()
	client := opts.client()

	s := schema.Schema{
		"query":       schema.Field(schema.String(), schema.WithDescription("Search query")),
		"max_results": schema.Field(schema.Int(), schema.WithDescription("Maximum number of results"), schema.WithDefault(DefaultMaxResults)),
	}

	return capability.New(SearchName, "Search the web using Tavily API.", s, func(ctx context.Context, args map[string]any) (string, error) {
		var in searchInput
		if err := capability.Decode(args, &in); err != nil {
			return "", err
		}

		body := map[string]any{
			"query":        in.Query,
			"search_depth": "basic",
		}
		headers := map[string]string{"Authorization": "Bearer " + cfg.APIKey}

		var resp struct {
			Results []searchResult `json:"results"`
		}
		if err := doJSON(ctx, client, http.MethodPost, base, headers, body, &resp); err != nil {
			logger.Error("tavily search failed", "capability", SearchName, "error", err)
			return searchFailure, nil
		}

		results := resp.Results
		if in.MaxResults >= 0 && len(results) > in.MaxResults {
			results = results[:in.MaxResults]
		}
		if len(results) == 0 {
			return searchEmpty, nil
		}

		lines := make([]string, 0, len(results))
		for _, r := range results {
			lines = append(lines, fmt.Sprintf("🔍 %s\nURL: %s\nSummary: %s\n---",
				orElse(r.Title, "No title"),
				orElse(r.URL, "No URL"),
				orElse(r.Content, orElse(r.Snippet, "No content available")),
			))
		}
		return strings.Join(lines, "\n"), nil
	})
}

func orElse(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
