// Package refdocs retrieves reference documentation for ontology prefixes:
// a web search per prefix followed by a best-effort scrape of the top hit.
// Failures are isolated per prefix and never abort a batch.
package refdocs

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
	"github.com/ariel-frischer/outcomegen/internal/logging"
	"github.com/ariel-frischer/outcomegen/internal/outcome"
)

// Defaults for Config fields left zero.
const (
	DefaultSearchURL   = "https://api.tavily.com/search"
	DefaultMaxResults  = 3
	DefaultConcurrency = 4
	DefaultHTTPTimeout = 30 * time.Second
	// MaxTextLength bounds the scraped visible text kept per page.
	MaxTextLength = 8000
)

// SearchResult is one hit from the search API.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"content"`
}

// Page is a scraped web page.
type Page struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Text        string `json:"text"`
}

// ReferenceDoc is everything retrieved for one prefix.
type ReferenceDoc struct {
	Prefix  string         `json:"prefix"`
	BaseURI string         `json:"base_uri"`
	Results []SearchResult `json:"results"`
	Page    *Page          `json:"page,omitempty"`
}

// URL returns the best reference URL: the scraped page, then the first
// search hit, then the base URI.
func (d *ReferenceDoc) URL() string {
	switch {
	case d == nil:
		return ""
	case d.Page != nil && d.Page.URL != "":
		return d.Page.URL
	case len(d.Results) > 0 && d.Results[0].URL != "":
		return d.Results[0].URL
	default:
		return d.BaseURI
	}
}

// Result is the outcome of retrieval for one prefix. Doc is never nil; when
// Err is set it holds whatever was retrieved before the failure. ScrapeErr
// records a page fetch that failed after a successful search; the search
// hits are still usable, so the prefix does not count as failed.
type Result struct {
	Doc       *ReferenceDoc
	Err       error
	ScrapeErr error
}

// Results maps ontology prefix to its retrieval result.
type Results map[string]Result

// Prefixes returns the keys in sorted order.
func (r Results) Prefixes() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReferenceURL returns the best URL for prefix, or "" when unknown.
func (r Results) ReferenceURL(prefix string) string {
	res, ok := r[prefix]
	if !ok {
		return ""
	}
	return res.Doc.URL()
}

// Excerpt returns up to n characters of context for prefix: scraped text
// when present, otherwise the first search snippet.
func (r Results) Excerpt(prefix string, n int) string {
	res, ok := r[prefix]
	if !ok || res.Doc == nil {
		return ""
	}
	text := ""
	switch {
	case res.Doc.Page != nil && res.Doc.Page.Text != "":
		text = res.Doc.Page.Text
	case len(res.Doc.Results) > 0:
		text = res.Doc.Results[0].Snippet
	}
	return truncate(strings.TrimSpace(text), n)
}

// Failed returns the prefixes whose retrieval reported an error, sorted.
func (r Results) Failed() []string {
	var out []string
	for _, k := range r.Prefixes() {
		if r[k].Err != nil {
			out = append(out, k)
		}
	}
	return out
}

// Config configures a Retriever.
type Config struct {
	APIKey      string
	SearchURL   string
	MaxResults  int
	HTTPTimeout time.Duration
}

// Retriever searches and scrapes reference documentation.
type Retriever struct {
	cfg         Config
	client      *http.Client
	logger      *zap.Logger
	concurrency int
	scrape      bool
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithHTTPClient sets the HTTP client used for search and scraping.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Retriever) { r.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = logging.OrNop(l) }
}

// WithConcurrency bounds how many prefixes are processed at once.
func WithConcurrency(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithoutScrape disables page scraping; only search results are kept.
func WithoutScrape() Option {
	return func(r *Retriever) { r.scrape = false }
}

// New creates a Retriever. A missing API key is a ConfigurationError.
func New(cfg Config, opts ...Option) (*Retriever, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &apperrors.ConfigurationError{
			Key:     "search_api_key",
			Message: "a search API key is required for reference retrieval (set TAVILY_API_KEY or OUTCOMEGEN_SEARCH_API_KEY)",
		}
	}
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}

	r := &Retriever{
		cfg:         cfg,
		client:      &http.Client{Timeout: cfg.HTTPTimeout},
		logger:      logging.Nop(),
		concurrency: DefaultConcurrency,
		scrape:      true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Retrieve fetches documentation for every hint. The returned map has one
// entry per distinct prefix.
func (r *Retriever) Retrieve(ctx context.Context, hints []outcome.OntologyHint) Results {
	results := make(Results, len(hints))
	docs := make([]Result, len(hints))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, hint := range hints {
		g.Go(func() error {
			docs[i] = r.retrieveOne(gctx, hint)
			return nil
		})
	}
	_ = g.Wait()

	for i, hint := range hints {
		if _, dup := results[hint.Prefix]; dup {
			continue
		}
		results[hint.Prefix] = docs[i]
	}
	return results
}

func (r *Retriever) retrieveOne(ctx context.Context, hint outcome.OntologyHint) Result {
	logger := r.logger.With(zap.String("prefix", hint.Prefix))
	doc := &ReferenceDoc{Prefix: hint.Prefix, BaseURI: hint.BaseURI}

	query := fmt.Sprintf("%s ontology %s", hint.Prefix, hint.BaseURI)
	hits, err := r.search(ctx, query)
	if err != nil {
		logger.Warn("reference search failed", zap.Error(err))
		return Result{Doc: doc, Err: fmt.Errorf("searching %s: %w", hint.Prefix, err)}
	}
	doc.Results = hits
	logger.Debug("reference search done", zap.Int("results", len(hits)))

	if !r.scrape {
		return Result{Doc: doc}
	}

	target := hint.BaseURI
	if len(hits) > 0 && hits[0].URL != "" {
		target = hits[0].URL
	}
	if target == "" {
		return Result{Doc: doc}
	}

	page, err := r.fetchPage(ctx, target)
	if err != nil {
		logger.Debug("reference scrape failed", zap.String("url", target), zap.Error(err))
		return Result{Doc: doc, ScrapeErr: fmt.Errorf("scraping %s: %w", target, err)}
	}
	doc.Page = page
	return Result{Doc: doc}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	// Back off to a rune boundary.
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
