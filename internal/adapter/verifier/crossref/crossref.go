// Package crossref verifies academic papers against the CrossRef works API.
//
// Lookup strategy mirrors what a human reviewer would do: an exact DOI query
// first when the model extracted one, then a best-match title search. The
// matched record's title and author list are compared against the claimed
// values to decide the outcome.
package crossref

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ZGSQ-QIANG/scholarship/internal/domain"
)

const (
	defaultBaseURL   = "https://api.crossref.org/works"
	defaultUserAgent = "ScholarshipVerifier/1.0 (mailto:ops@example.edu)"
	defaultTimeout   = 10 * time.Second
)

// Config configures the CrossRef client.
type Config struct {
	BaseURL   string
	UserAgent string // polite-pool contact header, see api.crossref.org etiquette
	Timeout   time.Duration
}

// Client queries CrossRef.
type Client struct {
	http    *resty.Client
	baseURL string
}

// New creates a CrossRef client from cfg.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	http := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent)

	return &Client{http: http, baseURL: baseURL}
}

// work is the subset of a CrossRef record the verifier needs.
type work struct {
	Title          []string `json:"title"`
	DOI            string   `json:"DOI"`
	Publisher      string   `json:"publisher"`
	ContainerTitle []string `json:"container-title"`
	Author         []struct {
		Given  string `json:"given"`
		Family string `json:"family"`
	} `json:"author"`
}

type workResponse struct {
	Message work `json:"message"`
}

type searchResponse struct {
	Message struct {
		Items []work `json:"items"`
	} `json:"message"`
}

// VerifyPaper checks that the claimed paper exists and that at least one of
// the claimed authors appears in the official author list.
func (c *Client) VerifyPaper(ctx context.Context, title string, authors []string, doi string) (*domain.VerifierOutcome, error) {
	var found *work

	if doi != "" {
		found = c.lookupByDOI(ctx, doi)
	}
	if found == nil && title != "" {
		found = c.searchByTitle(ctx, title)
	}

	if found == nil {
		return &domain.VerifierOutcome{
			Status:  domain.OutcomeFailed,
			Message: "未在 CrossRef 数据库中检索到该论文，请检查是否已正式发表。",
		}, nil
	}

	officialTitle := first(found.Title)
	if !titlesMatch(title, officialTitle) {
		return &domain.VerifierOutcome{
			Status:  domain.OutcomeWarning,
			Message: "论文题目不匹配，未找到该论文，请确认。",
			Detail: map[string]any{
				"provided_title": title,
				"official_title": officialTitle,
				"official_doi":   found.DOI,
			},
		}, nil
	}

	officialAuthors := make([]string, 0, len(found.Author))
	for _, person := range found.Author {
		full := strings.TrimSpace(strings.ToLower(person.Given + " " + person.Family))
		officialAuthors = append(officialAuthors, full)
	}

	matched := matchAuthors(authors, officialAuthors)
	if len(matched) == 0 {
		return &domain.VerifierOutcome{
			Status:  domain.OutcomeWarning,
			Message: "论文真实存在，但在作者列表中未找到您的名字。",
			Detail: map[string]any{
				"title":            officialTitle,
				"official_authors": officialAuthors,
			},
		}, nil
	}

	return &domain.VerifierOutcome{
		Status:  domain.OutcomeSuccess,
		Message: "论文验证通过",
		Detail: map[string]any{
			"title":           officialTitle,
			"doi":             found.DOI,
			"publisher":       found.Publisher,
			"journal":         first(found.ContainerTitle),
			"matched_authors": matched,
		},
	}, nil
}

// lookupByDOI fetches a work by its DOI. A miss of any kind (404, transport
// failure) returns nil so the title search can take over.
func (c *Client) lookupByDOI(ctx context.Context, doi string) *work {
	clean := strings.TrimSpace(doi)
	clean = strings.TrimPrefix(clean, "https://doi.org/")
	clean = strings.TrimPrefix(clean, "http://doi.org/")
	if clean == "" {
		return nil
	}

	var body workResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get(fmt.Sprintf("%s/%s", c.baseURL, clean))
	if err != nil || resp.StatusCode() != 200 {
		return nil
	}
	return &body.Message
}

// searchByTitle returns the best-ranked title match, or nil when the search
// yields nothing.
func (c *Client) searchByTitle(ctx context.Context, title string) *work {
	var body searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query.title": title,
			"rows":        "1",
			"select":      "title,DOI,author,publisher,created,container-title",
		}).
		SetResult(&body).
		Get(c.baseURL)
	if err != nil || resp.StatusCode() != 200 {
		return nil
	}
	if len(body.Message.Items) == 0 {
		return nil
	}
	return &body.Message.Items[0]
}

func titlesMatch(claimed, official string) bool {
	return strings.ToLower(strings.TrimSpace(claimed)) == strings.ToLower(strings.TrimSpace(official))
}

// matchAuthors keeps every claimed author that appears in the official list.
// A substring match in either direction suffices ("Zhang" in "San Zhang");
// otherwise names are compared token-wise so an abbreviated given name still
// matches, e.g. "J. Smith" against "John Smith".
func matchAuthors(claimed []string, official []string) []string {
	var matched []string
	for _, author := range claimed {
		lower := strings.ToLower(author)
		for _, real := range official {
			if strings.Contains(real, lower) || strings.Contains(lower, real) || namesEquivalent(lower, real) {
				matched = append(matched, author)
				break
			}
		}
	}
	return matched
}

// namesEquivalent compares two lowercased names token by token. The family
// name (last token) must be identical; every other provided token must be a
// prefix of the corresponding official token, which lets initials like "j."
// stand in for "john".
func namesEquivalent(claimed, official string) bool {
	a := strings.Fields(strings.ReplaceAll(claimed, ".", ""))
	b := strings.Fields(strings.ReplaceAll(official, ".", ""))
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return false
	}
	if a[len(a)-1] != b[len(b)-1] {
		return false
	}
	for i := 0; i < len(a)-1; i++ {
		if !strings.HasPrefix(b[i], a[i]) && !strings.HasPrefix(a[i], b[i]) {
			return false
		}
	}
	return true
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
