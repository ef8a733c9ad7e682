// Package cnipa verifies patent certificates against the patent office's
// public publication search. The search form is driven through a headless
// browser; the result page's title and inventor list are compared with the
// claimed values.
package cnipa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/ZGSQ-QIANG/scholarship/internal/adapter/verifier/browser"
	"github.com/ZGSQ-QIANG/scholarship/internal/domain"
)

const (
	defaultBaseURL = "http://epub.cnipa.gov.cn/Index"

	// resultWait bounds the extra wait for the result container after the
	// search is submitted and the settle delay has passed.
	resultWait = 5 * time.Second
)

// extractScript reads the first search hit. The title carries a bracketed
// document-kind prefix (e.g. "[发明公布]...") that decide strips off;
// inventors come as one semicolon-separated dd under the 发明人 label.
const extractScript = `(() => {
	const result = document.querySelector('#result');
	if (!result) {
		return {found: false, rawTitle: '', inventors: ''};
	}
	const title = result.querySelector('h1.title');
	let inventors = '';
	for (const dl of result.querySelectorAll('dl')) {
		if (dl.textContent.includes('发明人')) {
			const dd = dl.querySelector('dd');
			if (dd) inventors = dd.textContent;
			break;
		}
	}
	return {found: true, rawTitle: title ? title.textContent : '', inventors: inventors};
})()`

type pageState struct {
	Found     bool   `json:"found"`
	RawTitle  string `json:"rawTitle"`
	Inventors string `json:"inventors"`
}

// Verifier checks patent applications through a pooled headless browser.
type Verifier struct {
	pool    *browser.Pool
	baseURL string
}

// New creates a verifier running its browser sessions through pool.
func New(pool *browser.Pool) *Verifier {
	return &Verifier{pool: pool, baseURL: defaultBaseURL}
}

// VerifyPatent searches for applyCode and compares the published title and
// inventor list against the claimed values.
func (v *Verifier) VerifyPatent(ctx context.Context, applyCode, name, title string) (*domain.VerifierOutcome, error) {
	var state pageState
	err := v.pool.Run(ctx,
		chromedp.Navigate(v.baseURL),
		chromedp.Sleep(browser.SettleDelay),
		chromedp.SendKeys("input#searchStr", applyCode, chromedp.ByQuery),
		chromedp.Click("button.sbtn", chromedp.ByQuery),
		chromedp.Sleep(browser.SettleDelay),
		waitForResult(),
		chromedp.Evaluate(extractScript, &state),
	)
	if err != nil {
		return &domain.VerifierOutcome{
			Status:  domain.OutcomeError,
			Message: fmt.Sprintf("验证过程发生错误: %v", err),
		}, nil
	}

	return decide(state, name, title), nil
}

// waitForResult waits briefly for the result container. Absence is not an
// error here; the extraction script reports it and decide turns it into the
// invalid-application-number outcome.
func waitForResult() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		waitCtx, cancel := context.WithTimeout(ctx, resultWait)
		defer cancel()
		_ = chromedp.WaitVisible("#result", chromedp.ByQuery).Do(waitCtx)
		return nil
	})
}

// decide maps the extracted page state to an outcome.
func decide(state pageState, claimedName, claimedTitle string) *domain.VerifierOutcome {
	if !state.Found {
		return &domain.VerifierOutcome{
			Status:   domain.OutcomeFailed,
			Message:  "未找到查询结果，申请号无效。",
			Verified: domain.False(),
		}
	}

	officialTitle := cleanTitle(state.RawTitle)
	officialInventors := splitInventors(state.Inventors)

	titleMatch := strings.Contains(strings.ToLower(officialTitle), strings.ToLower(strings.TrimSpace(claimedTitle)))
	nameMatch := false
	trimmedName := strings.TrimSpace(claimedName)
	for _, inventor := range officialInventors {
		if inventor == trimmedName {
			nameMatch = true
			break
		}
	}

	if nameMatch && titleMatch {
		return &domain.VerifierOutcome{
			Status:  domain.OutcomeSuccess,
			Message: "专利证书信息匹配成功，证书真实有效。",
			Detail: map[string]any{
				"official_title":     officialTitle,
				"official_inventors": officialInventors,
				"matched_name":       trimmedName,
			},
		}
	}

	var reasons []string
	if !nameMatch {
		reasons = append(reasons, "发明人列表中未找到'"+trimmedName+"'")
	}
	if !titleMatch {
		reasons = append(reasons, "专利标题不匹配")
	}
	return &domain.VerifierOutcome{
		Status:  domain.OutcomeFailed,
		Message: fmt.Sprintf("专利信息不匹配: %s。", strings.Join(reasons, ", ")),
		Detail: map[string]any{
			"provided_title":     claimedTitle,
			"official_title":     officialTitle,
			"provided_name":      claimedName,
			"official_inventors": officialInventors,
		},
	}
}

// cleanTitle drops the bracketed kind prefix the portal prepends to titles.
func cleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	if idx := strings.Index(title, "]"); idx >= 0 {
		title = strings.TrimSpace(title[idx+1:])
	}
	return title
}

func splitInventors(raw string) []string {
	var inventors []string
	for _, part := range strings.Split(strings.TrimSpace(raw), ";") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			inventors = append(inventors, trimmed)
		}
	}
	return inventors
}
