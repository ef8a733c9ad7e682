// Package chsi verifies enrollment verification codes against the CHSI
// student-record report page. The page sits behind an anti-automation
// interstitial, so the adapter drives a real headless browser, waits for the
// report to settle, and reads the result out of the DOM in one evaluation.
package chsi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/chromedp/chromedp"

	"github.com/ZGSQ-QIANG/scholarship/internal/adapter/verifier/browser"
	"github.com/ZGSQ-QIANG/scholarship/internal/domain"
)

const defaultBaseURL = "https://www.chsi.com.cn/xlcx/bg.do"

// extractScript reads the verification result out of the loaded report page.
// Selectors follow the live page markup: #resultTable holds the student
// record, .result-error h2 holds the portal's own failure message.
const extractScript = `(() => {
	const table = document.querySelector('#resultTable');
	if (table) {
		let name = '';
		for (const item of table.querySelectorAll('.report-info-item')) {
			const label = item.querySelector('.label');
			if (label && label.textContent.includes('姓名')) {
				const value = item.querySelector('.value');
				if (value) name = value.textContent;
				break;
			}
		}
		return {hasTable: true, officialName: name, tableHTML: table.innerHTML, errorText: ''};
	}
	const err = document.querySelector('.result-error h2');
	return {hasTable: false, officialName: '', tableHTML: '', errorText: err ? err.textContent : ''};
})()`

// pageState is what extractScript returns.
type pageState struct {
	HasTable     bool   `json:"hasTable"`
	OfficialName string `json:"officialName"`
	TableHTML    string `json:"tableHTML"`
	ErrorText    string `json:"errorText"`
}

// Verifier checks verification codes through a pooled headless browser.
type Verifier struct {
	pool      *browser.Pool
	baseURL   string
	converter *md.Converter
}

// New creates a verifier running its browser sessions through pool.
func New(pool *browser.Pool) *Verifier {
	return &Verifier{
		pool:      pool,
		baseURL:   defaultBaseURL,
		converter: md.NewConverter("", true, nil),
	}
}

// VerifyCredential loads the report page for vcode and compares the claimed
// name against the one on the record.
func (v *Verifier) VerifyCredential(ctx context.Context, vcode, name string) (*domain.VerifierOutcome, error) {
	target := fmt.Sprintf("%s?vcode=%s&srcid=bgcx", v.baseURL, url.QueryEscape(vcode))

	var state pageState
	err := v.pool.Run(ctx,
		chromedp.Navigate(target),
		chromedp.Sleep(browser.SettleDelay),
		chromedp.Evaluate(extractScript, &state),
	)
	if err != nil {
		return &domain.VerifierOutcome{
			Status:  domain.OutcomeError,
			Message: fmt.Sprintf("验证过程发生错误: %v", err),
		}, nil
	}

	return v.decide(state, name), nil
}

// decide maps the extracted page state to an outcome. Kept free of browser
// dependencies so the mapping is testable on its own.
func (v *Verifier) decide(state pageState, claimedName string) *domain.VerifierOutcome {
	if !state.HasTable {
		errorText := strings.TrimSpace(state.ErrorText)
		if errorText != "" {
			return &domain.VerifierOutcome{
				Status:   domain.OutcomeInvalid,
				Message:  errorText,
				Verified: domain.False(),
			}
		}
		return &domain.VerifierOutcome{
			Status:   domain.OutcomeError,
			Message:  "未知错误，无法找到学籍信息或错误提示",
			Verified: domain.False(),
		}
	}

	officialName := strings.TrimSpace(state.OfficialName)
	userName := strings.TrimSpace(claimedName)
	if officialName != userName {
		return &domain.VerifierOutcome{
			Status:  domain.OutcomeNameMismatch,
			Message: fmt.Sprintf("验证码有效，但姓名不匹配 (页面姓名: %s, 提供姓名: %s)", officialName, userName),
		}
	}

	markdown, err := v.converter.ConvertString(state.TableHTML)
	if err != nil {
		markdown = state.TableHTML
	}
	return &domain.VerifierOutcome{
		Status:  domain.OutcomeSuccess,
		Message: "验证码有效，学籍信息如下：",
		Detail: map[string]any{
			"markdown": markdown,
		},
	}
}
