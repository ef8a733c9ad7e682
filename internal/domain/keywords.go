package domain

import "strings"

// The severity escalation below scans free text for a fixed Chinese
// vocabulary. This is a documented heuristic inherited from the verification
// policy, not a precise classifier: verifier messages and model conclusions
// are written in Chinese, and a phrase match escalates the file verdict.
// Changing these lists changes observable verdicts.

// OutcomeErrorKeywords escalate a verifier message to error.
var OutcomeErrorKeywords = []string{
	"失败",
	"不存在",
	"错误",
	"无效",
	"不通过",
}

// OutcomeWarningKeywords escalate a verifier message to warning.
var OutcomeWarningKeywords = []string{
	"警告",
	"无法确定",
	"建议",
}

// ConclusionErrorKeywords mark a model conclusion as indicating fabrication
// or an untrustworthy document.
var ConclusionErrorKeywords = []string{
	"不真实",
	"伪造",
	"可疑",
	"失败",
	"不可信",
}

// ConclusionWarningKeywords mark a model conclusion as cautionary.
var ConclusionWarningKeywords = []string{
	"注意",
	"建议",
	"谨慎",
	"无法确定",
}

// ContainsAnyKeyword reports whether text contains at least one keyword from
// vocab. Matching is a case-insensitive substring check; Chinese keywords have
// no word boundaries, so no boundary handling is applied.
func ContainsAnyKeyword(text string, vocab []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range vocab {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
