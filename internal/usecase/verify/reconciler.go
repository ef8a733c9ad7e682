package verify

import "github.com/ZGSQ-QIANG/scholarship/internal/domain"

// Reconcile reduces a file's verifier outcomes plus the model's conclusion
// text into a single severity. It is a pure function and never fails.
//
// Rules, in order:
//  1. An empty outcome list is an error: nothing was verified.
//  2. An outcome escalates to error when its status is "error" or its
//     explicit verified flag is false; to warning when its status is
//     "warning". The outcome message is additionally scanned for the fixed
//     negative and cautionary keyword vocabularies.
//  3. The conclusion text is scanned with the conclusion vocabularies.
//  4. Priority: error over warning over success.
func Reconcile(outcomes []domain.VerifierOutcome, conclusion string) domain.Severity {
	if len(outcomes) == 0 {
		return domain.SeverityError
	}

	hasError := false
	hasWarning := false

	for _, o := range outcomes {
		switch {
		case o.Status == domain.OutcomeError,
			o.Verified != nil && !*o.Verified:
			hasError = true
		case o.Status == domain.OutcomeWarning:
			hasWarning = true
		}

		if domain.ContainsAnyKeyword(o.Message, domain.OutcomeErrorKeywords) {
			hasError = true
		} else if domain.ContainsAnyKeyword(o.Message, domain.OutcomeWarningKeywords) {
			hasWarning = true
		}
	}

	if domain.ContainsAnyKeyword(conclusion, domain.ConclusionErrorKeywords) {
		hasError = true
	} else if domain.ContainsAnyKeyword(conclusion, domain.ConclusionWarningKeywords) {
		hasWarning = true
	}

	switch {
	case hasError:
		return domain.SeverityError
	case hasWarning:
		return domain.SeverityWarning
	default:
		return domain.SeveritySuccess
	}
}
