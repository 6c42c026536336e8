package analysis

import "regexp"

var receiptPatterns = []regexp.Regexp{
	*regexp.MustCompile(`(?i)order\s+number`),
	*regexp.MustCompile(`(?i)subtotal`),
	*regexp.MustCompile(`(?i)total`),
	*regexp.MustCompile(`(?i)paid with`),
	*regexp.MustCompile(`(?i)items`),
	*regexp.MustCompile(`\$\d+\.\d+`),
	*regexp.MustCompile(`(?i)receipt`),
	*regexp.MustCompile(`(?i)invoice`),
	*regexp.MustCompile(`(?i)confirmation`),
}

var listPatterns = []regexp.Regexp{
	*regexp.MustCompile(`(?m)^\s*[*\-•]\s+`),
	*regexp.MustCompile(`(?m)^\s*\d+\.\s+`),
	*regexp.MustCompile(`(?m)^\s*[a-z]\)\s+`),
}

// DetectContentType classifies text as a receipt, a list or general prose.
// Receipt patterns are tested first and the first match wins.
func DetectContentType(text string) ContentType {
	for i := range receiptPatterns {
		if receiptPatterns[i].MatchString(text) {
			return ContentReceipt
		}
	}
	for i := range listPatterns {
		if listPatterns[i].MatchString(text) {
			return ContentList
		}
	}
	return ContentGeneral
}
