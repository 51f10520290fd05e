package chat

import (
	"fmt"
	"strings"
)

// documentKinds maps a keyword found in a requested file name to a generic
// description used for fallback synthesis when the file is not in the index.
var documentKinds = map[string]string{
	"invoice":  "An invoice typically contains an invoice number, issue and due dates, the seller and buyer details, line items with quantities and unit prices, subtotals, taxes, and a total amount due.",
	"receipt":  "A receipt typically contains the merchant name, purchase date, itemized charges, taxes, the total amount paid, and the payment method.",
	"contract": "A contract typically contains the parties involved, effective and termination dates, obligations of each party, payment terms, and signature blocks.",
	"report":   "A report typically contains a title, an executive summary, findings organized in sections, supporting figures or tables, and conclusions or recommendations.",
}

// buildContext assembles the grounding context from the retrieved fragments
// and, for every explicitly requested file that produced no hit, appends a
// clearly labeled synthetic placeholder when the name matches a known
// document kind. Names matching no kind get no placeholder.
func buildContext(hits []Hit, requested []string) string {
	var sb strings.Builder

	found := make(map[string]bool, len(hits))
	for _, h := range hits {
		found[strings.ToLower(h.FileName)] = true
		sb.WriteString(fmt.Sprintf("Document: %s\nContent: %s\n\n", h.FileName, h.Content))
	}

	for _, name := range requested {
		if found[strings.ToLower(name)] {
			continue
		}
		if desc, ok := kindDescription(name); ok {
			sb.WriteString(fmt.Sprintf(
				"[System note: the exact content of %q is not available in the index. "+
					"The following is a generic description of this kind of document, not retrieved content.]\n%s\n\n",
				name, desc))
		}
	}

	return sb.String()
}

func kindDescription(fileName string) (string, bool) {
	lower := strings.ToLower(fileName)
	for keyword, desc := range documentKinds {
		if strings.Contains(lower, keyword) {
			return desc, true
		}
	}
	return "", false
}

func buildPrompt(context, query string) string {
	return fmt.Sprintf(`You are a helpful assistant answering questions about stored documents.

Use the context below to answer the user's question. Answer from the context first. If the literal answer is not present, reason about and infer from what is there rather than refusing; do not answer with "I don't know". When the context contains numbers, perform the basic arithmetic or logical inference needed to answer. Respond in plain text without markdown formatting.

Context:
%s
Question: %s

Answer:`, context, query)
}

// sanitize strips formatting markers the generator is not supposed to emit.
func sanitize(answer string) string {
	answer = strings.ReplaceAll(answer, "**", "")
	answer = strings.ReplaceAll(answer, "##", "")
	return strings.TrimSpace(answer)
}
