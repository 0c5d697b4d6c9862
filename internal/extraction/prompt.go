package extraction

import (
	"fmt"
	"regexp"
	"strings"

	"fjacquet/card-expenses/internal/carddirectory"
)

const systemPrompt = "You extract corporate card transactions from bank statements. " +
	"You answer with a single JSON document and nothing else."

// BuildPrompt renders the user prompt for one part of a statement. The card
// table and exclusion rules come from the directory; part and parts are
// 1-based and only mentioned when the statement was split.
func BuildPrompt(dir *carddirectory.Directory, text string, part, parts int) string {
	var b strings.Builder

	b.WriteString("Extract EVERY transaction from the statement below and assign each one to a representative.\n\n")

	b.WriteString("CARD TABLE (last 4 digits -> representative):\n")
	var excluded []carddirectory.Entry
	for _, e := range dir.Entries() {
		if e.Excluded {
			excluded = append(excluded, e)
			continue
		}
		fmt.Fprintf(&b, "  - %s: %s\n", e.Last4, e.Representative)
	}
	b.WriteString("\n")

	if len(excluded) > 0 {
		b.WriteString("EXCLUSIONS:\n")
		for _, e := range excluded {
			fmt.Fprintf(&b, "  - Card %s (%s) is a system account.", e.Last4, e.Representative)
			if descs := dir.ExcludedDescriptions(); len(descs) > 0 {
				fmt.Fprintf(&b, " Omit its transactions whose description contains any of: %q.", descs)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("RULES:\n")
	b.WriteString("1. Use the card table to decide the representative. Cards missing from the table go under the name printed on the statement.\n")
	b.WriteString("2. Copy dates EXACTLY as printed. Never invent a date and never use today's date. Leave a date empty if it is not printed.\n")
	b.WriteString("3. Copy amounts as printed, keeping parentheses or minus signs.\n")
	b.WriteString("4. \"Page X of Y\" lines are page breaks: a representative's section may continue on the next page.\n")
	b.WriteString("5. Lines tagged [R<n>] come from spreadsheet row n: echo n as \"row\" for the transaction read from that line.\n")
	b.WriteString("6. For each representative, put the total printed on the statement in \"total_extracto\" and the sum of the extracted amounts in \"total_calculado\".\n\n")

	b.WriteString("OUTPUT FORMAT (JSON only, no commentary):\n")
	b.WriteString(`{
  "Representative Name": {
    "total_extracto": "748.22",
    "total_calculado": "748.22",
    "transactions": [
      {"posting_date": "01/16/2024", "transaction_date": "01/15/2024", "account": "1234", "supplier": "MERCHANT", "amount": "12.50", "row": 17}
    ]
  }
}`)
	b.WriteString("\n\n")

	if parts > 1 {
		fmt.Fprintf(&b, "This is part %d of %d of the statement. Only extract the transactions present in this part.\n\n", part, parts)
	}

	b.WriteString("STATEMENT:\n")
	b.WriteString(text)
	return b.String()
}

var pageLine = regexp.MustCompile(`(?im)^.*\bpage\s+\d+\s+of\s+\d+\b.*$`)

// SplitAtAnchor cuts text in two at the start of the first line containing
// anchor (case-insensitive). Without an anchor hit, the cut falls after the
// page marker closest to the middle, then on the line break closest to the
// middle. second is empty when no useful cut exists.
func SplitAtAnchor(text, anchor string) (first, second string) {
	cut := -1
	if a := strings.TrimSpace(anchor); a != "" {
		if idx := strings.Index(strings.ToLower(text), strings.ToLower(a)); idx > 0 {
			cut = strings.LastIndex(text[:idx], "\n") + 1
		}
	}

	mid := len(text) / 2
	if cut <= 0 {
		for _, loc := range pageLine.FindAllStringIndex(text, -1) {
			end := loc[1]
			if end < len(text) && text[end] == '\n' {
				end++
			}
			if cut <= 0 || abs(end-mid) < abs(cut-mid) {
				cut = end
			}
		}
	}
	if cut <= 0 || cut >= len(text) {
		cut = nearestLineBreak(text, mid)
	}
	if cut <= 0 || cut >= len(text) {
		return text, ""
	}
	return text[:cut], text[cut:]
}

func nearestLineBreak(text string, pos int) int {
	before := strings.LastIndex(text[:pos], "\n")
	after := strings.Index(text[pos:], "\n")
	switch {
	case before < 0 && after < 0:
		return -1
	case after < 0:
		return before + 1
	case before < 0:
		return pos + after + 1
	}
	if pos-before <= after {
		return before + 1
	}
	return pos + after + 1
}

// Chunk cuts text into pieces of at most size bytes on line boundaries. A
// single line longer than size becomes its own chunk.
func Chunk(text string, size int) []string {
	if size <= 0 || len(text) <= size {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if cur.Len() > 0 && cur.Len()+len(line) > size {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if strings.TrimSpace(cur.String()) != "" {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
