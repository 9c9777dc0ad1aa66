package usecase

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	replyHeader    = regexp.MustCompile(`(?i)^on .+wrote:\s*$`)
	forwardHeader  = regexp.MustCompile(`(?i)^-{2,}\s*(original message|forwarded message)\s*-{2,}`)
	outlookHeader  = regexp.MustCompile(`(?i)^from:\s.+`)
	signatureStart = regexp.MustCompile(`(?i)^(--\s*|sent from my .+|get outlook for .+)$`)
	markupHint     = regexp.MustCompile(`(?i)<(html|body|div|p|br|span|table|a)\b`)
	blankRun       = regexp.MustCompile(`\n{3,}`)
)

// Sanitize reduces a sent message to the text the user actually wrote: quoted reply
// chains, quoted lines, signatures and markup are removed and blank runs collapsed.
func Sanitize(text string) string {
	if markupHint.MatchString(text) {
		text = PlainText(text)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if replyHeader.MatchString(trimmed) || forwardHeader.MatchString(trimmed) || signatureStart.MatchString(trimmed) {
			break
		}
		// Outlook-style quoted header block
		if outlookHeader.MatchString(trimmed) && len(kept) > 0 {
			break
		}
		if strings.HasPrefix(trimmed, ">") {
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t"))
	}

	out := strings.Join(kept, "\n")
	out = blankRun.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// PlainText renders an HTML body as plain text, one line per block element.
// Blockquoted replies are dropped.
func PlainText(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return src
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "head":
				return
			case "blockquote":
				// quoted reply
				return
			case "br":
				b.WriteString("\n")
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "li", "tr", "h1", "h2", "h3", "h4":
				b.WriteString("\n")
			}
		}
	}
	walk(doc)
	return b.String()
}
