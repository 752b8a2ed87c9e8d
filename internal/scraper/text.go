package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

const innerTextJS = `document.body ? document.body.innerText : ''`

// blockElements get a line break after their text so labels and values in
// separate blocks land on separate lines.
const blockElements = "p, div, section, article, header, footer, li, tr, h1, h2, h3, h4, h5, h6, td, th, dt, dd"

// readText returns the body's innerText, or text derived from the outer HTML
// when innerText is empty.
func readText(ctx context.Context) (text, source string, err error) {
	if err := chromedp.Run(ctx, chromedp.Evaluate(innerTextJS, &text)); err != nil {
		return "", "", fmt.Errorf("read innerText: %w", err)
	}
	if strings.TrimSpace(text) != "" {
		return text, "innerText", nil
	}

	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", "", fmt.Errorf("read outer html: %w", err)
	}
	text, err = textFromHTML(html)
	if err != nil {
		return "", "", err
	}
	return text, "html", nil
}

// textFromHTML renders HTML to plain text, one block per line.
func textFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript, template, svg").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockElements).AppendHtml("\n")

	return cleanLines(doc.Find("body").Text()), nil
}

// cleanLines collapses whitespace within each line and drops empty lines.
func cleanLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
