package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/compiq/compiq/internal/comps"
)

const reportCSS = `
body{font-family:Georgia,'Times New Roman',serif;color:#1c1917;margin:0;background:#fff;}
.wrap{max-width:960px;margin:0 auto;padding:1rem 1.25rem;}
.report-meta{color:#44403c;font-size:0.9rem;margin-bottom:0.75rem;}
.report-meta strong{color:#1c1917;}
.report-badge{display:inline-block;background:#ecfdf5;color:#065f46;border:1px solid #6ee7b7;border-radius:4px;padding:0.15rem 0.5rem;font-size:0.8rem;margin-right:0.4rem;}
.report-badge.exhausted{background:#fef3c7;color:#78350f;border-color:#fcd34d;}
.report-badge.cancelled{background:#fee2e2;color:#7f1d1d;border-color:#fca5a5;}
.report-html h1{font-size:1.6rem;border-bottom:2px solid #1c1917;padding-bottom:0.3rem;}
.report-html h2{font-size:1.2rem;margin-top:1.4rem;}
.report-html h3{font-size:1rem;}
.report-html table{width:100%;border-collapse:collapse;border:1px solid #a8a29e;font-size:0.85rem;}
.report-html th,.report-html td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;}
.report-html thead th{background:#f1f5f9;font-weight:700;}
.report-html pre{background:#f5f5f4;border:1px solid #d6d3d1;padding:0.6rem;font-size:0.75rem;overflow-x:auto;}
@media print{@page{size:auto;margin:12mm;} .wrap{max-width:none;padding:0;}}
`

// BuildHTML converts a finished search envelope into a self-contained HTML
// document suitable for viewing or PDF printing.
func BuildHTML(env comps.ResponseEnvelope) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(env.ReportMarkdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}

	badgeClass := ""
	switch env.Status {
	case comps.StatusExhausted:
		badgeClass = " exhausted"
	case comps.StatusCancelled:
		badgeClass = " cancelled"
	}

	var b strings.Builder
	b.WriteString("<!doctype html><html><head><meta charset='utf-8'><title>Comparable Companies Report</title>")
	b.WriteString("<style>" + reportCSS + "</style></head><body><div class='wrap'>")
	b.WriteString("<div class='report-meta'>")
	b.WriteString("<div><strong>Target:</strong> " + html.EscapeString(env.TargetName) + "</div>")
	b.WriteString("<div><strong>Search ID:</strong> " + html.EscapeString(env.SearchID) + "</div>")
	b.WriteString("</div>")
	fmt.Fprintf(&b, "<span class='report-badge%s'>%s</span>", badgeClass, html.EscapeString(string(env.Status)))
	fmt.Fprintf(&b, "<span class='report-badge'>%d comparables</span>", len(env.Comparables))
	b.WriteString("<div class='report-html'>" + content.String() + "</div>")
	b.WriteString("</div></body></html>")
	return b.String(), nil
}
