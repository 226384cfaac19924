package main

import (
	"bytes"
	_ "embed"
	stdhtml "html"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed how_to_play.md
var howToPlayMarkdown []byte

const pageHeader = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{title}}</title>
<link rel="stylesheet" href="/static/css/common.css">
</head>
<body>
`

const pageFooter = `</body>
</html>
`

// renderMarkdownPage converts markdown into a standalone html page
func renderMarkdownPage(md []byte) ([]byte, error) {
	converter := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	title := pageTitle(md)
	if title == "" {
		title = "Stack Wars"
	}

	var out bytes.Buffer
	out.WriteString(strings.Replace(pageHeader, "{{title}}", stdhtml.EscapeString(title), 1))
	if err := converter.Convert(md, &out); err != nil {
		return nil, err
	}
	out.WriteString(pageFooter)
	return out.Bytes(), nil
}

// markdownPageHandler serves a page rendered once at startup
func markdownPageHandler(page []byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(page)
	})
}

// pageTitle returns the text of the first level one heading of md
func pageTitle(md []byte) string {
	for _, line := range strings.Split(string(md), "\n") {
		if title, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(title)
		}
	}
	return ""
}
