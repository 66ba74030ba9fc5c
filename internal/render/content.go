package render

import (
	"bytes"
	"html/template"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"arcos-chat/internal/models"
)

const linkRel = "noopener noreferrer"

// Renderer turns assistant text into HTML that is safe to embed in a page.
// Markdown and HTML both go through the same sanitizer; every link is
// rewritten to open in a new browsing context without a referrer.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			// raw HTML passes through to the sanitizer below
			gmhtml.WithUnsafe(),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(false)
	policy.AllowURLSchemes("http", "https", "mailto", "tel")

	return &Renderer{md: md, policy: policy}
}

// Render dispatches on the content type carried by the turn.
func (r *Renderer) Render(ct models.ContentType, text string) template.HTML {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	switch ct {
	case models.ContentPlain:
		return template.HTML(plainToHTML(text))
	case models.ContentHTML:
		return template.HTML(r.sanitize(text))
	default:
		var buf bytes.Buffer
		if err := r.md.Convert([]byte(text), &buf); err != nil {
			log.Warn().Err(err).Msg("markdown conversion failed, rendering as plain text")
			return template.HTML(plainToHTML(text))
		}
		return template.HTML(r.sanitize(buf.String()))
	}
}

func (r *Renderer) sanitize(s string) string {
	return rewriteLinks(r.policy.Sanitize(s))
}

// plainToHTML escapes text and keeps its paragraph and line structure.
func plainToHTML(text string) string {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")

	var b strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		for i := range lines {
			lines[i] = html.EscapeString(lines[i])
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}

// rewriteLinks forces target and rel on every anchor of already sanitized
// markup. Everything else is copied through byte for byte.
func rewriteLinks(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				log.Debug().Err(z.Err()).Msg("link rewrite stopped early")
			}
			return b.String()
		case html.StartTagToken, html.SelfClosingTagToken:
			raw := string(z.Raw())
			tok := z.Token()
			if tok.DataAtom != atom.A {
				b.WriteString(raw)
				continue
			}
			attrs := tok.Attr[:0]
			for _, a := range tok.Attr {
				if a.Key == "target" || a.Key == "rel" {
					continue
				}
				attrs = append(attrs, a)
			}
			tok.Attr = append(attrs,
				html.Attribute{Key: "target", Val: "_blank"},
				html.Attribute{Key: "rel", Val: linkRel},
			)
			b.WriteString(tok.String())
		default:
			b.Write(z.Raw())
		}
	}
}
