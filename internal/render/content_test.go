package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"arcos-chat/internal/models"
)

func TestRender_NeutralizesActiveContent(t *testing.T) {
	r := NewRenderer()

	inputs := map[models.ContentType]string{
		models.ContentMarkdown: "Hola **mundo**\n\n<script>alert(1)</script>\n\n<img src=x onerror=\"alert(2)\">",
		models.ContentHTML:     `<p onclick="steal()">Hola</p><script>alert(1)</script><img src="x" onerror="alert(2)"><a href="javascript:alert(3)">x</a>`,
	}

	plain := string(r.Render(models.ContentPlain, `<script>alert(1)</script> <img src=x onerror=alert(2)>`))
	require.NotContains(t, plain, "<script")
	require.NotContains(t, plain, "<img")
	require.Contains(t, plain, "&lt;script&gt;")

	for ct, in := range inputs {
		out := strings.ToLower(string(r.Render(ct, in)))
		require.NotContains(t, out, "<script", ct)
		require.NotContains(t, out, "onerror", ct)
		require.NotContains(t, out, "onclick", ct)
		require.NotContains(t, out, "javascript:", ct)
	}
}

func TestRender_MarkdownFormatting(t *testing.T) {
	r := NewRenderer()

	out := string(r.Render(models.ContentMarkdown, "Fabricamos en **Suiza**.\n\n- cuero\n- acero"))
	require.Contains(t, out, "<strong>Suiza</strong>")
	require.Contains(t, out, "<li>cuero</li>")
}

func TestRender_LinksOpenInNewContext(t *testing.T) {
	r := NewRenderer()

	cases := map[models.ContentType]string{
		models.ContentMarkdown: "Mira [la tienda](https://example.com/shop) o https://example.com/bare",
		models.ContentHTML:     `<a href="https://example.com/shop" target="_self" rel="opener">tienda</a>`,
	}
	for ct, in := range cases {
		out := string(r.Render(ct, in))
		require.Contains(t, out, `href="https://example.com/shop"`, ct)
		require.Equal(t, strings.Count(out, "<a "), strings.Count(out, `target="_blank"`), ct)
		require.Equal(t, strings.Count(out, "<a "), strings.Count(out, `rel="noopener noreferrer"`), ct)
		require.NotContains(t, out, `target="_self"`, ct)
		require.NotContains(t, out, `rel="opener"`, ct)
	}
}

func TestRender_PlainTextKeepsStructure(t *testing.T) {
	r := NewRenderer()

	out := string(r.Render(models.ContentPlain, "Hola & bienvenido\nsegunda línea\n\nnuevo párrafo"))
	require.Equal(t, "<p>Hola &amp; bienvenido<br>segunda línea</p><p>nuevo párrafo</p>", out)
}

func TestRender_Blank(t *testing.T) {
	require.Empty(t, NewRenderer().Render(models.ContentMarkdown, "  \n "))
}

func TestRewriteLinks_LeavesOtherMarkupAlone(t *testing.T) {
	in := `<p>uno <em>dos</em></p><a href="/x">x</a>`
	out := rewriteLinks(in)
	require.Equal(t, `<p>uno <em>dos</em></p><a href="/x" target="_blank" rel="noopener noreferrer">x</a>`, out)
}
