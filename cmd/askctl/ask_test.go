package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"arcos-chat/internal/models"
	"arcos-chat/internal/render"
)

func TestReplyMarkdown(t *testing.T) {
	soldOut := false
	reply := &models.AssistantReply{
		Answer: "Estas son nuestras carteras:",
		Products: []models.Product{
			{ID: "1", Title: "Cartera | piel", Price: "99,00 €", OldPrice: "120,00 €", Link: "https://shop.test/1"},
			{ID: "2", Title: "Cartera lona", Price: "49.90 €", Link: "https://shop.test/2", InStock: &soldOut},
			{ID: "3", Title: "C", Price: "1"},
			{ID: "4", Title: "D", Price: "1"},
			{ID: "5", Title: "E", Price: "1"},
		},
		Closing: "¿Quieres ver más?",
	}
	presenter := render.NewPresenter(render.PresenterOptions{Locale: "es-ES", Currency: "EUR"})

	md := replyMarkdown(reply, presenter)

	require.True(t, strings.HasPrefix(md, "Estas son nuestras carteras:\n"))
	require.Contains(t, md, `Cartera \| piel`)
	require.Contains(t, md, "99,00 € ~~120,00 €~~ (-18%)")
	require.Contains(t, md, "| 2 | Cartera lona | 49,90 € | Agotado |")
	require.Contains(t, md, "_1 more not shown_")
	require.True(t, strings.HasSuffix(md, "¿Quieres ver más?\n"))
}

func TestReplyMarkdown_AnswerOnly(t *testing.T) {
	presenter := render.NewPresenter(render.PresenterOptions{})

	md := replyMarkdown(&models.AssistantReply{Answer: "  Hola  "}, presenter)
	require.Equal(t, "Hola\n", md)
}
