package handlers

import (
	"context"
	"strings"

	"golang.org/x/text/language"

	"arcos-chat/internal/conversation"
	"arcos-chat/internal/models"
)

type conversationManager interface {
	Open(meta models.SessionMeta) *conversation.Store
	Get(sessionID, id string) (*conversation.Store, error)
	Close(sessionID, id string) error
}

type handoffSigner interface {
	Issue(h models.Handoff) (string, error)
	Consume(ctx context.Context, token, sessionID string) (*models.Handoff, error)
}

// Conversations opens conversation stores the three ways a view can start:
// from a hand-off token, from a question, or with the introductory answer.
type Conversations struct {
	manager  conversationManager
	signer   handoffSigner
	lang     language.Tag
	basePath string
}

func NewConversations(manager conversationManager, signer handoffSigner, lang language.Tag, basePath string) *Conversations {
	if basePath == "" {
		basePath = "/"
	}
	return &Conversations{manager: manager, signer: signer, lang: lang, basePath: basePath}
}

func (c *Conversations) Start(ctx context.Context, meta models.SessionMeta, token, question string) (*conversation.Store, error) {
	if token != "" {
		h, err := c.signer.Consume(ctx, token, meta.SessionID)
		if err != nil {
			return nil, err
		}
		if h.CurrentURL != "" {
			meta.CurrentURL = h.CurrentURL
		}
		store := c.manager.Open(meta)
		if _, err := store.Seed(ctx, h.Question, h.Dispatch); err != nil {
			c.manager.Close(meta.SessionID, store.ID())
			return nil, err
		}
		return store, nil
	}

	store := c.manager.Open(meta)
	if strings.TrimSpace(question) != "" {
		if _, err := store.Submit(ctx, question); err != nil {
			c.manager.Close(meta.SessionID, store.ID())
			return nil, err
		}
		return store, nil
	}

	if err := store.Introduce(c.intro()); err != nil {
		c.manager.Close(meta.SessionID, store.ID())
		return nil, err
	}
	return store, nil
}

func (c *Conversations) Get(sessionID, id string) (*conversation.Store, error) {
	return c.manager.Get(sessionID, id)
}

func (c *Conversations) Close(sessionID, id string) error {
	return c.manager.Close(sessionID, id)
}

func (c *Conversations) Issue(h models.Handoff) (string, error) {
	return c.signer.Issue(h)
}

// intro is the opening answer of a view started without a question.
func (c *Conversations) intro() models.AssistantReply {
	text := "Based on our premium craftsmanship and decades of experience, our products are manufactured in our state-of-the-art facilities located in Switzerland and Germany. We maintain strict quality control standards throughout the entire production process, ensuring each piece meets our exceptional standards."
	if base, _ := c.lang.Base(); base.String() == "es" {
		text = "Gracias a nuestra artesanía y a décadas de experiencia, fabricamos nuestros productos en nuestras instalaciones de Suiza y Alemania. Mantenemos estrictos controles de calidad durante todo el proceso de producción para que cada pieza esté a la altura de nuestros estándares."
	}
	return models.AssistantReply{
		Answer:      text,
		ContentType: models.ContentPlain,
		Products:    models.FallbackProducts(c.basePath),
	}
}
