package handlers

import (
	"html/template"
	"time"

	"arcos-chat/internal/models"
	"arcos-chat/internal/render"
)

// TurnView is a turn ready to display: its text rendered to safe HTML and
// its products laid out as a grid.
type TurnView struct {
	ID          string           `json:"id"`
	Role        string           `json:"role"`
	Text        string           `json:"text"`
	ContentType string           `json:"content_type"`
	HTML        template.HTML    `json:"html"`
	ClosingHTML template.HTML    `json:"closing_html,omitempty"`
	Grid        render.GridView  `json:"grid"`
	Products    []models.Product `json:"products,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

type ConversationView struct {
	ID             string          `json:"id"`
	State          string          `json:"state"`
	Loading        bool            `json:"loading"`
	LoadingMessage string          `json:"loading_message,omitempty"`
	Error          string          `json:"error,omitempty"`
	Turns          []TurnView      `json:"turns"`
	Skeleton       render.GridView `json:"skeleton"`
}

// Views turns conversation snapshots into what pages and the API return.
type Views struct {
	renderer  *render.Renderer
	presenter *render.Presenter
}

func NewViews(renderer *render.Renderer, presenter *render.Presenter) *Views {
	return &Views{renderer: renderer, presenter: presenter}
}

func (v *Views) Conversation(snap models.ConversationSnapshot) ConversationView {
	view := ConversationView{
		ID:             snap.ID,
		State:          string(snap.State),
		Loading:        snap.State == models.StateAwaitingReply,
		LoadingMessage: snap.LoadingMessage,
		Error:          snap.Error,
		Turns:          make([]TurnView, 0, len(snap.Turns)),
	}
	for _, t := range snap.Turns {
		view.Turns = append(view.Turns, v.turn(t))
	}
	if view.Loading {
		view.Skeleton = v.presenter.Grid(nil, true)
	}
	return view
}

func (v *Views) turn(t models.ChatTurn) TurnView {
	tv := TurnView{
		ID:          t.ID,
		Role:        string(t.Role),
		Text:        t.Text,
		ContentType: string(t.ContentType),
		Products:    t.Products,
		CreatedAt:   t.CreatedAt,
	}
	if t.Role == models.RoleUser {
		// user text is only ever shown escaped
		return tv
	}
	tv.HTML = v.renderer.Render(t.ContentType, t.Text)
	tv.ClosingHTML = v.renderer.Render(t.ContentType, t.Closing)
	tv.Grid = v.presenter.Grid(t.Products, false)
	return tv
}
