package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"arcos-chat/internal/models"
	"arcos-chat/internal/render"
	"arcos-chat/internal/services"
	"arcos-chat/internal/session"
)

type askSettings struct {
	webhookURL string
	source     string
	sessionID  string
	currentURL string
	timeout    time.Duration
	locale     string
	currency   string
	style      string
	raw        bool
}

func newAskCmd() *cobra.Command {
	s := &askSettings{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Send one question to the assistant webhook and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), s, strings.Join(args, " "))
		},
	}

	f := cmd.Flags()
	f.StringVar(&s.webhookURL, "webhook", envOr("ASSISTANT_WEBHOOK_URL", ""), "assistant webhook URL")
	f.StringVar(&s.source, "source", envOr("ASSISTANT_SOURCE", "arcos-askctl"), "source tag sent in the envelope")
	f.StringVar(&s.sessionID, "session", "", "session id to send (a fresh one when empty)")
	f.StringVar(&s.currentURL, "current-url", "", "page URL to report to the assistant")
	f.DurationVar(&s.timeout, "timeout", 10*time.Second, "dispatch timeout")
	f.StringVar(&s.locale, "locale", envOr("LOCALE", "es-ES"), "locale used for prices")
	f.StringVar(&s.currency, "currency", envOr("CURRENCY", "EUR"), "currency used for prices")
	f.StringVar(&s.style, "style", "dark", "glamour style (dark, light, notty, ...)")
	f.BoolVar(&s.raw, "raw", false, "print markdown without terminal styling")
	return cmd
}

func runAsk(ctx context.Context, s *askSettings, question string) error {
	if s.webhookURL == "" {
		return errors.New("no webhook: pass --webhook or set ASSISTANT_WEBHOOK_URL")
	}
	if s.sessionID == "" {
		s.sessionID = session.NewID()
	}

	assistant := services.NewAssistantService(services.AssistantOptions{
		WebhookURL: s.webhookURL,
		Source:     s.source,
		Timeout:    s.timeout,
	})
	reply, err := assistant.Ask(ctx, question, models.SessionMeta{SessionID: s.sessionID, CurrentURL: s.currentURL})
	if err != nil {
		if errors.Is(err, services.ErrEmptyInput) {
			return errors.New("question is blank")
		}
		return errors.Wrap(err, services.UserMessage(err, services.MatchLanguage(s.locale)))
	}

	presenter := render.NewPresenter(render.PresenterOptions{Locale: s.locale, Currency: s.currency})
	md := replyMarkdown(reply, presenter)
	if s.raw {
		fmt.Fprint(os.Stdout, md)
		return nil
	}

	out, err := glamour.Render(md, s.style)
	if err != nil {
		return errors.Wrap(err, "render reply")
	}
	fmt.Fprint(os.Stdout, out)
	return nil
}

// replyMarkdown lays a reply out as one markdown document: the answer, a
// table of the cards the widget would show, then the closing line.
func replyMarkdown(reply *models.AssistantReply, presenter *render.Presenter) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(reply.Answer))
	b.WriteString("\n")

	grid := presenter.Grid(reply.Products, false)
	if !grid.Empty() {
		b.WriteString("\n| # | Product | Price | Link |\n|---|---|---|---|\n")
		for _, c := range grid.Cards {
			price := c.Price
			if c.OldPrice != "" {
				price = fmt.Sprintf("%s ~~%s~~ (-%d%%)", c.Price, c.OldPrice, c.Discount)
			}
			link := c.Link
			if !c.Available {
				link = c.SoldOut
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", c.ID, escapeCell(c.Title), escapeCell(price), link)
		}
		if hidden := len(reply.Products) - len(grid.Cards); hidden > 0 {
			fmt.Fprintf(&b, "\n_%d more not shown_\n", hidden)
		}
	}

	if closing := strings.TrimSpace(reply.Closing); closing != "" {
		b.WriteString("\n")
		b.WriteString(closing)
		b.WriteString("\n")
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
