package conversation

import (
	"time"

	"golang.org/x/text/language"

	"arcos-chat/internal/services"
)

const (
	loadingRotateEvery   = 2500 * time.Millisecond
	loadingExtendedAfter = 10 * time.Second
)

type loadingSet struct {
	initial  []string
	extended []string
}

var loadingMessages = map[language.Tag]loadingSet{
	language.Spanish: {
		initial: []string{
			"Dame un segundo, por favor",
			"Un momento, estoy pensando…",
			"Estoy en ello, no tardo nada.",
		},
		extended: []string{
			"Estoy cocinando una buena respuesta para ti...",
			"Esto va a fuego lento… pero sale bien.",
			"Estoy afilando la mejor recomendación.",
			"Estoy echando un vistazo al almacén...",
		},
	},
	language.English: {
		initial: []string{
			"Give me a second, please",
			"One moment, I'm thinking…",
			"On it, won't be long.",
		},
		extended: []string{
			"Cooking up a good answer for you...",
			"This one is slow-cooked… but worth it.",
			"Sharpening the best recommendation.",
			"Taking a look in the warehouse...",
		},
	},
}

// LoadingMessage returns the "assistant is thinking" line for a reply that
// has been pending for elapsed. Lines rotate every 2.5s; after 10s the
// longer-wait set takes over, starting from its first line.
func LoadingMessage(elapsed time.Duration, lang language.Tag) string {
	set, ok := loadingMessages[services.MessageLanguage(lang)]
	if !ok {
		set = loadingMessages[language.Spanish]
	}
	if elapsed < 0 {
		elapsed = 0
	}

	msgs := set.initial
	if elapsed >= loadingExtendedAfter {
		msgs = set.extended
		elapsed -= loadingExtendedAfter
	}
	return msgs[int(elapsed/loadingRotateEvery)%len(msgs)]
}
