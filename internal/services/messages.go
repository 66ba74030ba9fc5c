package services

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
)

var messageLanguages = []language.Tag{
	language.Spanish, // first entry is the matcher's fallback
	language.English,
}

var messageMatcher = language.NewMatcher(messageLanguages)

var userMessages = map[language.Tag]map[ErrorKind]string{
	language.Spanish: {
		KindNetworkFailure:    "No he podido conectar con el asistente. Revisa tu conexión e inténtalo de nuevo.",
		KindTimeout:           "El asistente está tardando demasiado en responder. Inténtalo de nuevo en unos segundos.",
		KindHTTPStatus:        "El asistente no está disponible ahora mismo (error %d). Inténtalo de nuevo.",
		KindEmptyResponse:     "El asistente no ha devuelto ninguna respuesta. Inténtalo de nuevo.",
		KindMalformedResponse: "No he podido entender la respuesta del asistente. Inténtalo de nuevo.",
		KindMissingOutput:     "La respuesta del asistente llegó vacía. Prueba a reformular tu pregunta.",
		"":                    "Lo siento, no he podido procesar tu pregunta. Inténtalo de nuevo.",
	},
	language.English: {
		KindNetworkFailure:    "Could not reach the assistant. Check your connection and try again.",
		KindTimeout:           "The assistant is taking too long to answer. Please try again in a few seconds.",
		KindHTTPStatus:        "The assistant is unavailable right now (error %d). Please try again.",
		KindEmptyResponse:     "The assistant returned no answer. Please try again.",
		KindMalformedResponse: "The assistant's answer could not be understood. Please try again.",
		KindMissingOutput:     "The assistant's answer was empty. Try rephrasing your question.",
		"":                    "Sorry, I couldn't process your request. Please try again.",
	},
}

// MatchLanguage resolves a locale such as "es-ES" or an Accept-Language
// header to one of the supported message languages.
func MatchLanguage(locales ...string) language.Tag {
	var tags []language.Tag
	for _, l := range locales {
		parsed, _, err := language.ParseAcceptLanguage(l)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	_, idx, _ := messageMatcher.Match(tags...)
	return messageLanguages[idx]
}

// MessageLanguage maps any tag ("en-US", "es-419", ...) onto the closest
// language the message catalogs are written in.
func MessageLanguage(lang language.Tag) language.Tag {
	_, idx, _ := messageMatcher.Match(lang)
	return messageLanguages[idx]
}

// UserMessage maps a dispatch failure to the banner text shown to the user.
func UserMessage(err error, lang language.Tag) string {
	catalog := userMessages[MessageLanguage(lang)]

	var de *DispatchError
	if !errors.As(err, &de) {
		return catalog[""]
	}
	msg, ok := catalog[de.Kind]
	if !ok {
		return catalog[""]
	}
	if de.Kind == KindHTTPStatus {
		return fmt.Sprintf(msg, de.Status)
	}
	return msg
}
