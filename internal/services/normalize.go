package services

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"arcos-chat/internal/models"
)

// NormalizeOptions controls how webhook products are reshaped.
type NormalizeOptions struct {
	PriceSuffix      string
	PlaceholderImage string
	LinkPrefix       string
}

func (o NormalizeOptions) withDefaults() NormalizeOptions {
	if o.PriceSuffix == "" {
		o.PriceSuffix = "€"
	}
	if o.PlaceholderImage == "" {
		o.PlaceholderImage = "/static/img/placeholder.svg"
	}
	if o.LinkPrefix == "" {
		o.LinkPrefix = "/products/"
	}
	return o
}

// payloadShape records where the payload was found in the response document.
type payloadShape int

const (
	shapeNone payloadShape = iota
	shapeObjectOutput
	shapeArrayOutput
	shapeBare
)

func (s payloadShape) String() string {
	switch s {
	case shapeObjectOutput:
		return "object.output"
	case shapeArrayOutput:
		return "array[0].output"
	case shapeBare:
		return "bare"
	default:
		return "none"
	}
}

// NormalizeResponse turns a raw webhook body into an AssistantReply.
//
// The body is inspected as text first: an empty body and an unparseable
// body are distinct failures. The payload is then looked up in order at
// result.output, result[0].output and finally the document itself.
func NormalizeResponse(body []byte, opts NormalizeOptions) (*models.AssistantReply, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, newDispatchError(KindEmptyResponse, nil)
	}

	doc, err := decodeDocument(body)
	if err != nil {
		return nil, newDispatchError(KindMalformedResponse, err)
	}

	shape, payload := locatePayload(doc)
	if shape == shapeNone {
		return nil, newDispatchError(KindMissingOutput, errors.New("no output object in response"))
	}

	reply := extractReply(payload, opts.withDefaults())
	if reply.Answer == "" && reply.Closing == "" && len(reply.Products) == 0 {
		return nil, newDispatchError(KindMissingOutput, errors.Errorf("payload at %s has no answer", shape))
	}
	return reply, nil
}

func decodeDocument(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON document")
	}
	return doc, nil
}

func locatePayload(doc any) (payloadShape, map[string]any) {
	switch v := doc.(type) {
	case map[string]any:
		if out, ok := outputObject(v); ok {
			return shapeObjectOutput, out
		}
		return shapeBare, v
	case []any:
		if len(v) > 0 {
			if first, ok := v[0].(map[string]any); ok {
				if out, ok := outputObject(first); ok {
					return shapeArrayOutput, out
				}
			}
		}
	}
	return shapeNone, nil
}

// outputObject accepts an "output" object, or a bare "output" string which
// some agent nodes emit instead of an object.
func outputObject(m map[string]any) (map[string]any, bool) {
	switch out := m["output"].(type) {
	case map[string]any:
		return out, true
	case string:
		if strings.TrimSpace(out) != "" {
			return map[string]any{"response": out}, true
		}
	}
	return nil, false
}

func extractReply(payload map[string]any, opts NormalizeOptions) *models.AssistantReply {
	reply := &models.AssistantReply{
		Answer:  firstString(payload, "response", "answer", "text"),
		Closing: firstString(payload, "closing"),
	}

	items, _ := payload["products"].([]any)
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		reply.Products = append(reply.Products, mapProduct(i, m, opts))
	}
	return reply
}

func mapProduct(index int, m map[string]any, opts NormalizeOptions) models.Product {
	title := firstString(m, "name", "title")

	p := models.Product{
		ID:       strconv.Itoa(index + 1),
		Title:    title,
		Price:    withCurrencySuffix(firstString(m, "price"), opts.PriceSuffix),
		Image:    firstString(m, "image", "image_url"),
		Link:     firstString(m, "link", "url"),
		Brand:    firstString(m, "brand"),
		OldPrice: withCurrencySuffix(firstString(m, "old_price", "oldPrice"), opts.PriceSuffix),
	}
	if p.Image == "" {
		p.Image = opts.PlaceholderImage
	}
	if p.Link == "" {
		p.Link = opts.LinkPrefix + Slugify(title)
	}
	for _, key := range []string{"in_stock", "inStock"} {
		if b, ok := m[key].(bool); ok {
			p.InStock = &b
			break
		}
	}
	return p
}

// firstString returns the first key holding a non-empty string or number.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func withCurrencySuffix(price, suffix string) string {
	if price == "" || strings.Contains(price, suffix) {
		return price
	}
	return price + " " + suffix
}

// Slugify lowercases a product name, drops diacritics and joins words with
// dashes: "Cinturón Artesano" -> "cinturon-artesano".
func Slugify(name string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(stripMarks, name)
	if err != nil {
		plain = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
