package render

import (
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"arcos-chat/internal/models"
)

const DefaultGridMax = 4

// languages that write the symbol after the amount ("9,99 €"). x/text keeps
// currency patterns internal, so placement is decided here.
var suffixSymbolLanguages = map[string]bool{
	"es": true, "fr": true, "de": true, "it": true, "pt": true, "ca": true,
}

type PresenterOptions struct {
	Max         int
	Locale      string
	Currency    string
	Placeholder string
}

// Card is one product tile of the grid. Skeleton cards carry no data.
type Card struct {
	Skeleton  bool   `json:"skeleton,omitempty"`
	ID        string `json:"id,omitempty"`
	Title     string `json:"title,omitempty"`
	Brand     string `json:"brand,omitempty"`
	Image     string `json:"image,omitempty"`
	Link      string `json:"link,omitempty"`
	Price     string `json:"price,omitempty"`
	OldPrice  string `json:"old_price,omitempty"`
	Discount  int    `json:"discount,omitempty"`
	Available bool   `json:"available"`
	CTALabel  string `json:"cta_label,omitempty"`
	SoldOut   string `json:"sold_out_label,omitempty"`
}

type GridView struct {
	Loading bool   `json:"loading"`
	Cards   []Card `json:"cards"`
}

func (g GridView) Empty() bool { return len(g.Cards) == 0 }

// Presenter lays products out as a bounded card grid with prices formatted
// for the configured locale and currency.
type Presenter struct {
	max         int
	tag         language.Tag
	printer     *message.Printer
	symbol      string
	suffix      bool
	placeholder string
	ctaLabel    string
	soldOut     string
}

func NewPresenter(opts PresenterOptions) *Presenter {
	if opts.Max <= 0 {
		opts.Max = DefaultGridMax
	}

	tag, err := language.Parse(opts.Locale)
	if err != nil {
		log.Warn().Str("locale", opts.Locale).Msg("unknown locale, using es-ES")
		tag = language.MustParse("es-ES")
	}

	unit := currency.EUR
	if u, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(opts.Currency))); err == nil {
		unit = u
	} else if opts.Currency != "" {
		log.Warn().Str("currency", opts.Currency).Msg("unknown currency, using EUR")
	}

	printer := message.NewPrinter(tag)
	base, _ := tag.Base()
	p := &Presenter{
		max:         opts.Max,
		tag:         tag,
		printer:     printer,
		symbol:      currencySymbol(printer, unit),
		suffix:      suffixSymbolLanguages[base.String()],
		placeholder: opts.Placeholder,
		ctaLabel:    "View details",
		soldOut:     "Out of stock",
	}
	if base.String() == "es" {
		p.ctaLabel = "Ver detalles"
		p.soldOut = "Agotado"
	}
	return p
}

// currencySymbol asks CLDR for the symbol of unit in the printer's language.
// The narrow form is used when the regular one is just the ISO code
// ("SEK" becomes "kr").
func currencySymbol(printer *message.Printer, unit currency.Unit) string {
	symbol := symbolOnly(printer.Sprint(currency.Symbol(unit.Amount(0))))
	if symbol == "" || symbol == unit.String() {
		if narrow := symbolOnly(printer.Sprint(currency.NarrowSymbol(unit.Amount(0)))); narrow != "" {
			symbol = narrow
		}
	}
	if symbol == "" {
		return unit.String()
	}
	return symbol
}

// symbolOnly drops the formatted amount that follows the symbol.
func symbolOnly(formatted string) string {
	return strings.TrimSpace(strings.TrimRight(formatted, "0123456789.,\u00a0 "))
}

func (p *Presenter) Max() int { return p.max }

// Grid returns at most Max cards. While loading it returns skeletons of
// the same cardinality, or Max skeletons when the count is not known yet.
func (p *Presenter) Grid(products []models.Product, loading bool) GridView {
	n := len(products)
	if n > p.max {
		n = p.max
	}

	if loading {
		if n == 0 {
			n = p.max
		}
		cards := make([]Card, n)
		for i := range cards {
			cards[i] = Card{Skeleton: true}
		}
		return GridView{Loading: true, Cards: cards}
	}

	cards := make([]Card, 0, n)
	for _, prod := range products[:n] {
		cards = append(cards, p.card(prod))
	}
	return GridView{Cards: cards}
}

func (p *Presenter) card(prod models.Product) Card {
	c := Card{
		ID:        prod.ID,
		Title:     prod.Title,
		Brand:     prod.Brand,
		Image:     prod.Image,
		Link:      prod.Link,
		Available: prod.Available() && prod.Link != "",
		CTALabel:  p.ctaLabel,
		SoldOut:   p.soldOut,
	}
	if c.Image == "" {
		c.Image = p.placeholder
	}

	price, priceOK := ParsePrice(prod.Price)
	if priceOK {
		c.Price = p.FormatPrice(price)
	} else {
		c.Price = strings.TrimSpace(prod.Price)
	}

	if old, ok := ParsePrice(prod.OldPrice); ok && priceOK && old > price {
		c.OldPrice = p.FormatPrice(old)
		c.Discount = Discount(old, price)
	}
	return c
}

// FormatPrice formats v with the locale's separators and currency symbol.
func (p *Presenter) FormatPrice(v float64) string {
	num := p.printer.Sprintf("%.2f", v)
	if p.suffix {
		return num + " " + p.symbol
	}
	return p.symbol + num
}

// Discount is the rounded percentage saved going from old to price.
func Discount(old, price float64) int {
	if old <= 0 || price >= old {
		return 0
	}
	return int(math.Round((old - price) / old * 100))
}

// ParsePrice reads a price written with either separator convention:
// "1.299,99", "1,299.99", "9.99 €", "€9,99", "1.299". When both separators
// appear the last one is the decimal point; a lone separator followed by
// exactly three digits groups thousands.
func ParsePrice(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	digits := strings.Trim(b.String(), ".,")
	if digits == "" || digits == "-" {
		return 0, false
	}

	lastDot := strings.LastIndex(digits, ".")
	lastComma := strings.LastIndex(digits, ",")

	decimal := byte(0)
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			decimal = '.'
		} else {
			decimal = ','
		}
	case lastDot >= 0 || lastComma >= 0:
		sep := byte('.')
		idx := lastDot
		if lastComma >= 0 {
			sep, idx = ',', lastComma
		}
		if strings.Count(digits, string(sep)) == 1 && len(digits)-idx-1 != 3 {
			decimal = sep
		}
	}

	var norm strings.Builder
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		switch {
		case c == decimal:
			norm.WriteByte('.')
		case c == '.' || c == ',':
		default:
			norm.WriteByte(c)
		}
	}

	v, err := strconv.ParseFloat(norm.String(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
