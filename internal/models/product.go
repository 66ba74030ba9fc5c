package models

// Product is a card shown under an assistant turn. IDs are positional
// within the reply that carried them.
type Product struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Price    string `json:"price"`
	Image    string `json:"image"`
	Link     string `json:"link"`
	Brand    string `json:"brand,omitempty"`
	OldPrice string `json:"old_price,omitempty"`
	InStock  *bool  `json:"in_stock,omitempty"`
}

// Available reports whether the call-to-action should be enabled. Unknown
// stock counts as available.
func (p Product) Available() bool {
	return p.InStock == nil || *p.InStock
}

// FallbackProducts is shown by the introductory answer when no question was
// handed off from the landing page.
func FallbackProducts(basePath string) []Product {
	return []Product{
		{ID: "1", Title: "Premium Leather Wallet", Price: "129.99 €", Image: basePath + "static/img/product-wallet.svg", Link: basePath + "products/wallet"},
		{ID: "2", Title: "Artisan Watch Collection", Price: "899.99 €", Image: basePath + "static/img/product-watch.svg", Link: basePath + "products/watch"},
		{ID: "3", Title: "Handcrafted Belt", Price: "79.99 €", Image: basePath + "static/img/product-belt.svg", Link: basePath + "products/belt"},
		{ID: "4", Title: "Luxury Travel Bag", Price: "459.99 €", Image: basePath + "static/img/product-bag.svg", Link: basePath + "products/bag"},
	}
}
