package chips

import "time"

func DefaultRows() []Row {
	return []Row{
		{
			Direction: DirectionRight,
			Speed:     38 * time.Second,
			Chips: []Chip{
				{Label: "Where do we make our products", Variant: VariantLight},
				{Label: "How did we start?", Variant: VariantDark},
				{Label: "Our latest products…", Variant: VariantLight},
				{Label: "Our shops..", Variant: VariantDark},
				{Label: "How are our products made…", Variant: VariantLight},
			},
		},
		{
			Direction: DirectionLeft,
			Speed:     46 * time.Second,
			Chips: []Chip{
				{Label: "Most premium…", Variant: VariantDark},
				{Label: "Where to find us", Variant: VariantLight},
				{Label: "Our history…", Variant: VariantDark},
				{Label: "Where do we make our products", Variant: VariantLight},
				{Label: "How did we start?", Variant: VariantDark},
			},
		},
		{
			Direction: DirectionRight,
			Speed:     54 * time.Second,
			Chips: []Chip{
				{Label: "Our shops..", Variant: VariantLight},
				{Label: "How are our products made…", Variant: VariantDark},
				{Label: "Most premium…", Variant: VariantLight},
				{Label: "Where to find us", Variant: VariantDark},
				{Label: "Our history…", Variant: VariantLight},
			},
		},
	}
}

// DefaultQueries expands the truncated chip labels into full questions.
func DefaultQueries() map[string]string {
	return map[string]string{
		"Where do we make our products": "Where do you make your products?",
		"Our latest products…":          "What are your latest products?",
		"Our shops..":                   "Where are your shops?",
		"How are our products made…":    "How are your products made?",
		"Most premium…":                 "What are your most premium products?",
		"Where to find us":              "Where can I find you?",
		"Our history…":                  "What is the history of the brand?",
	}
}
