package store

import (
	"sort"
	"time"

	"cafepos/internal/domain"
)

func DefaultSettings() domain.Settings {
	return domain.Settings{
		StoreName:                "Still Café",
		VatPercentage:            12,
		SeniorDiscountPercentage: 20,
		PwdDiscountPercentage:    20,
	}
}

type seedItem struct {
	id       string
	category string
	name     string
	price    float64
	stock    int
}

var defaultMenu = []seedItem{
	{"1", "Espresso-Based", "Americano", 80, 50},
	{"2", "Espresso-Based", "Café Latte", 100, 50},
	{"3", "Espresso-Based", "Cappuccino", 100, 50},
	{"4", "Espresso-Based", "Mocha", 130, 50},
	{"5", "Espresso-Based", "White Chocolate Mocha", 130, 50},
	{"6", "Espresso-Based", "Caramel Macchiatto", 140, 50},
	{"7", "Espresso-Based", "Spanish Latte", 120, 50},
	{"8", "Espresso-Based", "Vietnamese Latte", 120, 50},
	{"9", "Special Drinks", "Iced Triple Kick", 150, 50},
	{"10", "Special Drinks", "Iced Sea Salt Latte", 130, 50},
	{"11", "Non-Espresso", "Iced Matcha Latte", 130, 50},
	{"12", "Non-Espresso", "Iced Chocolate", 130, 50},
	{"13", "Non-Espresso", "Still Iced Tea", 110, 50},
	{"14", "Coffee-Based Frappe", "Java Chip", 135, 50},
	{"15", "Coffee-Based Frappe", "Coffee Jelly", 135, 50},
	{"16", "Coffee-Based Frappe", "Caramel Frappe", 120, 50},
	{"17", "Non-Coffee Frappe", "Oreo", 130, 50},
	{"18", "Non-Coffee Frappe", "Chocolate", 130, 50},
	{"19", "Non-Coffee Frappe", "Strawberries & Cream", 140, 50},
	{"20", "Non-Coffee Frappe", "Mangoes & Cream", 120, 50},
	{"21", "Pasta", "Bolognese", 135, 30},
	{"22", "Pasta", "Creamy Carbonara", 135, 30},
}

// SeedProducts returns the default café menu stamped with now.
func SeedProducts(now time.Time) []domain.Product {
	products := make([]domain.Product, 0, len(defaultMenu))
	for _, item := range defaultMenu {
		products = append(products, domain.Product{
			ID:        item.id,
			Category:  item.category,
			Name:      item.name,
			Price:     item.price,
			StockQty:  item.stock,
			CreatedAt: now,
		})
	}
	return products
}

// SeedCategories returns one category per distinct menu category. IDs are
// derived from the name so reseeding is idempotent.
func SeedCategories(now time.Time) []domain.Category {
	seen := make(map[string]bool)
	categories := make([]domain.Category, 0, 8)
	for _, item := range defaultMenu {
		if seen[item.category] {
			continue
		}
		seen[item.category] = true
		categories = append(categories, domain.Category{
			ID:        "cat-" + slug(item.category),
			Name:      item.category,
			CreatedAt: now,
		})
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories
}

func slug(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out = append(out, c+('a'-'A'))
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			out = append(out, c)
		default:
			if len(out) > 0 && out[len(out)-1] != '-' {
				out = append(out, '-')
			}
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	return string(out)
}
