package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Importer scrapes a vendor's menu page into catalog records.
//
// A menu page lists one `.menu-item` element per dish:
//
//	<div class="menu-item" data-id="pad-thai" data-meal-time="lunch,dinner"
//	     data-cuisine="thai" data-allergens="peanuts,eggs" data-tags="Top Tier">
//	  <h3 class="name">Pad Thai</h3>
//	  <span class="price">$14.00</span>
//	  <ul class="diet"><li>gluten_free</li></ul>
//	  <span class="calories">720</span>
//	</div>
type Importer struct {
	httpClient *http.Client
}

// NewImporter creates an Importer with a bounded HTTP timeout.
func NewImporter() *Importer {
	return &Importer{httpClient: &http.Client{Timeout: 15 * time.Second}}
}

// FetchMenu downloads url and parses it with vendor as the meals' vendor.
func (i *Importer) FetchMenu(ctx context.Context, url, vendor string) ([]Meal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch menu: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch menu: status %d", resp.StatusCode)
	}

	return ParseMenu(resp.Body, vendor)
}

// ParseMenu extracts meals from menu HTML. Items without a name, price or
// meal time are skipped.
func ParseMenu(r io.Reader, vendor string) ([]Meal, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse menu html: %w", err)
	}

	var meals []Meal
	doc.Find(".menu-item").Each(func(_ int, s *goquery.Selection) {
		m, ok := parseMenuItem(s, vendor)
		if ok {
			meals = append(meals, m)
		}
	})
	return meals, nil
}

func parseMenuItem(s *goquery.Selection, vendor string) (Meal, bool) {
	name := strings.TrimSpace(s.Find(".name").First().Text())
	price, err := parsePrice(s.Find(".price").First().Text())
	if name == "" || err != nil {
		return Meal{}, false
	}

	var times []MealTime
	for _, raw := range splitAttr(s, "data-meal-time") {
		if mt, ok := ParseMealTime(raw); ok {
			times = append(times, mt)
		}
	}
	if len(times) == 0 {
		return Meal{}, false
	}

	id, _ := s.Attr("data-id")
	if id == "" {
		id = slug(vendor + " " + name)
	}

	m := Meal{
		ID:        id,
		Name:      name,
		Price:     price,
		Cuisine:   splitAttr(s, "data-cuisine"),
		MealTime:  times,
		Allergens: splitAttr(s, "data-allergens"),
		Tags:      splitAttr(s, "data-tags"),
		Vendor:    Vendor{Name: vendor},
	}
	if m.Allergens == nil {
		m.Allergens = []string{}
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}

	s.Find(".diet li").Each(func(_ int, li *goquery.Selection) {
		switch strings.ToLower(strings.TrimSpace(li.Text())) {
		case "vegan":
			m.Dietary.Vegan = true
			m.Dietary.Vegetarian = true
		case "vegetarian":
			m.Dietary.Vegetarian = true
		case "halal":
			m.Dietary.Halal = true
		case "gluten_free", "gluten-free", "gluten free":
			m.Dietary.GlutenFree = true
		}
	})

	if cal, err := strconv.Atoi(strings.TrimSpace(s.Find(".calories").First().Text())); err == nil {
		m.Nutrition.Calories = cal
	}

	return m, true
}

func parsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
	return strconv.ParseFloat(raw, 64)
}

func splitAttr(s *goquery.Selection, attr string) []string {
	v, ok := s.Attr(attr)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func slug(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			dash = false
		case !dash && sb.Len() > 0:
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
