package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	meals, err := Default()
	require.NoError(t, err)
	require.NotEmpty(t, meals)

	ids := make(map[string]bool)
	for _, m := range meals {
		assert.NoError(t, Validate(m), m.ID)
		assert.False(t, ids[m.ID], "duplicate id %s", m.ID)
		ids[m.ID] = true
	}

	for _, mt := range MealTimes {
		found := false
		for _, m := range meals {
			if m.ServesAt(mt) {
				found = true
				break
			}
		}
		assert.True(t, found, "no meal for %s", mt)
	}
}

func TestParse(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		meals, err := Parse(strings.NewReader(`[{"id":"a","name":"A","price":5,"mealTime":["lunch"]}]`))
		require.NoError(t, err)
		require.Len(t, meals, 1)
		assert.True(t, meals[0].ServesAt(Lunch))
	})

	t.Run("UnknownMealTime", func(t *testing.T) {
		_, err := Parse(strings.NewReader(`[{"id":"a","name":"A","price":5,"mealTime":["brunch"]}]`))
		assert.ErrorIs(t, err, ErrInvalidMeal)
	})

	t.Run("NegativePrice", func(t *testing.T) {
		_, err := Parse(strings.NewReader(`[{"id":"a","name":"A","price":-1,"mealTime":["lunch"]}]`))
		assert.ErrorIs(t, err, ErrInvalidMeal)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := Parse(strings.NewReader(`{`))
		assert.Error(t, err)
	})
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	meals := []Meal{{ID: "x", Name: "X", Price: 7, MealTime: []MealTime{Dinner}}}

	require.NoError(t, Save(path, meals))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "X", loaded[0].Name)
}

func TestMerge(t *testing.T) {
	base := []Meal{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	extra := []Meal{{ID: "b", Name: "B2"}, {ID: "c", Name: "C"}}

	merged := Merge(base, extra)
	require.Len(t, merged, 3)
	assert.Equal(t, "A", merged[0].Name)
	assert.Equal(t, "B2", merged[1].Name)
	assert.Equal(t, "C", merged[2].Name)
	assert.Equal(t, "B", base[1].Name, "base must not be mutated")
}

func TestMealMatching(t *testing.T) {
	m := Meal{Cuisine: []string{"Thai"}, Tags: []string{"Top Tier", "spicy"}}
	assert.True(t, m.MatchesCuisine("thai"))
	assert.True(t, m.MatchesCuisine("Spicy"))
	assert.False(t, m.MatchesCuisine("italian"))
	assert.True(t, m.HasTag("top tier"))
}

const menuHTML = `
<html><body>
  <div class="menu-item" data-id="pad-thai" data-meal-time="lunch, dinner"
       data-cuisine="thai" data-allergens="peanuts,eggs" data-tags="Top Tier">
    <h3 class="name">Pad Thai</h3>
    <span class="price">$14.00</span>
    <ul class="diet"><li>Gluten-Free</li></ul>
    <span class="calories">720</span>
  </div>
  <div class="menu-item" data-meal-time="breakfast">
    <h3 class="name">Tofu Scramble</h3>
    <span class="price">9.25</span>
    <ul class="diet"><li>vegan</li></ul>
  </div>
  <div class="menu-item" data-meal-time="lunch">
    <h3 class="name">Market Price Fish</h3>
    <span class="price">MP</span>
  </div>
  <div class="menu-item">
    <h3 class="name">Mystery Box</h3>
    <span class="price">$3</span>
  </div>
</body></html>`

func TestParseMenu(t *testing.T) {
	meals, err := ParseMenu(strings.NewReader(menuHTML), "Tokyo Table")
	require.NoError(t, err)
	require.Len(t, meals, 2)

	padThai := meals[0]
	assert.Equal(t, "pad-thai", padThai.ID)
	assert.Equal(t, 14.0, padThai.Price)
	assert.Equal(t, []MealTime{Lunch, Dinner}, padThai.MealTime)
	assert.Equal(t, []string{"peanuts", "eggs"}, padThai.Allergens)
	assert.True(t, padThai.Dietary.GlutenFree)
	assert.Equal(t, 720, padThai.Nutrition.Calories)
	assert.Equal(t, "Tokyo Table", padThai.Vendor.Name)

	scramble := meals[1]
	assert.Equal(t, "tokyo-table-tofu-scramble", scramble.ID)
	assert.True(t, scramble.Dietary.Vegan)
	assert.True(t, scramble.Dietary.Vegetarian)
	assert.NotNil(t, scramble.Allergens)
}

func TestFetchMenu(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/menu" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(menuHTML))
	}))
	defer ts.Close()

	imp := NewImporter()

	t.Run("Success", func(t *testing.T) {
		meals, err := imp.FetchMenu(context.Background(), ts.URL+"/menu", "Tokyo Table")
		require.NoError(t, err)
		assert.Len(t, meals, 2)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := imp.FetchMenu(context.Background(), ts.URL+"/missing", "Tokyo Table")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 404")
	})
}
