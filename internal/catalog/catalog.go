package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

//go:embed meals.json
var defaultMeals []byte

// ErrInvalidMeal is returned when a catalog record cannot be scheduled.
var ErrInvalidMeal = errors.New("invalid meal record")

// Default returns the catalog shipped with the binary.
func Default() ([]Meal, error) {
	var meals []Meal
	if err := json.Unmarshal(defaultMeals, &meals); err != nil {
		return nil, fmt.Errorf("failed to decode embedded catalog: %w", err)
	}
	return meals, nil
}

// Parse decodes and validates a JSON array of meals.
func Parse(r io.Reader) ([]Meal, error) {
	var meals []Meal
	if err := json.NewDecoder(r).Decode(&meals); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	for _, m := range meals {
		if err := Validate(m); err != nil {
			return nil, err
		}
	}
	return meals, nil
}

// LoadFile reads a catalog from disk.
func LoadFile(path string) ([]Meal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Load returns the catalog at path, or the embedded one when path is empty.
func Load(path string) ([]Meal, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

// Save writes the catalog as indented JSON.
func Save(path string, meals []Meal) error {
	data, err := json.MarshalIndent(meals, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	return nil
}

// Validate checks the fields the scheduler relies on.
func Validate(m Meal) error {
	switch {
	case m.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidMeal)
	case m.Name == "":
		return fmt.Errorf("%w: %s has no name", ErrInvalidMeal, m.ID)
	case m.Price < 0:
		return fmt.Errorf("%w: %s has a negative price", ErrInvalidMeal, m.ID)
	case len(m.MealTime) == 0:
		return fmt.Errorf("%w: %s has no meal time", ErrInvalidMeal, m.ID)
	}
	for _, mt := range m.MealTime {
		if _, ok := ParseMealTime(string(mt)); !ok {
			return fmt.Errorf("%w: %s has unknown meal time %q", ErrInvalidMeal, m.ID, mt)
		}
	}
	return nil
}

// Merge overlays extra onto base by meal id. Existing records keep their
// position; new ones are appended in the order they appear in extra.
func Merge(base, extra []Meal) []Meal {
	out := make([]Meal, len(base))
	copy(out, base)

	index := make(map[string]int, len(out))
	for i, m := range out {
		index[m.ID] = i
	}
	for _, m := range extra {
		if i, ok := index[m.ID]; ok {
			out[i] = m
			continue
		}
		index[m.ID] = len(out)
		out = append(out, m)
	}
	return out
}

// Vendors returns the distinct vendor names in alphabetical order.
func Vendors(meals []Meal) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range meals {
		if m.Vendor.Name == "" || seen[m.Vendor.Name] {
			continue
		}
		seen[m.Vendor.Name] = true
		names = append(names, m.Vendor.Name)
	}
	sort.Strings(names)
	return names
}
