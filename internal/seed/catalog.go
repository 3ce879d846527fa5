// Package seed builds the starter catalog and loads it into a store.
package seed

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	RegularPrice = 29900
	PremiumPrice = 99900

	DefaultCount = 30
	premiumShare = 0.2
)

// Entry is one catalog title as stored in a catalog YAML file.
type Entry struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Author   string `yaml:"author"`
	CoverURL string `yaml:"cover_url,omitempty"`
	Price    int64  `yaml:"price"`
	Premium  bool   `yaml:"premium"`
	Content  string `yaml:"content,omitempty"`
}

var (
	adjectives = []string{"Silent", "Golden", "Dark", "Eternal", "Lost", "Crimson", "Velvet", "Broken", "Ancient", "Whispering"}
	nouns      = []string{"Empire", "Key", "Shadow", "Throne", "Secret", "Vow", "Legacy", "Storm", "Forest", "Prophecy"}
	authors    = []string{"A. R. Sterling", "Eleanor Vance", "Marcus Thorne", "Silas Blackwood", "Isla Winter", "Victor Cross"}
	covers     = []string{
		"https://images.unsplash.com/photo-1544947950-fa07a98d237f?w=500&q=80",
		"https://images.unsplash.com/photo-1512820790803-83ca734da794?w=500&q=80",
		"https://images.unsplash.com/photo-1589829085413-56de8ae18c73?w=500&q=80",
		"https://images.unsplash.com/photo-1543002588-bfa74002ed7e?w=500&q=80",
		"https://images.unsplash.com/photo-1532012197267-da84d127e765?w=500&q=80",
	}
)

// Generate returns n random titles; about a fifth of them are premium.
func Generate(n int, rng *rand.Rand) []Entry {
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		title := fmt.Sprintf("The %s %s", pick(rng, adjectives), pick(rng, nouns))
		premium := rng.Float64() < premiumShare
		price := int64(RegularPrice)
		if premium {
			title = "✦ " + title
			price = PremiumPrice
		}
		entries = append(entries, Entry{
			ID:       uuid.NewString(),
			Title:    title,
			Author:   pick(rng, authors),
			CoverURL: pick(rng, covers),
			Price:    price,
			Premium:  premium,
			Content:  story(title),
		})
	}
	return entries
}

func pick(rng *rand.Rand, items []string) string {
	return items[rng.IntN(len(items))]
}

func story(title string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The tale of %s starts on a night without stars. ", title)
	for i := 0; i < 20; i++ {
		b.WriteString("Old archives kept the secret, and the few who knew it spoke only in whispers. ")
		fmt.Fprintf(&b, "Each page of %s drew the reader further in. ", title)
	}
	b.WriteString("At last the world went quiet. The End.")
	return b.String()
}

// Load reads a catalog YAML file.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing catalog YAML: %w", err)
	}
	for i := range entries {
		if err := normalize(&entries[i]); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
	}
	return entries, nil
}

// Save writes entries as YAML.
func Save(path string, entries []Entry) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

func normalize(e *Entry) error {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return fmt.Errorf("title is required")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Price == 0 {
		e.Price = RegularPrice
		if e.Premium {
			e.Price = PremiumPrice
		}
	}
	if e.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	return nil
}
