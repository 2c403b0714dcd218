package promo

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed links.yaml
var defaultLinksYAML []byte

// Color is the display accent of a link card.
type Color string

// Supported colors.
const (
	ColorGreen  Color = "green"
	ColorPurple Color = "purple"
	ColorBlue   Color = "blue"
	ColorPink   Color = "pink"
	ColorTeal   Color = "teal"
	ColorOrange Color = "orange"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
	ColorCyan   Color = "cyan"
	ColorAmber  Color = "amber"
)

// Valid reports whether c is a supported color.
func (c Color) Valid() bool {
	switch c {
	case ColorGreen, ColorPurple, ColorBlue, ColorPink, ColorTeal,
		ColorOrange, ColorYellow, ColorRed, ColorCyan, ColorAmber:
		return true
	default:
		return false
	}
}

// Link is one promotional entry.
type Link struct {
	ID    int    `yaml:"id" json:"id"`
	URL   string `yaml:"link" json:"link"`
	Color Color  `yaml:"color" json:"color"`
}

type poolFile struct {
	InviteURL string `yaml:"invite_url"`
	Links     []Link `yaml:"links"`
}

// Pool is the immutable set of links, ordered by id.
type Pool struct {
	links []Link
	byID  map[int]Link
}

// LoadPool reads the pool from a YAML file, or the embedded default when path is empty.
func LoadPool(path string) (*Pool, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ParsePool(defaultLinksYAML)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("promo: read links file: %w", err)
	}
	return ParsePool(b)
}

// ParsePool decodes and validates a YAML pool document.
func ParsePool(data []byte) (*Pool, error) {
	var f poolFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("promo: parse links: %w", err)
	}
	return newPool(f)
}

func newPool(f poolFile) (*Pool, error) {
	if len(f.Links) == 0 {
		return nil, errors.New("promo: empty link pool")
	}

	p := &Pool{
		links: make([]Link, 0, len(f.Links)),
		byID:  make(map[int]Link, len(f.Links)),
	}
	for i, l := range f.Links {
		if strings.TrimSpace(l.URL) == "" {
			l.URL = strings.TrimSpace(f.InviteURL)
		}
		if err := validateLink(l); err != nil {
			return nil, fmt.Errorf("promo: links[%d]: %w", i, err)
		}
		if _, dup := p.byID[l.ID]; dup {
			return nil, fmt.Errorf("promo: links[%d]: duplicate id %d", i, l.ID)
		}
		p.byID[l.ID] = l
		p.links = append(p.links, l)
	}

	sort.Slice(p.links, func(i, j int) bool { return p.links[i].ID < p.links[j].ID })
	return p, nil
}

func validateLink(l Link) error {
	if l.ID <= 0 {
		return fmt.Errorf("id must be positive, got %d", l.ID)
	}
	if !l.Color.Valid() {
		return fmt.Errorf("unsupported color %q", l.Color)
	}
	u, err := url.Parse(l.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("link must be an absolute http(s) URL")
	}
	return nil
}

// All returns a copy of every link ordered by id.
func (p *Pool) All() []Link {
	return append([]Link(nil), p.links...)
}

// Get returns the link with id.
func (p *Pool) Get(id int) (Link, bool) {
	l, ok := p.byID[id]
	return l, ok
}

// Default is the lowest-id link.
func (p *Pool) Default() Link { return p.links[0] }

// Len returns the number of links.
func (p *Pool) Len() int { return len(p.links) }
