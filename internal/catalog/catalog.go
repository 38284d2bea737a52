// Package catalog loads the products offered on the shop pages.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"math"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"finitefield.org/storefront/internal/cart"
)

// ErrNotFound is returned by Find for unknown product ids.
var ErrNotFound = errors.New("catalog: product not found")

var descriptionPolicy = newDescriptionPolicy()

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))

// Product is a sellable item. Description holds sanitised HTML.
type Product struct {
	ID          string
	Name        string
	Price       float64
	Image       string
	Category    string
	Description template.HTML
}

// Catalog is an ordered, read-only product list.
type Catalog struct {
	products []Product
	index    map[string]int
}

type productFile struct {
	Products []productEntry `yaml:"products"`
}

type productEntry struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Price       float64 `yaml:"price"`
	Image       string  `yaml:"image"`
	Category    string  `yaml:"category"`
	Description string  `yaml:"description"`
}

// Load reads a YAML product file.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML product list and renders the markdown descriptions.
func Parse(raw []byte) (*Catalog, error) {
	var file productFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	products := make([]Product, 0, len(file.Products))
	for i, entry := range file.Products {
		desc, err := renderDescription(entry.Description)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		products = append(products, Product{
			ID:          strings.TrimSpace(entry.ID),
			Name:        strings.TrimSpace(entry.Name),
			Price:       entry.Price,
			Image:       strings.TrimSpace(entry.Image),
			Category:    strings.TrimSpace(entry.Category),
			Description: desc,
		})
	}
	return New(products...)
}

// New builds a catalog from products, rejecting blank, duplicate or
// non URL-safe ids and negative or non-finite prices.
func New(products ...Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		index:    make(map[string]int, len(products)),
	}
	for i, p := range products {
		switch {
		case p.ID == "":
			return nil, fmt.Errorf("product %d: id is required", i)
		case p.Name == "":
			return nil, fmt.Errorf("product %q: name is required", p.ID)
		case !cart.ValidID(p.ID):
			return nil, fmt.Errorf("product %q: id may only contain letters, digits and . _ ~ -", p.ID)
		case p.Price < 0:
			return nil, fmt.Errorf("product %q: price must not be negative", p.ID)
		case math.IsNaN(p.Price) || math.IsInf(p.Price, 0):
			return nil, fmt.Errorf("product %q: price must be a finite number", p.ID)
		}
		if _, dup := c.index[p.ID]; dup {
			return nil, fmt.Errorf("product %q: duplicate id", p.ID)
		}
		c.index[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// List returns every product in file order.
func (c *Catalog) List() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Find looks a product up by id.
func (c *Catalog) Find(id string) (Product, error) {
	i, ok := c.index[strings.TrimSpace(id)]
	if !ok {
		return Product{}, ErrNotFound
	}
	return c.products[i], nil
}

func renderDescription(src string) (template.HTML, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render description: %w", err)
	}
	sanitized := strings.TrimSpace(descriptionPolicy.Sanitize(buf.String()))
	return template.HTML(sanitized), nil
}

func newDescriptionPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").OnElements("p", "span", "table")
	policy.AllowAttrs("loading").OnElements("img")
	return policy
}
