package catalog

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `
products:
  - id: tote
    name: Canvas Tote
    price: 10
    image: /assets/img/tote.svg
    category: Bags
    description: |
      A **sturdy** tote.

      <script>alert(1)</script>
  - id: scarf
    name: Wool Scarf
    price: 5.5
    image: /assets/img/scarf.svg
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	products := c.List()
	require.Len(t, products, 2)
	require.Equal(t, "tote", products[0].ID)
	require.Equal(t, 5.5, products[1].Price)

	desc := string(products[0].Description)
	require.Contains(t, desc, "<strong>sturdy</strong>")
	require.NotContains(t, desc, "<script")
	require.Empty(t, products[1].Description)
}

func TestFind(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	p, err := c.Find(" scarf ")
	require.NoError(t, err)
	require.Equal(t, "Wool Scarf", p.Name)

	_, err = c.Find("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNewRejectsInvalidProducts(t *testing.T) {
	tests := []struct {
		name     string
		products []Product
		want     string
	}{
		{"blank id", []Product{{Name: "x"}}, "id is required"},
		{"blank name", []Product{{ID: "a"}}, "name is required"},
		{"negative price", []Product{{ID: "a", Name: "x", Price: -1}}, "negative"},
		{"duplicate", []Product{{ID: "a", Name: "x"}, {ID: "a", Name: "y"}}, "duplicate"},
		{"path id", []Product{{ID: "sku/42", Name: "x"}}, "id may only contain"},
		{"NaN price", []Product{{ID: "a", Name: "x", Price: math.NaN()}}, "finite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.products...)
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.List(), 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestListReturnsCopy(t *testing.T) {
	c, err := New(Product{ID: "a", Name: "A"})
	require.NoError(t, err)
	list := c.List()
	list[0].Name = "changed"
	p, _ := c.Find("a")
	require.Equal(t, "A", p.Name)
}
