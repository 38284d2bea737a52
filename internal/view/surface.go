// Package view projects cart snapshots into the drawer, cart page and payment
// summary, and renders those projections into HTML fragments.
package view

import "strings"

// Surface names a place on the page that displays the cart.
type Surface string

const (
	SurfaceDrawer  Surface = "drawer"
	SurfaceCart    Surface = "cart"
	SurfacePayment Surface = "payment"
)

// HeaderViews is the request header listing the surfaces present on the page.
const HeaderViews = "X-Cart-Views"

// ParseSurfaces reads a comma or space separated list of surfaces. Unknown
// names are ignored. An empty result means the drawer alone, which every page
// carries.
func ParseSurfaces(header string) []Surface {
	fields := strings.FieldsFunc(header, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	seen := make(map[Surface]bool, len(fields))
	out := make([]Surface, 0, len(fields))
	for _, f := range fields {
		s := Surface(strings.ToLower(strings.TrimSpace(f)))
		switch s {
		case SurfaceDrawer, SurfaceCart, SurfacePayment:
		default:
			continue
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return []Surface{SurfaceDrawer}
	}
	return out
}

// JoinSurfaces is the inverse of ParseSurfaces.
func JoinSurfaces(surfaces []Surface) string {
	parts := make([]string, 0, len(surfaces))
	for _, s := range surfaces {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, ",")
}
