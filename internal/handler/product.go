package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/atelier-api/internal/domain/product"
)

// productJSON is the wire shape of a catalog item. Tier prices are exposed as
// floats keyed by tier name.
type productJSON struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Category    string             `json:"category"`
	Pricing     map[string]float64 `json:"pricing"`
	Image       productImageJSON   `json:"image"`
}

type productImageJSON struct {
	Thumbnail string `json:"thumbnail"`
	Mobile    string `json:"mobile"`
	Tablet    string `json:"tablet"`
	Desktop   string `json:"desktop"`
}

type productListResponse struct {
	Success  bool          `json:"success"`
	Products []productJSON `json:"products"`
}

type productResponse struct {
	Success bool        `json:"success"`
	Product productJSON `json:"product"`
}

// ListProducts handles GET /products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	out := make([]productJSON, len(products))
	for i, p := range products {
		out[i] = h.toProductJSON(p)
	}
	writeJSON(w, http.StatusOK, productListResponse{Success: true, Products: out})
}

// GetProduct handles GET /products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, productResponse{Success: true, Product: h.toProductJSON(*p)})
}

// toProductJSON converts a domain product into its wire shape. Image paths are
// prefixed with the configured imageBaseURL.
func (h *Handler) toProductJSON(p product.Product) productJSON {
	pricing := make(map[string]float64, len(p.Pricing))
	for tier, price := range p.Pricing {
		pricing[string(tier)] = price.InexactFloat64()
	}
	base := h.imageBaseURL
	return productJSON{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Pricing:     pricing,
		Image: productImageJSON{
			Thumbnail: base + p.Image.Thumbnail,
			Mobile:    base + p.Image.Mobile,
			Tablet:    base + p.Image.Tablet,
			Desktop:   base + p.Image.Desktop,
		},
	}
}
