package openfoodfacts

import (
	"encoding/json"
	"fmt"

	"github.com/foodlens/backend/internal/domain"
)

// envelope is the v2 product response wrapper
type envelope struct {
	Code          string            `json:"code"`
	Status        *int              `json:"status"`
	StatusVerbose string            `json:"status_verbose"`
	Product       domain.RawProduct `json:"product"`
}

// decodeProduct unwraps the product record from a v2 response body
func decodeProduct(body []byte) (domain.RawProduct, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidUpstreamResponse, err)
	}

	if env.Status != nil && *env.Status == 0 {
		reason := env.StatusVerbose
		if reason == "" {
			reason = "product not found"
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, reason)
	}

	if len(env.Product) == 0 {
		return nil, domain.ErrMalformedProduct
	}

	if _, ok := env.Product["code"]; !ok && env.Code != "" {
		env.Product["code"] = env.Code
	}
	return env.Product, nil
}
