package cost

import "github.com/manash/roomedit/pkg/models"

const (
	CurrencyUSD = "USD"
)

type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

func (c *Calculator) Calculate(provider models.ProviderType, model, imageSize string, count int) *models.CostInfo {
	var perImage float64

	switch provider {
	case models.ProviderGemini:
		perImage = c.calculateGemini(model, imageSize)
	default:
		perImage = 0
	}

	return &models.CostInfo{
		PerImage: perImage,
		Total:    perImage * float64(count),
		Currency: CurrencyUSD,
	}
}

// ForModel prices count edits with the given registered model.
func (c *Calculator) ForModel(cap *models.ModelCapabilities, count int) *models.CostInfo {
	return c.Calculate(cap.Provider, cap.Name, cap.ImageSize, count)
}

func (c *Calculator) calculateGemini(model, imageSize string) float64 {
	price, ok := GetGeminiPrice(model, imageSize)
	if ok {
		return price
	}

	// Default fallback prices
	switch model {
	case models.ModelFlashImage:
		return 0.039
	case models.ModelProImage:
		return 0.134 // 1K/2K
	default:
		return 0
	}
}
