package cost

// Gemini image output pricing (USD per image)
// Source: https://ai.google.dev/gemini-api/docs/pricing

type PricingKey struct {
	Model     string
	ImageSize string
}

var geminiPricing = map[PricingKey]float64{
	{Model: "gemini-2.5-flash-image", ImageSize: ""}: 0.039,

	{Model: "gemini-3-pro-image-preview", ImageSize: "1K"}: 0.134,
	{Model: "gemini-3-pro-image-preview", ImageSize: "2K"}: 0.134,
	{Model: "gemini-3-pro-image-preview", ImageSize: "4K"}: 0.240,
}

func GetGeminiPrice(model, imageSize string) (float64, bool) {
	price, ok := geminiPricing[PricingKey{Model: model, ImageSize: imageSize}]
	return price, ok
}
