package brand

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultBrands are the global brands most commonly impersonated in
// phishing campaigns. Override with a JSON array file via LoadBrandsFile.
var DefaultBrands = []string{
	"google", "microsoft", "apple", "amazon", "facebook", "paypal",
	"netflix", "instagram", "twitter", "linkedin", "dropbox", "yahoo",
	"chase", "bankofamerica", "wellsfargo", "citibank", "hsbc", "barclays",
	"americanexpress", "mastercard", "visa", "outlook", "gmail", "icloud",
	"office365", "onedrive", "box", "adobe", "spotify",
	"steam", "epicgames", "blizzard", "ea", "ubisoft", "nintendo",
	"playstation", "xbox", "twitch", "youtube", "walmart", "target",
	"ebay", "aliexpress", "fedex", "ups", "dhl", "usps",
}

// LoadBrandsFile reads a JSON array of brand names from path.
func LoadBrandsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read brands file: %w", err)
	}

	var brands []string
	if err := json.Unmarshal(data, &brands); err != nil {
		return nil, fmt.Errorf("failed to parse brands file %s: %w", path, err)
	}
	if len(brands) == 0 {
		return nil, fmt.Errorf("brands file %s is empty", path)
	}
	return brands, nil
}
