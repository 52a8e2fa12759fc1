package unified

// Platform identifies one of the integrated sales channels. Order identifiers
// are only unique within a platform, so Platform always travels with the id.
type Platform string

const (
	// PlatformShopify is the primary storefront.
	PlatformShopify Platform = "shopify"
	// PlatformAmazon is the Amazon marketplace integration.
	PlatformAmazon Platform = "amazon"
	// PlatformLazada is the Lazada marketplace integration.
	PlatformLazada Platform = "lazada"
	// PlatformShopee is the Shopee marketplace integration.
	PlatformShopee Platform = "shopee"
)

// AllPlatforms returns every integrated platform in a stable order.
func AllPlatforms() []Platform {
	return []Platform{PlatformShopify, PlatformAmazon, PlatformLazada, PlatformShopee}
}

// IsValid returns true if the platform is one of the integrated channels.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformShopify, PlatformAmazon, PlatformLazada, PlatformShopee:
		return true
	default:
		return false
	}
}

// String returns the string representation of the platform.
func (p Platform) String() string {
	return string(p)
}

// DisplayName returns a human-readable name for the platform.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformShopify:
		return "Shopify"
	case PlatformAmazon:
		return "Amazon"
	case PlatformLazada:
		return "Lazada"
	case PlatformShopee:
		return "Shopee"
	default:
		return string(p)
	}
}
