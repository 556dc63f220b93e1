package constants

// Platform is the marketplace an invoice originates from.
type Platform string

const (
	PlatformAmazon   Platform = "AMAZON"
	PlatformFlipkart Platform = "FLIPKART"
	PlatformGeneric  Platform = "GENERIC"
	PlatformUnknown  Platform = "UNKNOWN"
)

// KnownPlatforms lists the marketplaces with a dedicated extraction strategy.
var KnownPlatforms = []Platform{PlatformAmazon, PlatformFlipkart}
