package marketplace

// System name constants. Centralised as data, not scattered string
// literals, per the design note on near-duplicate adapter modules: one
// canonical tag per marketplace variant.
const (
	SystemLazada      = "LAZADA"
	SystemShopee      = "SHOPEE"
	SystemTikTok      = "TIKTOK"
	SystemOpencart    = "OPENCART"
	SystemWooCommerce = "WOOCOMMERCE"
)

// OAuth2Systems lists the marketplaces that authenticate via OAuth2 and
// therefore need a `<marketplace>-reauth` CLI subcommand and participate
// in the BatchCoordinator's post-batch token refresh pass.
var OAuth2Systems = []string{SystemLazada, SystemTikTok}
