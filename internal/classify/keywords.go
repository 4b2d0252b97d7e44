package classify

// Entry binds one feature to the ordered keyword set that identifies it in
// folder and file names. The table order is the tie-break: when two entries
// match at the same tier, the one declared first wins, so reclassification
// runs are deterministic. Keywords are matched after normalization
// (lowercased, diacritics stripped, "-"/"_" folded to spaces), so they are
// declared in that form.
type Entry struct {
	Feature  string   `yaml:"feature"`
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// DefaultTable is the consolidated keyword-to-feature table. It replaces the
// per-script keyword variants that used to drift independently; adjustments
// belong here (or in a YAML override), not in forks of the matching code.
var DefaultTable = []Entry{
	// Authentication
	{Feature: "Sign up with Bank", Category: "Authentication", Keywords: []string{"onboarding", "welcome", "getting started", "signup", "sign up", "register", "kyc", "identity", "verification"}},
	{Feature: "Sign in with Bank", Category: "Authentication", Keywords: []string{"login", "signin", "sign in"}},
	{Feature: "Sign in with Gmail", Category: "Authentication", Keywords: []string{"gmail", "google login"}},
	{Feature: "Sign in with Apple", Category: "Authentication", Keywords: []string{"apple"}},
	{Feature: "Sign in with Telegram", Category: "Authentication", Keywords: []string{"telegram"}},
	{Feature: "Sign in with Wallet", Category: "Authentication", Keywords: []string{"wallet login", "walletconnect"}},
	{Feature: "Login with QR", Category: "Authentication", Keywords: []string{"qr"}},
	{Feature: "Sign in with Passkey", Category: "Authentication", Keywords: []string{"passkey"}},

	// Trading
	{Feature: "Convert", Category: "Trading", Keywords: []string{"convert", "conversion", "swap"}},
	{Feature: "Copy Trading", Category: "Trading", Keywords: []string{"copy trading", "copy trade", "social trading"}},
	{Feature: "Trade Bots for Users", Category: "Trading", Keywords: []string{"bot", "trade bots"}},
	{Feature: "Auto-Invest (DCA)", Category: "Trading", Keywords: []string{"auto invest", "autoinvest", "dca"}},
	{Feature: "Dual Investment", Category: "Trading", Keywords: []string{"dual"}},
	{Feature: "Tokenized Stocks", Category: "Trading", Keywords: []string{"tokenized", "stocks"}},

	// Earn
	{Feature: "TRY Nemalandırma", Category: "Earn", Keywords: []string{"nemalandirma", "try earn"}},
	{Feature: "Locked Staking", Category: "Earn", Keywords: []string{"locked staking", "locked earn", "locked"}},
	{Feature: "Flexible Staking", Category: "Earn", Keywords: []string{"staking", "stake", "earn", "saving"}},
	{Feature: "Loan Borrowing", Category: "Earn", Keywords: []string{"lending", "borrow", "loan"}},

	// Payment & Financial
	{Feature: "On-Ramp / Off-Ramp (3rd Party)", Category: "Payment & Financial", Keywords: []string{"p2p", "ramp", "on ramp", "off ramp"}},
	{Feature: "Own Card", Category: "Crypto Infrastructure", Keywords: []string{"card"}},
	{Feature: "Pay (Payments)", Category: "Payment & Financial", Keywords: []string{"pay", "payment", "payments", "deposit", "withdraw"}},

	// NFT & Gaming
	{Feature: "NFT / Marketplace", Category: "NFT & Gaming", Keywords: []string{"nft", "marketplace", "collectibles"}},
	{Feature: "Launchpool / Launchpad", Category: "NFT & Gaming", Keywords: []string{"launchpad", "launchpool"}},
	{Feature: "Gamification", Category: "NFT & Gaming", Keywords: []string{"gamification", "game"}},
	{Feature: "Fan Token", Category: "NFT & Gaming", Keywords: []string{"fan token", "fan"}},

	// Education & Social
	{Feature: "Social Feed (Square)", Category: "Education & Social", Keywords: []string{"social", "square", "feed"}},
	{Feature: "Academy for Logged-in User", Category: "Education & Social", Keywords: []string{"academy", "education", "learn"}},

	// Marketing & Growth
	{Feature: "Referral", Category: "Marketing & Growth", Keywords: []string{"referral", "refer", "invite"}},
	{Feature: "Affiliate (KOL Program)", Category: "Marketing & Growth", Keywords: []string{"affiliate", "kol"}},
	{Feature: "Bug Bounty", Category: "Marketing & Growth", Keywords: []string{"bug bounty", "bounty"}},

	// API & Technology
	{Feature: "AI Sentimentals", Category: "API & Technology", Keywords: []string{"ai tools", "ai tool", "ai", "sentiment", "chatbot", "assistant"}},
	{Feature: "Public API", Category: "API & Technology", Keywords: []string{"api"}},
	{Feature: "Price Alarm", Category: "Other", Keywords: []string{"alarm", "alert", "price"}},

	// Crypto Infrastructure
	{Feature: "Own Chain", Category: "Crypto Infrastructure", Keywords: []string{"chain"}},
	{Feature: "Own Stablecoin", Category: "Crypto Infrastructure", Keywords: []string{"stablecoin"}},
	{Feature: "Corporate Registration", Category: "Customer & Registration", Keywords: []string{"corporate", "business"}},

	// Platform. Declared last on purpose: "mobile"/"web"/"app" appear in
	// almost every path, so they must never shadow a more specific feature.
	{Feature: "Dashboard & Wallet", Category: "Platform", Keywords: []string{"dashboard", "wallet", "portfolio", "balance"}},
	{Feature: "Web App", Category: "Platform", Keywords: []string{"web", "desktop", "browser"}},
	{Feature: "Mobile App", Category: "Platform", Keywords: []string{"mobile", "app", "ios", "android"}},
}
