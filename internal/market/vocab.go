package market

// Industry vocabularies are matched in a fixed order so that ties resolve
// the same way on every run.
var industryVocab = []struct {
	name     string
	keywords []string
}{
	{"saas", []string{"software", "platform", "api", "dashboard", "analytics"}},
	{"ecommerce", []string{"shop", "buy", "cart", "product", "store", "checkout"}},
	{"fintech", []string{"payment", "finance", "banking", "investment", "money"}},
	{"healthcare", []string{"health", "medical", "patient", "doctor", "clinic"}},
	{"education", []string{"learn", "course", "student", "education", "training"}},
	{"marketing", []string{"marketing", "advertising", "campaign", "brand", "social"}},
}

// businessFeatureKeywords feed the competitor analysis.
var businessFeatureKeywords = []string{
	"dashboard", "analytics", "reporting", "automation", "integration",
	"api", "mobile", "cloud", "security", "scalable", "real-time",
}

// coreFeatureKeywords feed the feature analysis.
var coreFeatureKeywords = []string{
	"dashboard", "analytics", "reporting", "integration", "api",
	"mobile", "security", "automation", "collaboration", "customization",
}

var industrySizes = map[string]string{
	"saas":       "$157 billion",
	"ecommerce":  "$4.9 trillion",
	"fintech":    "$127 billion",
	"healthcare": "$350 billion",
	"education":  "$366 billion",
	"marketing":  "$389 billion",
}

var industryGrowthRates = map[string]string{
	"saas":       "18% CAGR",
	"ecommerce":  "14% CAGR",
	"fintech":    "23% CAGR",
	"healthcare": "7% CAGR",
	"education":  "8% CAGR",
	"marketing":  "9% CAGR",
}

var industryTrends = map[string][]string{
	"saas":       {"AI integration", "No-code platforms", "Vertical SaaS"},
	"ecommerce":  {"Mobile commerce", "Social commerce", "Sustainability"},
	"fintech":    {"Open banking", "Cryptocurrency", "Embedded finance"},
	"healthcare": {"Telemedicine", "AI diagnostics", "Personalized medicine"},
	"education":  {"Online learning", "Microlearning", "VR/AR education"},
	"marketing":  {"Privacy-first marketing", "AI personalization", "Voice search"},
}
