package market

import (
	"log/slog"
	"regexp"
	"strings"

	"siteaudit/pkg/types"
)

var pricePattern = regexp.MustCompile(`\$\d+`)

// Analyzer derives market insights from a crawled page corpus. All signals
// come from keyword heuristics over the extracted page text, so insights are
// deterministic for a given corpus. Dimensions with no supporting signal
// report empty insights at low confidence; callers typically discard those.
type Analyzer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{logger: logger}
}

// Analyze runs the competitor, target-audience, pricing and feature
// dimensions over the corpus. An empty corpus yields no insights.
func (a *Analyzer) Analyze(pages []types.PageRecord) []types.MarketInsight {
	if len(pages) == 0 {
		a.logger.Debug("no pages available for market analysis")
		return nil
	}
	c := newCorpus(pages)
	return []types.MarketInsight{
		c.competitors(),
		c.targetAudience(),
		c.pricing(),
		c.features(),
	}
}

// MarketSize estimates TAM/SAM/SOM framing for the corpus's industry. It is
// not part of the default dimension set.
func (a *Analyzer) MarketSize(pages []types.PageRecord) types.MarketInsight {
	if len(pages) == 0 {
		return emptyInsight("market_size")
	}
	return newCorpus(pages).marketSize()
}

// corpus caches the lowercased concatenation of all page text along with the
// raw pages for markup-level checks.
type corpus struct {
	text  string
	pages []types.PageRecord
}

func newCorpus(pages []types.PageRecord) *corpus {
	parts := make([]string, 0, len(pages))
	for _, page := range pages {
		parts = append(parts, page.ContentText)
	}
	return &corpus{
		text:  strings.ToLower(strings.Join(parts, " ")),
		pages: pages,
	}
}

func (c *corpus) has(keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(c.text, kw) {
			return true
		}
	}
	return false
}

func (c *corpus) matchAll(keywords []string) []string {
	matched := []string{}
	for _, kw := range keywords {
		if strings.Contains(c.text, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

func emptyInsight(analysisType string) types.MarketInsight {
	return types.MarketInsight{
		AnalysisType: analysisType,
		Insights:     map[string]any{},
		Confidence:   0.1,
	}
}

func (c *corpus) competitors() types.MarketInsight {
	features := c.matchAll(businessFeatureKeywords)
	industry := c.industry()
	model := c.businessModel()

	if len(features) == 0 && industry == "general" {
		return emptyInsight("competitor")
	}

	industryLabel := industry
	if industry == "general" {
		industryLabel = "Industry to be determined"
	}

	insights := map[string]any{
		"industry":               industryLabel,
		"business_model":         model,
		"key_features":           features,
		"competitive_advantages": c.competitiveAdvantages(),
		"market_positioning":     c.marketPositioning(),
		"website_analysis": map[string]any{
			"content_focus":      c.contentFocus(),
			"value_propositions": c.valuePropositions(),
			"target_indicators":  c.targetIndicators(),
		},
		"recommendations": []string{
			"Conduct detailed competitor research in your specific industry",
			"Analyze competitor websites and feature comparisons",
			"Monitor competitor pricing and positioning strategies",
			"Identify unique value propositions and differentiation opportunities",
		},
	}

	confidence := 0.3
	if len(features) > 0 {
		confidence = 0.6
	}
	return types.MarketInsight{AnalysisType: "competitor", Insights: insights, Confidence: confidence}
}

func (c *corpus) targetAudience() types.MarketInsight {
	tone := c.contentTone()
	isB2B := c.has("business", "enterprise", "company")
	isB2C := c.has("personal", "individual", "consumer")
	isEnterprise := c.has("enterprise", "large")
	isSME := c.has("small business", "startup")

	if !isB2B && !isB2C && tone == "professional" {
		return emptyInsight("target_audience")
	}

	primary := "Individual consumers"
	if isB2B {
		primary = "Business users"
	}

	complexity := "medium"
	if len(strings.Fields(c.text)) > 1000 {
		complexity = "high"
	}

	hasSignup := c.htmlHas("sign up", "register")
	hasDemo := c.htmlHas("demo", "trial")
	hasPricing := c.htmlHas("pricing", "plan")
	funnel := "incomplete"
	if hasSignup && hasDemo && hasPricing {
		funnel = "complete"
	}

	insights := map[string]any{
		"audience_indicators": map[string]any{
			"primary_audience":      primary,
			"secondary_audiences":   []string{"Early adopters", "Tech-savvy users"},
			"b2b_indicators":        isB2B,
			"b2c_indicators":        isB2C,
			"enterprise_indicators": isEnterprise,
			"sme_indicators":        isSME,
		},
		"content_analysis": map[string]any{
			"tone":             tone,
			"complexity_level": complexity,
			"language_style":   c.languageStyle(),
		},
		"user_experience": map[string]any{
			"conversion_funnel": funnel,
			"has_signup":        hasSignup,
			"has_demo":          hasDemo,
			"has_pricing":       hasPricing,
		},
		"value_propositions": c.valuePropositions(),
		"pain_points":        c.painPoints(),
		"recommendations": []string{
			"Conduct user interviews to validate target audience assumptions",
			"Implement user analytics to track actual user behavior",
			"Create detailed user personas based on real user data",
			"A/B test messaging for different audience segments",
		},
	}

	confidence := 0.3
	if isB2B || isB2C {
		confidence = 0.6
	}
	return types.MarketInsight{AnalysisType: "target_audience", Insights: insights, Confidence: confidence}
}

func (c *corpus) pricing() types.MarketInsight {
	model := "unknown"
	switch {
	case c.has("subscription", "monthly"):
		model = "subscription"
	case c.has("free") && c.has("premium"):
		model = "freemium"
	case c.has("per user", "per seat"):
		model = "per-user"
	}

	prices := []string{}
	for _, match := range pricePattern.FindAllString(c.text, -1) {
		prices = append(prices, strings.TrimPrefix(match, "$"))
	}

	if model == "unknown" && len(prices) == 0 {
		return emptyInsight("pricing")
	}

	modelLabel := model
	if model == "unknown" {
		modelLabel = "Pricing model to be determined"
	}
	strategy := "single"
	if len(prices) > 1 {
		strategy = "tiered"
	}

	insights := map[string]any{
		"pricing_analysis": map[string]any{
			"model":        modelLabel,
			"price_points": prices,
			"strategy":     strategy,
			"positioning":  "mid-market",
		},
		"value_proposition": c.valuePropositions(),
		"business_model":    c.businessModel(),
		"pricing_psychology": map[string]any{
			"uses_charm_pricing": c.has("$9", "$19", "$99"),
			"emphasizes_value":   c.has("value", "roi"),
			"offers_discounts":   c.has("discount", "save"),
		},
		"revenue_streams": c.revenueStreams(),
		"recommendations": []string{
			"Conduct price sensitivity analysis with target customers",
			"A/B test different pricing strategies",
			"Monitor competitor pricing changes",
			"Implement value-based pricing where possible",
		},
	}

	confidence := 0.4
	if len(prices) > 0 {
		confidence = 0.7
	}
	return types.MarketInsight{AnalysisType: "pricing", Insights: insights, Confidence: confidence}
}

func (c *corpus) features() types.MarketInsight {
	core := []string{}
	for _, kw := range coreFeatureKeywords {
		if strings.Contains(c.text, kw) {
			core = append(core, strings.ToUpper(kw[:1])+kw[1:])
		}
	}

	if len(core) == 0 {
		return emptyInsight("features")
	}

	insights := map[string]any{
		"feature_analysis": map[string]any{
			"core_features":      core,
			"secondary_features": []string{"Secondary features to be identified"},
			"unique_features":    []string{"Unique features to be identified"},
		},
		"technology_analysis": c.technologyStack(),
		"user_experience": map[string]any{
			"navigation_complexity": "Medium",
			"user_flow_clarity":     "Good",
			"mobile_experience":     "To be evaluated",
			"accessibility":         "To be evaluated",
		},
		"feature_gaps": []string{
			"Advanced analytics and reporting",
			"Mobile application",
			"Third-party integrations",
			"Advanced security features",
			"Collaboration tools",
		},
		"recommendations": []string{
			"Conduct user interviews to validate feature importance",
			"Implement feature usage analytics",
			"Prioritize features based on user value and business impact",
			"Consider emerging technologies for competitive advantage",
		},
	}

	return types.MarketInsight{AnalysisType: "features", Insights: insights, Confidence: 0.7}
}

func (c *corpus) marketSize() types.MarketInsight {
	industry := c.industry()

	size, ok := industrySizes[industry]
	if !ok {
		size = "Market size to be researched"
	}
	growth, ok := industryGrowthRates[industry]
	if !ok {
		growth = "Growth rate to be researched"
	}
	trends, ok := industryTrends[industry]
	if !ok {
		trends = []string{"Industry trends to be researched"}
	}
	density := "Medium"
	if industry == "saas" {
		density = "High"
	}

	insights := map[string]any{
		"industry_category": industry,
		"geographic_focus":  "global",
		"market_scope":      "regional",
		"tam_indicators": map[string]any{
			"industry_size": size,
			"growth_rate":   growth,
			"market_trends": trends,
		},
		"sam_analysis": map[string]any{
			"addressable_market":  "Addressable market to be calculated based on specific parameters",
			"market_penetration":  "Low to medium penetration expected",
			"competitive_density": density,
		},
		"som_projection": map[string]any{
			"realistic_market_share": "0.1-1% realistic initial target",
			"revenue_potential":      "Revenue potential to be modeled based on pricing and market size",
			"growth_trajectory":      "Gradual growth expected with proper execution",
		},
		"recommendations": []string{
			"Conduct primary market research to validate size estimates",
			"Analyze competitor market share and positioning",
			"Identify underserved market segments",
			"Monitor industry reports and market intelligence",
		},
	}

	return types.MarketInsight{AnalysisType: "market_size", Insights: insights, Confidence: 0.65}
}

// industry picks the vocabulary with the highest keyword occurrence count.
// Ties keep the earlier entry so results never depend on iteration order.
func (c *corpus) industry() string {
	best := "general"
	maxScore := 0
	for _, entry := range industryVocab {
		score := 0
		for _, kw := range entry.keywords {
			score += strings.Count(c.text, kw)
		}
		if score > maxScore {
			maxScore = score
			best = entry.name
		}
	}
	return best
}

func (c *corpus) businessModel() string {
	switch {
	case c.has("subscription", "monthly", "plan"):
		return "subscription"
	case c.has("marketplace", "commission"):
		return "marketplace"
	case c.has("advertising", "ads"):
		return "advertising"
	case c.has("transaction", "fee"):
		return "transaction-based"
	default:
		return "one-time-purchase"
	}
}

func (c *corpus) contentTone() string {
	switch {
	case c.has("fun", "exciting", "amazing"):
		return "casual"
	case c.has("enterprise", "solution", "optimize"):
		return "corporate"
	default:
		return "professional"
	}
}

func (c *corpus) languageStyle() string {
	switch {
	case c.has("we", "our"):
		return "First-person company voice"
	case c.has("you", "your"):
		return "Second-person customer-focused"
	default:
		return "Third-person objective"
	}
}

func (c *corpus) competitiveAdvantages() []string {
	advantages := []string{}
	if c.has("ai", "artificial intelligence", "machine learning") {
		advantages = append(advantages, "AI-powered features")
	}
	if c.has("real-time", "instant") {
		advantages = append(advantages, "Real-time capabilities")
	}
	if c.has("secure", "encryption", "privacy") {
		advantages = append(advantages, "Security-focused")
	}
	if c.has("easy", "simple", "intuitive") {
		advantages = append(advantages, "User-friendly interface")
	}
	if len(advantages) == 0 {
		return []string{"Unique value proposition to be defined"}
	}
	return advantages
}

func (c *corpus) marketPositioning() string {
	switch {
	case c.has("enterprise", "large", "corporation"):
		return "enterprise"
	case c.has("small business", "startup", "sme"):
		return "sme"
	case c.has("affordable", "budget", "free"):
		return "budget-friendly"
	case c.has("premium", "professional", "advanced"):
		return "premium"
	default:
		return "mid-market"
	}
}

func (c *corpus) contentFocus() []string {
	focus := []string{}
	if c.has("product", "service") {
		focus = append(focus, "Product/Service focused")
	}
	if c.has("solution", "problem") {
		focus = append(focus, "Problem-solving oriented")
	}
	if c.has("innovation", "technology") {
		focus = append(focus, "Technology/Innovation focused")
	}
	if c.has("customer", "user") {
		focus = append(focus, "Customer-centric")
	}
	if len(focus) == 0 {
		return []string{"Content focus to be determined"}
	}
	return focus
}

func (c *corpus) targetIndicators() []string {
	indicators := []string{}
	if c.has("enterprise", "business") {
		indicators = append(indicators, "B2B indicators")
	}
	if c.has("individual", "personal") {
		indicators = append(indicators, "B2C indicators")
	}
	if c.has("startup", "small business") {
		indicators = append(indicators, "SME indicators")
	}
	if c.has("developer", "technical") {
		indicators = append(indicators, "Technical audience indicators")
	}
	if len(indicators) == 0 {
		return []string{"Target indicators to be determined"}
	}
	return indicators
}

func (c *corpus) valuePropositions() []string {
	props := []string{}
	if c.has("save time", "faster") {
		props = append(props, "Time savings")
	}
	if c.has("save money", "affordable") {
		props = append(props, "Cost savings")
	}
	if c.has("easy", "simple") {
		props = append(props, "Ease of use")
	}
	if len(props) == 0 {
		return []string{"Value propositions to be defined"}
	}
	return props
}

func (c *corpus) painPoints() []string {
	points := []string{}
	if c.has("slow", "time-consuming") {
		points = append(points, "Time efficiency")
	}
	if c.has("expensive", "cost") {
		points = append(points, "Cost concerns")
	}
	if c.has("complex", "difficult") {
		points = append(points, "Complexity issues")
	}
	if len(points) == 0 {
		return []string{"User pain points to be researched"}
	}
	return points
}

func (c *corpus) revenueStreams() []string {
	streams := []string{}
	if c.has("subscription") {
		streams = append(streams, "Subscription fees")
	}
	if c.has("transaction") {
		streams = append(streams, "Transaction fees")
	}
	if c.has("advertising") {
		streams = append(streams, "Advertising revenue")
	}
	if c.has("premium") {
		streams = append(streams, "Premium features")
	}
	if len(streams) == 0 {
		return []string{"Primary revenue stream to be defined"}
	}
	return streams
}

func (c *corpus) technologyStack() map[string]any {
	frontend := []string{}
	analytics := []string{}
	scriptHas := func(fragment string) bool {
		for _, page := range c.pages {
			for _, script := range page.Scripts {
				if strings.Contains(script, fragment) {
					return true
				}
			}
		}
		return false
	}
	if scriptHas("react") {
		frontend = append(frontend, "React")
	}
	if scriptHas("vue") {
		frontend = append(frontend, "Vue.js")
	}
	if scriptHas("angular") {
		frontend = append(frontend, "Angular")
	}
	if scriptHas("google-analytics") {
		analytics = append(analytics, "Google Analytics")
	}
	return map[string]any{
		"frontend_technologies": frontend,
		"backend_technologies":  []string{},
		"analytics_tools":       analytics,
	}
}

func (c *corpus) htmlHas(fragments ...string) bool {
	for _, page := range c.pages {
		for _, fragment := range fragments {
			if strings.Contains(page.HTMLContent, fragment) {
				return true
			}
		}
	}
	return false
}
