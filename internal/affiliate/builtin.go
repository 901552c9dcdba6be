package affiliate

import "context"

// builtinPrograms 内置联盟计划表
var builtinPrograms = map[string][]string{
	"AI Tools":            {"Jasper", "Copy.ai", "WriteSonic", "Notion AI"},
	"Fitness":             {"Bodybuilding.com", "MyProtein", "Gymshark", "Rogue Fitness"},
	"Home Automation":     {"Amazon Associates", "SmartThings", "Philips Hue", "Nest"},
	"Pet Products":        {"Chewy", "Petco", "Amazon Associates", "PetSmart"},
	"Sustainable Living":  {"EarthHero", "Public Goods", "Thrive Market", "Avocado Green Mattress"},
	"Remote Work":         {"FlexJobs", "Autonomous", "Amazon Associates", "Udemy"},
	"Beauty":              {"Sephora", "Ulta", "Fenty Beauty", "Glossier"},
	"Financial Tools":     {"Robinhood", "Acorns", "Personal Capital", "Credit Karma"},
	"Digital Art":         {"Skillshare", "Domestika", "Wacom", "Creative Market"},
	"Mental Health":       {"BetterHelp", "Headspace", "Calm", "Talkspace"},
	"Gaming":              {"Razer", "Logitech", "SteelSeries", "G2A"},
	"Outdoor Gear":        {"REI", "Backcountry", "Columbia", "The North Face"},
	"Smart Home":          {"Amazon Associates", "Best Buy", "Home Depot", "Lowe's"},
	"Baby Products":       {"Amazon Associates", "Target", "BuyBuyBaby", "Carter's"},
	"Cooking":             {"Sur La Table", "Williams Sonoma", "Blue Apron", "HelloFresh"},
	"Language Learning":   {"Babbel", "Rosetta Stone", "Duolingo", "Preply"},
	"Travel Gear":         {"Amazon Associates", "Eagle Creek", "Samsonite", "TravelPro"},
	"Home Office":         {"Fully", "Herman Miller", "Autonomous", "Steelcase"},
	"Solar Products":      {"Goal Zero", "Jackery", "Renogy", "EcoFlow"},
	"AI Pet Tech":         {"Petcube", "Chewy", "Furbo", "Whistle"},
	"Wireless Earbuds":    {"Amazon Associates", "Best Buy", "JBL", "Bose"},
	"Streaming Services":  {"Netflix", "Disney+", "Hulu", "HBO Max"},
	"Plant Care":          {"The Sill", "Bloomscape", "Amazon Associates", "Plant Therapy"},
	"Eco-Friendly Beauty": {"Beautycounter", "Credo Beauty", "The Detox Market", "ILIA Beauty"},
	"Smart Fitness":       {"Peloton", "Mirror", "Echelon", "NordicTrack"},
}

// BuiltinProvider 内置数据表
type BuiltinProvider struct{}

// NewBuiltinProvider 创建内置数据源
func NewBuiltinProvider() *BuiltinProvider {
	return &BuiltinProvider{}
}

func (BuiltinProvider) Name() string { return "builtin" }

// SupplyPrograms 返回内置表的副本
func (BuiltinProvider) SupplyPrograms(ctx context.Context) (map[string][]string, error) {
	out := make(map[string][]string, len(builtinPrograms))
	for niche, list := range builtinPrograms {
		out[niche] = append([]string(nil), list...)
	}
	return out, nil
}
