package stylist

import (
	"fmt"
	"strings"

	"github.com/yanqian/stylecast/internal/domain/weather"
	"github.com/yanqian/stylecast/internal/infra/llm/gemini"
)

// RuleID names a deterministic styling rule.
type RuleID string

const (
	RuleWarmthFirst      RuleID = "warmth_first"
	RuleBreathableTrendy RuleID = "breathable_trendy"
	RuleRainProtection   RuleID = "rain_protection"
	RuleGenderNeutral    RuleID = "gender_neutral"
)

// Rule is a policy rule that applies to a given profile and weather.
type Rule struct {
	ID   RuleID
	Text string
}

const systemInstruction = `You are an expert personal stylist, nutritionist, and meteorologist combined.
Your goal is to recommend the perfect outfit and suitable snacks based on user details and weather.

STRICT LOGIC RULES:
1. If the user is Older (60+) AND it is Cold (<10°C): Prioritize warmth and comfort above all else. Suggest wool, thermal layers, and non-slip sturdy shoes. Never suggest breathable summer pieces, crop tops, or graphic tees in this case.
2. If the user is Young (18-30) AND it is Hot (>25°C): Suggest trendy, breathable options like linen, crop tops (if applicable), graphic tees, and open footwear.
3. If Rain is detected (Weather Code indicates rain/drizzle/storm): You MUST suggest a raincoat, waterproof shoes, or an umbrella, regardless of age or gender.
4. For 'Others' gender: Suggest gender-neutral clothing that fits the weather context.
5. Always match the vibe of the city if known (e.g., Paris = Chic, New York = Urban/Edgy).
6. Suggest 2-3 easy-to-carry food or drink items that are appropriate for the weather (e.g., Hot Cocoa for snow, Electrolyte water/fruits for heat).`

// ActiveRules lists the conditional rules triggered by profile and conditions.
// The city vibe and food rules always apply and are not listed.
func ActiveRules(profile UserProfile, conditions weather.Conditions) []Rule {
	var rules []Rule
	temp := conditions.TemperatureCelsius
	if profile.Age >= 60 && temp < 10 {
		rules = append(rules, Rule{ID: RuleWarmthFirst, Text: "Warmth and comfort first, sturdy non-slip footwear"})
	}
	if profile.Age >= 18 && profile.Age <= 30 && temp > 25 {
		rules = append(rules, Rule{ID: RuleBreathableTrendy, Text: "Breathable, trendy pieces"})
	}
	if weather.IsPrecipitation(conditions.WeatherCode) {
		rules = append(rules, Rule{ID: RuleRainProtection, Text: "Rain protection required (raincoat, waterproof shoes, or umbrella)"})
	}
	if profile.Gender == GenderOthers {
		rules = append(rules, Rule{ID: RuleGenderNeutral, Text: "Gender-neutral clothing"})
	}
	return rules
}

func hasRule(rules []Rule, id RuleID) bool {
	for _, r := range rules {
		if r.ID == id {
			return true
		}
	}
	return false
}

func buildUserPrompt(profile UserProfile, conditions weather.Conditions, rules []Rule) string {
	var b strings.Builder
	b.WriteString("User Profile:\n")
	fmt.Fprintf(&b, "- Age: %d\n", profile.Age)
	fmt.Fprintf(&b, "- Gender: %s\n", profile.Gender)
	fmt.Fprintf(&b, "- Location: %s\n\n", profile.City)
	b.WriteString("Current Weather Conditions:\n")
	fmt.Fprintf(&b, "- Temperature: %g°C\n", conditions.TemperatureCelsius)
	fmt.Fprintf(&b, "- Condition: %s\n", conditions.Description)
	fmt.Fprintf(&b, "- Day/Night: %s\n", conditions.DayOrNight())
	if len(rules) > 0 {
		b.WriteString("\nRules that apply to this request:\n")
		for _, r := range rules {
			fmt.Fprintf(&b, "- %s\n", r.Text)
		}
	}
	b.WriteString("\nGenerate a stylish, practical outfit recommendation and food suggestions following the rules provided.")
	return b.String()
}

func recommendationSchema() *gemini.Schema {
	str := func(desc string) *gemini.Schema {
		return &gemini.Schema{Type: gemini.TypeString, Description: desc}
	}
	list := func(desc string) *gemini.Schema {
		return &gemini.Schema{
			Type:        gemini.TypeArray,
			Description: desc,
			Items:       &gemini.Schema{Type: gemini.TypeString},
			MinItems:    "2",
			MaxItems:    "3",
		}
	}
	order := []string{"headline", "top", "bottom", "footwear", "accessories", "foodItems", "reasoning", "colorPalette"}
	return &gemini.Schema{
		Type: gemini.TypeObject,
		Properties: map[string]*gemini.Schema{
			"headline":     str("A catchy 3-5 word title for the look"),
			"top":          str("Detailed recommendation for upper body wear"),
			"bottom":       str("Detailed recommendation for lower body wear"),
			"footwear":     str("Specific shoe recommendation"),
			"accessories":  list("List of 2-3 essential accessories"),
			"foodItems":    list("List of 2-3 easy to carry food/drink items suitable for the weather"),
			"reasoning":    str("A friendly explanation of why this outfit works for the weather and age."),
			"colorPalette": str("Suggested color combination (e.g., 'Navy and Cream')"),
		},
		PropertyOrdering: order,
		Required:         order,
	}
}

var rainProtectionTerms = []string{
	"umbrella", "raincoat", "rain coat", "rain jacket", "rain shell", "waterproof",
	"water-resistant", "water resistant", "poncho", "rain boot", "wellington", "galoshes",
}

// summerOnlyTerms never belong in a warmth-first outfit.
var summerOnlyTerms = []string{
	"crop top", "crop-top", "graphic tee", "graphic t-shirt",
}

// insulatingTerms mark a breathable garment as a winter layer.
var insulatingTerms = []string{
	"wool", "merino", "thermal", "fleece", "down jacket", "down parka", "down-filled", "puffer",
	"insulated", "cashmere", "base layer", "quilted",
}

func mentionsAny(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func garments(rec Recommendation) []string {
	return append([]string{rec.Top, rec.Bottom, rec.Footwear}, rec.Accessories...)
}

// ignoresWarmth reports a garment that only suits warm weather. "Breathable"
// alone is fine on an insulating layer such as a merino base layer.
func ignoresWarmth(rec Recommendation) bool {
	for _, garment := range garments(rec) {
		if mentionsAny(garment, summerOnlyTerms) {
			return true
		}
		if mentionsAny(garment, []string{"breathable"}) && !mentionsAny(garment, insulatingTerms) {
			return true
		}
	}
	return false
}

// HasRainProtection reports whether any garment or accessory protects from rain.
func HasRainProtection(rec Recommendation) bool {
	return mentionsAny(strings.Join(garments(rec), "\n"), rainProtectionTerms)
}

// enforceRainProtection adds an umbrella when the rain rule applies and the
// outfit carries no protection. Accessories stay within three items.
func enforceRainProtection(rec Recommendation) (Recommendation, bool) {
	if HasRainProtection(rec) {
		return rec, false
	}
	accessories := append([]string(nil), rec.Accessories...)
	if len(accessories) >= maxListItems {
		accessories = accessories[:maxListItems-1]
	}
	rec.Accessories = append(accessories, "Compact umbrella")
	return rec, true
}
