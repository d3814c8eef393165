package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/illegalcall/wodsense/internal/athlete"
)

// Fixed coaching-hint rule tables. These adjust tone and intensity
// guidance in the instruction; they are deliberately small and static.
func ageHint(age int) string {
	switch {
	case age <= 0:
		return "Age unknown: assume an adult athlete of average recovery capacity."
	case age < 30:
		return "Under 30: can push intensity; emphasize pacing discipline over holding back."
	case age < 40:
		return "30-39: solid work capacity; balance intensity with warm-up quality."
	case age < 50:
		return "40-49: prioritize joint-friendly ranges and longer warm-ups; moderate top-end intensity."
	default:
		return "50+: favor sustainable pacing, generous warm-up and conservative loading progressions."
	}
}

func experienceHint(years float64) string {
	switch {
	case years <= 0:
		return "Experience unknown: default to intermediate guidance."
	case years < 1:
		return "Novice (<1 year): keep movements simple, cap loads conservatively, coach mechanics first."
	case years < 3:
		return "Intermediate (1-3 years): standard Rx percentages apply; watch fatigue on skill movements."
	case years < 5:
		return "Advanced (3-5 years): can handle prescribed loads and higher skill movements."
	default:
		return "Elite (5+ years): full Rx with competitive pacing strategies."
	}
}

// genericLoadTable is the fallback instruction used when no matching
// personal record exists for a lift.
const genericLoadTable = "no matching PR is recorded, suggest three generic tiers " +
	"(novice/intermediate/advanced) and label them as such"

const outputContract = `Return ONLY a single JSON object (no markdown, no explanations) with exactly this shape:
{
  "workout_summary": "Short summary of the identified workout (name if any + description)",
  "intent": "The intended stimulus (e.g. power, endurance, metabolic conditioning)",
  "strategy": "Detailed tactical strategy with pacing and set-break advice, addressed to the athlete in the second person",
  "scaling_options": [
    {
      "exercise": "Original exercise name",
      "suggestion": "Suggested substitution or scaling",
      "reason": "Why this adaptation"
    }
  ],
  "suggested_weights": "Suggested loads in kg with the reasoning behind them",
  "movements": ["up to 5 canonical movement names appearing in the workout"]
}`

// BuildSystemPrompt assembles the deterministic instruction block from the
// athlete context. The history section always carries either rendered
// lines or the no-history sentinel, never an empty string.
func BuildSystemPrompt(actx athlete.Context) string {
	var b strings.Builder

	b.WriteString("You are an experienced CrossFit head coach and exercise physiology specialist.\n")
	b.WriteString("Analyze the submitted workout (WOD) and personalize it for the athlete below.\n\n")

	b.WriteString("ATHLETE:\n")
	fmt.Fprintf(&b, "- Name: %s (address them by first name, second person)\n", firstName(actx.Name))
	if actx.Age > 0 {
		fmt.Fprintf(&b, "- Age: %d\n", actx.Age)
	}
	if actx.Sex != "" {
		fmt.Fprintf(&b, "- Sex: %s\n", actx.Sex)
	}
	if actx.HeightCM > 0 {
		fmt.Fprintf(&b, "- Height: %.0f cm\n", actx.HeightCM)
	}
	fmt.Fprintf(&b, "- Personal records (1RM, kg): %s\n", renderPRs(actx.PRs))
	fmt.Fprintf(&b, "- Injuries/limitations: %s\n\n", actx.Injuries)

	b.WriteString("COACHING HINTS:\n")
	fmt.Fprintf(&b, "- %s\n", ageHint(actx.Age))
	fmt.Fprintf(&b, "- %s\n\n", experienceHint(actx.ExperienceYears))

	b.WriteString("RECENT COMPLETED WORKOUTS (newest first):\n")
	b.WriteString(actx.HistoryText)
	b.WriteString("\n\n")

	b.WriteString("RULES:\n")
	b.WriteString("- Identify the workout, its intended stimulus and a pacing strategy.\n")
	b.WriteString("- Suggest scaling only where injuries or missing capacity require it; otherwise scaling_options is [].\n")
	b.WriteString("- When a lift has a matching personal record above, derive the suggested load as a percentage " +
		"of that 1RM and state the percentage explicitly.\n")
	fmt.Fprintf(&b, "- When %s.\n", genericLoadTable)
	b.WriteString("- If the workout cannot be identified, say so in workout_summary.\n\n")

	b.WriteString(outputContract)

	return b.String()
}

// strictReminder is appended on the single retry after malformed output.
const strictReminder = "\n\nIMPORTANT: your previous reply was not valid JSON. " +
	"Respond with the JSON object ONLY. No prose, no markdown fences, no trailing text."

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return athlete.DefaultAthleteName
	}
	return fields[0]
}

func renderPRs(prs map[string]float64) string {
	if len(prs) == 0 {
		return "none recorded"
	}
	lifts := make([]string, 0, len(prs))
	for lift := range prs {
		lifts = append(lifts, lift)
	}
	sort.Strings(lifts)
	pairs := make([]string, 0, len(lifts))
	for _, lift := range lifts {
		pairs = append(pairs, fmt.Sprintf("%s=%.0f", lift, prs[lift]))
	}
	return strings.Join(pairs, ", ")
}
