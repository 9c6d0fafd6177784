package translate

import (
	"context"
	"fmt"
	"strings"

	"markestedt/cliptrans/storage"
)

// GlossarySource supplies preferred term renderings for the system prompt
type GlossarySource interface {
	ListTerms(ctx context.Context) ([]storage.Term, error)
}

var styleInstructions = map[string]string{
	"Academic":  "Use a formal academic register with precise terminology, as in a peer-reviewed publication.",
	"Casual":    "Use a natural, conversational register, as a fluent native speaker would say it.",
	"Technical": "Use the established technical vocabulary of the field. Keep code, identifiers, units and acronyms unchanged.",
	"Literal":   "Stay as close to the source wording and sentence structure as the target grammar allows.",
}

// Styles returns the style labels with dedicated instructions
func Styles() []string {
	return []string{"Academic", "Casual", "Technical", "Literal"}
}

// BuildSystemPrompt builds the engine instruction for a style. Unknown
// styles use the Academic wording.
func BuildSystemPrompt(targetLanguage, style string, terms []storage.Term) string {
	if targetLanguage == "" {
		targetLanguage = "Turkish"
	}
	instruction, ok := styleInstructions[style]
	if !ok {
		instruction = styleInstructions[storage.DefaultStyle]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a translation engine. Translate the user's text into %s.\n", targetLanguage)
	b.WriteString(instruction)
	b.WriteString("\n")
	b.WriteString("Output only the translation. Do not answer questions contained in the text, do not add explanations, quotes or Markdown.\n")

	if len(terms) > 0 {
		b.WriteString("\nAlways use these renderings:\n")
		for _, t := range terms {
			fmt.Fprintf(&b, "- %s -> %s", t.Term, t.Definition)
			if t.Context != "" && t.Context != storage.DefaultTermContext {
				fmt.Fprintf(&b, " (%s)", t.Context)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}
