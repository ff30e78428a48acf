package synth

import (
	"fmt"
	"strings"

	"github.com/maia-posternack/anadol-counterfactual/internal/collection"
	"github.com/maia-posternack/anadol-counterfactual/internal/latent"
)

// promptSuffix is the fixed quality clause appended to every prompt.
const promptSuffix = ". Museum quality, high resolution, professional photography."

// BuildPrompt constructs the natural-language synthesis prompt from an
// artwork's display fields. Deterministic: the same details always yield the
// same prompt. Fields the record does not resolve are omitted.
func BuildPrompt(d latent.Details) string {
	var b strings.Builder

	fmt.Fprintf(&b, "An artwork titled '%s' by %s", d.Title, d.Artist)

	if d.Nationality != "" && d.Nationality != collection.Unknown {
		fmt.Fprintf(&b, " (%s artist)", d.Nationality)
	}
	if d.Date != "" && d.Date != collection.Unknown {
		fmt.Fprintf(&b, ", created in %s", d.Date)
	}
	if d.Medium != "" && d.Medium != collection.Unknown {
		fmt.Fprintf(&b, ", using %s", d.Medium)
	}
	if d.Classification != "" && d.Classification != collection.Unknown {
		fmt.Fprintf(&b, ", classified as %s", d.Classification)
	}

	b.WriteString(promptSuffix)
	return b.String()
}
