package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/verdictlabs/verdict/pkg/domain/decision"
)

var cardStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240")).
	Padding(1, 2)

var headlineStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA"))

var labelStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("245"))

var tierStyle = map[string]lipgloss.Style{
	string(decision.TierHigh):        lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	string(decision.TierSupported):   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	string(decision.TierDirectional): lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	string(decision.TierExploratory): lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
}

// renderCardView formats the decision card for the terminal.
func renderCardView(card *decision.Card) string {
	var b strings.Builder

	b.WriteString(headlineStyle.Render(card.Headline))
	b.WriteString("\n\n")

	tier := card.Confidence
	if style, ok := tierStyle[tier]; ok {
		tier = style.Render(tier)
	}
	fmt.Fprintf(&b, "%s %s   %s %s\n", labelStyle.Render("confidence:"), tier, labelStyle.Render("posture:"), card.Posture)

	if card.Rationale != "" {
		fmt.Fprintf(&b, "\n%s\n", card.Rationale)
	}
	if card.Caveat != "" {
		fmt.Fprintf(&b, "\n%s %s\n", labelStyle.Render("caveat:"), card.Caveat)
	}
	if card.Pattern != "" {
		fmt.Fprintf(&b, "\n%s %s\n", labelStyle.Render("pattern:"), card.Pattern)
	}
	if len(card.NextSteps) > 0 {
		b.WriteString("\n" + labelStyle.Render("next steps:") + "\n")
		for _, step := range card.NextSteps {
			fmt.Fprintf(&b, "  - %s\n", step)
		}
	}

	return cardStyle.Render(b.String())
}
