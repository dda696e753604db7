package council

import (
	"fmt"

	"github.com/dusk-indust/council/internal/catalog"
	"github.com/dusk-indust/council/internal/extract"
)

// fallbackExperts is the documented default roster used whenever the
// brainstorm synthesis yields no extractable team. The pipeline never fails
// for want of a roster.
func fallbackExperts() []Expert {
	return []Expert{
		{Order: 1, Name: "Strategic Analyst", Description: "Set strategic direction for the response.", Objectives: "Define strategy"},
		{Order: 2, Name: "Technical Architect", Description: "Establish the technical foundation.", Objectives: "Ensure feasibility"},
		{Order: 3, Name: "Domain Specialist", Description: "Bring deep domain expertise.", Objectives: "Add domain depth"},
		{Order: 4, Name: "Implementation Expert", Description: "Translate analysis into practical guidance.", Objectives: "Provide actionable guidance"},
		{Order: 5, Name: "Risk Analyst", Description: "Identify risks and failure modes.", Objectives: "Surface concerns"},
		{Order: 6, Name: "Quality Reviewer", Description: "Critically review for completeness and accuracy.", Objectives: "Ensure quality"},
	}
}

// teamSynthesis is the JSON contract of the chairman's team-formation output.
type teamSynthesis struct {
	TeamRationale string `json:"team_rationale"`
	Experts       []struct {
		Role       string   `json:"role"`
		Task       string   `json:"task"`
		Objectives []string `json:"objectives"`
		Order      int      `json:"order"`
	} `json:"experts"`
}

// parseExpertTeam extracts the synthesized team from chairman output.
// Returns the fallback roster (and ok=false) when nothing usable is present.
func parseExpertTeam(text string) (experts []Expert, rationale string, ok bool) {
	var synth teamSynthesis
	if !extract.JSONInto(text, &synth) || len(synth.Experts) == 0 {
		return fallbackExperts(), "", false
	}

	for i, e := range synth.Experts {
		if i >= catalog.NumExperts {
			break
		}
		name := e.Role
		if name == "" {
			name = fmt.Sprintf("Expert %d", i+1)
		}
		desc := e.Task
		if desc == "" {
			desc = "Contribute expertise"
		}
		experts = append(experts, Expert{
			Order:       i + 1, // normalized: contiguous regardless of model output
			Name:        name,
			Description: desc,
			Objectives:  joinObjectives(e.Objectives),
		})
	}

	// Pad a short team from the fallback roster so exactly NumExperts seats
	// are always filled.
	for _, fb := range fallbackExperts()[len(experts):] {
		fb.Order = len(experts) + 1
		experts = append(experts, fb)
	}

	return experts, synth.TeamRationale, true
}

func joinObjectives(objectives []string) string {
	if len(objectives) == 0 {
		return "Add value"
	}
	out := objectives[0]
	for _, o := range objectives[1:] {
		out += " | " + o
	}
	return out
}
