package council

import (
	"fmt"
	"strings"
)

// Prompt templates for each stage. Stage text is an opaque input to the
// sequencer: nothing here affects control flow except the JSON output
// contracts consumed by the extractor.

func intentDraftPrompt(query, baseline string) string {
	return fmt.Sprintf(`<system>You are the Master Intent Architect, an elite cognitive strategist.</system>

<task>
Deeply analyze the user query to understand their EXPLICIT and IMPLICIT intent.
Do NOT select experts yet - that happens in a later brainstorm stage.
</task>

<query>%s</query>
%s
<analysis_framework>
1. **Surface Intent**: What is the user literally asking?
2. **Deep Intent**: What is the user's ultimate goal? What would "success" look like?
3. **Critical Dimensions**: What aspects must be covered for a world-class answer?
4. **Key Assumptions**: What must we assume?
5. **Success Criteria**: How will we know the response fully addressed their need?
</analysis_framework>

<output_format>
Provide your analysis in Markdown format:

### 🎯 Core Intent
[Explicit + Implicit goals]

### 🧭 Critical Dimensions
- **Strategic**: ...
- **Tactical**: ...
- **Technical**: ...
- **Risks/Edge Cases**: ...

### 💡 Key Assumptions
1. ...

### ✅ Success Criteria
- [What must the final artifact achieve?]
</output_format>

Provide your deep intent analysis now:`, query, baselineSection(baseline))
}

func clarificationPrompt(query, intentDraft string) string {
	return fmt.Sprintf(`<task>
Based on the intent analysis below, write the clarification questions whose
answers would most improve the final artifact. Ask 2-4 questions, fewer if the
query is already unambiguous. Each question may offer selectable options.
</task>

<query>%s</query>

<intent_analysis>
%s
</intent_analysis>

<output_format>
Respond with a valid JSON object ONLY:
{
    "questions": [
        {
            "id": "q1",
            "text": "Question text?",
            "options": ["Option A", "Option B"],
            "allow_other": true
        }
    ]
}
An empty "questions" array is valid when no clarification is needed.
</output_format>

Provide the clarification questions now:`, query, intentDraft)
}

func briefPrompt(query, intentDraft, answers, baseline string) string {
	return fmt.Sprintf(`<system>You are the Master Intent Architect refining a draft analysis.</system>

<task>
Produce the definitive brief for the expert council: refine the draft intent
analysis using the user's clarification responses. Keep the same markdown
structure as the draft. If the user skipped clarification, sharpen the draft
on its own terms.
</task>

<query>%s</query>

<draft_intent>
%s
</draft_intent>

<clarification_responses>
%s
</clarification_responses>
%s
Provide the refined brief now:`, query, intentDraft, answers, baselineSection(baseline))
}

func brainstormPrompt(query, brief string) string {
	return fmt.Sprintf(`<task>
You are brainstorming the OPTIMAL expert team for this specific query.
Your suggestions must be HIGHLY RELEVANT to the query's unique requirements.
</task>

<user_query>%s</user_query>

<intent_analysis>
%s
</intent_analysis>

<brainstorm_requirements>
For each expert you suggest, provide:
1. **Role**: A SPECIFIC professional title relevant to THIS query (not generic titles)
2. **Why Needed**: Why this expertise is critical for this specific query
3. **Goals**: 2-3 specific goals this expert must achieve
4. **Deliverables**: What tangible output this expert will contribute
</brainstorm_requirements>

<output_format>
Provide 2-3 expert suggestions in this format:

### Expert 1: [Specific Role Title]
**Why Needed**: [Why this expertise is essential for this query]
**Goals**:
1. [Specific goal 1]
2. [Specific goal 2]
**Key Deliverables**: [What they will produce]
</output_format>

Provide your expert suggestions now:`, query, brief)
}

func teamSynthesisPrompt(query, brief, suggestions string, numExperts int) string {
	return fmt.Sprintf(`<task>
You are the Chairman forming the FINAL expert team from brainstorm suggestions.
Create a team of %d HIGHLY RELEVANT experts with SPECIFIC roles aligned to this query.
</task>

<user_query>%s</user_query>

<intent_analysis>
%s
</intent_analysis>

<brainstorm_suggestions>
%s
</brainstorm_suggestions>

<team_formation_requirements>
1. Select EXACTLY %d experts
2. Each expert MUST have a SPECIFIC role title, a DETAILED task description,
   and 2-3 measurable objectives
3. Ensure COMPLEMENTARY coverage - each expert addresses a DIFFERENT dimension
4. Order strategically: Foundation builders first, quality reviewers last
5. Draw from the BEST suggestions across all models
</team_formation_requirements>

<output_format>
Respond with a valid JSON object ONLY:
{
    "team_rationale": "2-3 sentences explaining why this team was chosen",
    "experts": [
        {
            "role": "Specific Professional Title",
            "task": "Detailed description of exactly what this expert will analyze, create, or contribute.",
            "objectives": ["Goal 1", "Goal 2"],
            "order": 1
        }
    ]
}
</output_format>

Create the optimal expert team now:`, numExperts, query, brief, suggestions, numExperts)
}

// contributionPrompt builds the prompt for expert `order`. prior holds
// contributions 1..order-1 and nothing else; the sequential chain depends on
// that exact prefix.
func contributionPrompt(query, brief string, expert Expert, prior []Contribution, numExperts int) string {
	var contextSection string
	if len(prior) > 0 {
		var works []string
		for _, entry := range prior {
			works = append(works, fmt.Sprintf("**Expert %d: %s**\n%s", entry.Order, entry.Expert.Name, entry.Text))
		}
		contextSection = fmt.Sprintf(`<prior_contributions>
%s
</prior_contributions>

<your_role>
You are Expert %d of %d. Your job is to CRITICALLY REVIEW and then BUILD UPON the prior work.
Your unique mandate: %s
</your_role>

<quality_review_requirements>
Before adding your contribution, you MUST:
1. **Identify Inaccuracies**: Flag any factual errors or misleading statements.
2. **Surface Assumptions**: Call out unstated assumptions that may not hold.
3. **Detect Reasoning Errors**: Point out logical fallacies, gaps, or weak arguments.
4. **Correct and Improve**: Fix any issues you found, then add your unique value.
</quality_review_requirements>`,
			strings.Join(works, "\n\n---\n\n"), expert.Order, numExperts, expert.Description)
	} else {
		contextSection = fmt.Sprintf(`<your_role>
You are Expert %d of %d. You are the FIRST expert laying the FOUNDATION.
Subsequent experts will review your work for errors and build upon it, so be rigorous.
Your mandate: %s
</your_role>

<foundation_requirements>
As the first expert, you MUST:
1. **State Key Assumptions**: Be explicit about what you're assuming.
2. **Be Rigorous**: Avoid weak claims or unsupported assertions.
3. **Set Clear Direction**: Provide a solid framework others can build on.
</foundation_requirements>`, expert.Order, numExperts, expert.Description)
	}

	return fmt.Sprintf(`<system>You are %s, a world-class professional contributing to a rigorous collaborative process.</system>

<mission>
Help produce the HIGHEST QUALITY artifact that fully addresses the user's intent.
Your contribution must move the reasoning quality, richness, and depth FORWARD.
</mission>

<user_query>%s</user_query>

<intent_analysis>
%s
</intent_analysis>

%s

<contribution_framework>
**## My Contribution: %s**
- Add your unique value and expertise
- Be specific, actionable, and evidence-based
- Integrate with and enhance prior work
- Target 250-400 words

**## Key Assumptions** (if any)
</contribution_framework>

Provide your rigorous expert contribution now:`, expert.Name, query, brief, contextSection, expert.Name)
}

func searchQueriesPrompt(query string, contributions []Contribution, maxQueries int) string {
	return fmt.Sprintf(`<task>
Review the expert contributions and propose the web search queries that would
best verify their most critical factual claims. Propose at most %d queries,
most important first.
</task>

<user_query>%s</user_query>

<expert_contributions>
%s
</expert_contributions>

<output_format>
Respond with a valid JSON object ONLY:
{"queries": ["query 1", "query 2"]}
</output_format>

Provide the search queries now:`, maxQueries, query, contributionSummaries(contributions, 200))
}

func verificationPrompt(query string, contributions []Contribution, evidence string) string {
	evidenceSection := ""
	if evidence != "" {
		evidenceSection = fmt.Sprintf("\n<search_evidence>\n%s\n</search_evidence>\n", evidence)
	}
	return fmt.Sprintf(`<task>
You are a meticulous fact-checker. Review the expert contributions and verify the 2-3 most critical factual claims.
</task>

<user_query>%s</user_query>

<expert_contributions>
%s
</expert_contributions>
%s
<output_format>
## Factual Verification Report

### Claim 1: [Statement]
- **Verdict**: ✅ Verified / ⚠️ Partially Accurate / ❌ Incorrect
- **Evidence**: [Justification]
</output_format>

Provide your verification report now:`, query, contributionSummaries(contributions, 200), evidenceSection)
}

func planningPrompt(query, brief string, contributions []Contribution, verification string) string {
	return fmt.Sprintf(`<task>
You are the Synthesis Architect. Create a STRUCTURED PLAN for the Chairman's final synthesis.
</task>

<user_query>%s</user_query>

<intent_analysis>
%s
</intent_analysis>

<expert_contributions>
%s
</expert_contributions>

<verification_report>
%s
</verification_report>

<output_format>
## Synthesis Plan for Chairman

### 🔴 Critical Missing Elements
### 🟡 Reasoning Gaps to Address
### 📋 Recommended Structure
### ✅ Quality Checklist
### ⚡ Critical Actions for Chairman
</output_format>

Provide the synthesis plan now:`, query, brief, contributionSummaries(contributions, 300), verification)
}

func editorialPrompt(query, brief, plan string) string {
	return fmt.Sprintf(`<task>
You are the Editorial Director. Create detailed writing guidelines for the Chairman's final synthesis.
The guidelines must ensure the final output's style perfectly matches the user's intent and context.
</task>

<user_query>%s</user_query>

<intent_analysis>
%s
</intent_analysis>

<synthesis_plan>
%s
</synthesis_plan>

<output_format>
## Editorial Guidelines for Chairman

### 🎭 Voice & Persona
### 📝 Tone
### 🎯 Audience Calibration
### ✍️ Style Guidelines
### 📐 Formatting Instructions
### ⚠️ Style Anti-Patterns
</output_format>

Provide the editorial guidelines now:`, query, brief, plan)
}

func chairmanPrompt(query, brief string, contributions []Contribution, verification, plan, editorial string) string {
	var works []string
	for _, entry := range contributions {
		works = append(works, fmt.Sprintf("**Expert %d: %s**\n%s", entry.Order, entry.Expert.Name, entry.Text))
	}
	return fmt.Sprintf(`<system>You are the Council Chairman, the master synthesizer responsible for producing a TOP QUALITY final artifact.</system>

<mission>
Synthesize all expert contributions into a definitive, world-class artifact that FULLY addresses the user's intent.
You MUST follow BOTH the Synthesis Plan AND the Editorial Guidelines precisely.
</mission>

<user_query>%s</user_query>

<intent_analysis>
%s
</intent_analysis>

<expert_contributions>
%s
</expert_contributions>

<verification_report>
%s
</verification_report>

<synthesis_plan>
%s
</synthesis_plan>

<editorial_guidelines>
%s
</editorial_guidelines>

<synthesis_protocol>
1. **BLUF (Bottom Line Up Front)**: Start with a definitive 1-2 sentence answer.
2. **Comprehensive Coverage**: Address every dimension of user intent.
3. **Follow Editorial Voice**: Match the tone and style guidelines exactly.
4. **Evidence-Based**: Support claims with reasoning and data.
5. **Actionable Conclusion**: End with clear, specific next steps.
</synthesis_protocol>

Provide the final TOP QUALITY synthesized artifact now:`,
		query, brief, strings.Join(works, "\n\n---\n\n"), verification, plan, editorial)
}

func titlePrompt(query string) string {
	return fmt.Sprintf(`<task>Generate a concise title (3-5 words) for this query.</task>
<query>%s</query>
<rules>No quotes/punctuation. Be specific.</rules>
Title:`, query)
}

// baselineSection wraps the prior turn's final artifact for inclusion in a
// prompt, or returns an empty string for first turns.
func baselineSection(baseline string) string {
	if baseline == "" {
		return "\n"
	}
	return fmt.Sprintf(`
<previous_artifact>
The user is continuing an earlier thread. The council's previous final artifact
was:

%s
</previous_artifact>
`, baseline)
}

// contributionSummaries renders each contribution truncated to limit runes,
// one line per expert.
func contributionSummaries(contributions []Contribution, limit int) string {
	var lines []string
	for _, entry := range contributions {
		text := entry.Text
		if runes := []rune(text); len(runes) > limit {
			text = string(runes[:limit]) + "..."
		}
		lines = append(lines, fmt.Sprintf("- Expert %d (%s): %q", entry.Order, entry.Expert.Name, text))
	}
	return strings.Join(lines, "\n")
}

// formatAnswers renders clarification answers for prompt inclusion. The skip
// case is stated explicitly so downstream stages do not invent answers.
func formatAnswers(questions []Question, answers ClarificationAnswers) string {
	if answers.Skip {
		return "The user chose to skip clarification. Proceed on the draft's stated assumptions."
	}
	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	var lines []string
	for _, a := range answers.Answers {
		q, ok := byID[a.QuestionID]
		label := a.QuestionID
		if ok {
			label = q.Text
		}
		parts := append([]string{}, a.SelectedOptions...)
		if a.OtherText != "" {
			parts = append(parts, a.OtherText)
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", label, strings.Join(parts, "; ")))
	}
	if answers.FreeText != "" {
		lines = append(lines, fmt.Sprintf("- Additional context: %s", answers.FreeText))
	}
	if len(lines) == 0 {
		return "The user provided no additional details."
	}
	return strings.Join(lines, "\n")
}
