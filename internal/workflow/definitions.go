package workflow

import "github.com/dograh/blogforge/internal/models"

// StepDef describes one step of a workflow definition
type StepDef struct {
	Number int
	Name   string
	Owner  string
}

// Definition is a fixed, ordered workflow
type Definition struct {
	Kind  string
	Steps []StepDef
}

// TotalSteps returns the number of steps in the workflow
func (d Definition) TotalSteps() int {
	return len(d.Steps)
}

// Step returns the definition of step n (1-based)
func (d Definition) Step(n int) (StepDef, bool) {
	if n < 1 || n > len(d.Steps) {
		return StepDef{}, false
	}
	return d.Steps[n-1], true
}

// IsHumanInput reports whether step n requires human input
func (d Definition) IsHumanInput(n int) bool {
	step, ok := d.Step(n)
	if !ok {
		return false
	}
	return step.Owner == models.OwnerHuman || step.Owner == models.OwnerMixed
}

// Standard is the full 22-step blog creation workflow
var Standard = Definition{
	Kind: models.WorkflowStandard,
	Steps: []StepDef{
		{1, "Search Intent Analysis", models.OwnerAI},
		{2, "Competitor Content Fetch", models.OwnerAI},
		{3, "Competitor Analysis", models.OwnerAI},
		{4, "Expert Opinion / QnA", models.OwnerMixed},
		{5, "Secondary Keywords", models.OwnerHuman},
		{6, "Blog Clustering", models.OwnerAI},
		{7, "Outline Generation", models.OwnerAI},
		{8, "LLM Optimization Planning", models.OwnerAI},
		{9, "Data Collection", models.OwnerHuman},
		{10, "Tools Research", models.OwnerHuman},
		{11, "Resource Links", models.OwnerHuman},
		{12, "Credibility Elements", models.OwnerHuman},
		{13, "Business Info Update", models.OwnerHuman},
		{14, "Landing Page Evaluation", models.OwnerAI},
		{15, "Infographic Planning", models.OwnerAI},
		{16, "Title Creation", models.OwnerAI},
		{17, "Blog Draft Generation", models.OwnerAI},
		{18, "FAQ Accordion", models.OwnerAI},
		{19, "Meta Description", models.OwnerAI},
		{20, "AI Signal Removal", models.OwnerAI},
		{21, "Export & Archive", models.OwnerAI},
		{22, "Final Review Checklist", models.OwnerHuman},
	},
}

// Webinar is the 15-step webinar-to-blog workflow
var Webinar = Definition{
	Kind: models.WorkflowWebinar,
	Steps: []StepDef{
		{1, "Webinar Topic Input", models.OwnerHuman},
		{2, "Competitor Content Fetch", models.OwnerAI},
		{3, "Competitor Analysis", models.OwnerAI},
		{4, "Webinar Transcript Input", models.OwnerHuman},
		{5, "Content Guidelines Input", models.OwnerHuman},
		{6, "Outline Generation", models.OwnerAI},
		{7, "LLM Optimization Planning", models.OwnerAI},
		{8, "Landing Page Evaluation", models.OwnerAI},
		{9, "Infographic Planning", models.OwnerAI},
		{10, "Title Generation", models.OwnerAI},
		{11, "Blog Draft Generation", models.OwnerAI},
		{12, "Meta Description", models.OwnerAI},
		{13, "AI Signal Removal", models.OwnerAI},
		{14, "Export & Archive", models.OwnerAI},
		{15, "Final Review Checklist", models.OwnerHuman},
	},
}

// ForKind returns the workflow definition for a kind, defaulting to the
// standard workflow
func ForKind(kind string) Definition {
	if kind == models.WorkflowWebinar {
		return Webinar
	}
	return Standard
}
