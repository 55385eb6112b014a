package linkwrap

// Pipeline applies the ordered outbound transforms to a composed reply and
// returns the SMS chunks ready for delivery. Canned branches (onboarding,
// FAQ, rename confirmations) bypass it entirely.
type Pipeline struct {
	Rewriter    Rewriter
	ProgramName string
	ProgramURL  string
	ChunkBudget int
}

// Run executes every stage in order. Each stage is idempotent, so a retried
// job that re-enters the pipeline produces identical chunks.
func (p Pipeline) Run(text string) []string {
	text = EnsureLinks(text)
	text = p.Rewriter.RewriteAll(text)
	text = RepairProgramAnchor(text, p.ProgramName, p.ProgramURL)
	text = FlattenSMS(text)
	text = EnsureNotLinkEnding(text)
	return Chunk(text, p.ChunkBudget)
}
