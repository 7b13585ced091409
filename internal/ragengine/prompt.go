package ragengine

import (
	"fmt"
	"strings"
)

// promptInstructions direct the generator to stay inside the supplied
// context and to say so when the context is insufficient. Grounding lives
// in this block; changing it changes what "grounded" means for every
// answer.
const promptInstructions = `INSTRUCTIONS:
1. Answer the question using ONLY the information from the context above
2. Be specific and cite which company and filing type you're referencing
3. If the context doesn't contain enough information, say so
4. Use numbers and facts from the filings when available
5. Keep your answer concise but informative`

// BuildPrompt assembles the grounded prompt from retrieved chunks, in their
// retrieval order. The output is fully determined by its inputs: no
// randomness, no external calls.
func BuildPrompt(question string, sources []Source) string {
	var b strings.Builder

	b.WriteString("You are a financial analyst assistant. Answer the question based on the provided SEC filing excerpts.\n\n")
	b.WriteString("CONTEXT FROM SEC FILINGS:\n")

	for i, src := range sources {
		fmt.Fprintf(&b, "\n--- Context %d ---\n", i+1)
		fmt.Fprintf(&b, "Company: %s\n", src.Ticker)
		fmt.Fprintf(&b, "Filing: %s\n", src.FilingType)
		fmt.Fprintf(&b, "Content: %s\n", src.Text)
	}

	fmt.Fprintf(&b, "\nQUESTION: %s\n\n", question)
	b.WriteString(promptInstructions)
	b.WriteString("\n\nANSWER:")

	return b.String()
}
