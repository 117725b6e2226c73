//go:build ignore

// Package main generates a synthetic document corpus for benchmarking.
// Usage: go run scripts/generate-test-corpus.go -files 500 -output testdata/bench
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

var (
	numFiles  = flag.Int("files", 500, "Number of documents to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var categories = []string{"guides", "billing", "legal", "operations", "support"}

var subjects = []string{
	"the migration process", "invoice disputes", "data retention",
	"incident response", "account recovery", "service quotas",
	"the backup schedule", "access reviews", "the rollout plan",
	"escalation paths",
}

var clauses = []string{
	"must be completed within five business days",
	"requires approval from the owning team",
	"is documented in the runbook",
	"applies to all production environments",
	"should be reviewed quarterly",
	"is handled by the on-call rotation",
	"follows the standard change process",
	"depends on the previous step finishing cleanly",
}

func sentence(rng *rand.Rand) string {
	return fmt.Sprintf("Note that %s %s.", subjects[rng.Intn(len(subjects))], clauses[rng.Intn(len(clauses))])
}

func document(rng *rand.Rand, title string) string {
	paragraphs := 2 + rng.Intn(4)
	out := "# " + title + "\n\n"
	for p := 0; p < paragraphs; p++ {
		sentences := 4 + rng.Intn(6)
		for s := 0; s < sentences; s++ {
			out += sentence(rng) + " "
		}
		out += "\n\n"
	}
	return out
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	for i := 0; i < *numFiles; i++ {
		category := categories[i%len(categories)]
		dir := filepath.Join(*outputDir, category)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintln(os.Stderr, "mkdir failed:", err)
			os.Exit(1)
		}

		name := fmt.Sprintf("doc-%04d.md", i)
		title := fmt.Sprintf("%s policy %d", category, i)
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(document(rng, title)), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "write failed:", err)
			os.Exit(1)
		}
	}

	fmt.Printf("generated %d documents under %s\n", *numFiles, *outputDir)
}
