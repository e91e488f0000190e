package stages

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/outcomegen/internal/cli/shared"
	"github.com/ariel-frischer/outcomegen/internal/outcome"
	"github.com/ariel-frischer/outcomegen/internal/refdocs"
	"github.com/ariel-frischer/outcomegen/internal/workflow"
)

// refdocView is the JSON shape of one prefix's retrieval.
type refdocView struct {
	Prefix string                `json:"prefix"`
	Doc    *refdocs.ReferenceDoc `json:"doc,omitempty"`
	Error  string                `json:"error,omitempty"`
	// ScrapeError is informational; the search hits in Doc are intact.
	ScrapeError string `json:"scrape_error,omitempty"`
}

var refdocsCmd = &cobra.Command{
	Use:   "refdocs <outcome>",
	Short: "Retrieve reference documentation for the outcome's ontology hints",
	Long: `Search for and scrape reference documentation for every ontology hint in
the outcome document, printing one JSON entry per prefix. A failing prefix is
reported in its entry and does not stop the others.

Requires a search API key (TAVILY_API_KEY or OUTCOMEGEN_SEARCH_API_KEY).`,
	Example: `  outcomegen refdocs outcome.yaml`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := shared.LoadRuntime(cmd)
		if err != nil {
			return shared.Report(cmd, err)
		}
		defer rt.Close()

		spec, err := outcome.Load(args[0])
		if err != nil {
			return shared.Report(cmd, err)
		}
		retriever, err := workflow.NewRetriever(rt.Config, rt.Logger)
		if err != nil {
			return shared.Report(cmd, err)
		}

		results := retriever.Retrieve(cmd.Context(), spec.OntologyHints)
		views := make([]refdocView, 0, len(results))
		for _, prefix := range results.Prefixes() {
			r := results[prefix]
			v := refdocView{Prefix: prefix, Doc: r.Doc}
			if r.Err != nil {
				v.Error = r.Err.Error()
			}
			if r.ScrapeErr != nil {
				v.ScrapeError = r.ScrapeErr.Error()
			}
			views = append(views, v)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return shared.Report(cmd, enc.Encode(views))
	},
}

func init() {
	refdocsCmd.GroupID = shared.GroupSteps
}
