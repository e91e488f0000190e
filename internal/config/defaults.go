package config

// GetDefaults returns the default configuration values
func GetDefaults() map[string]interface{} {
	return map[string]interface{}{
		"backend":          BackendGemini,
		"gemini_model":     "gemini-2.5-flash",
		"agent_cmd":        "claude",
		"agent_args":       []string{"-p", "--output-format", "text"},
		"custom_agent_cmd": "",
		"backend_timeout":  120,

		"synth_max_retries": 3,
		"plan_max_retries":  2,
		"plan_concurrency":  1,

		"lint_cmd":      "linkml-lint",
		"lint_args":     []string{},
		"generate_cmd":  "gen-golang",
		"generate_args": []string{},
		"stage_timeout": 60,
		"smoke_loader":  LoaderYaegi,

		"output_dir":  "./generated",
		"output_file": "models.go",

		"retrieve_refdocs":   false,
		"search_url":         "https://api.tavily.com/search",
		"search_max_results": 3,

		"log_level":     "info",
		"log_format":    "console",
		"show_progress": true,
	}
}
