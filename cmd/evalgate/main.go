package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evalgate/evalgate/internal/baseline"
	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/engine"
	"github.com/evalgate/evalgate/internal/evaluator"
	"github.com/evalgate/evalgate/internal/fixture"
	"github.com/evalgate/evalgate/internal/generator"
	"github.com/evalgate/evalgate/internal/llm"
	"github.com/evalgate/evalgate/internal/promptcache"
	"github.com/evalgate/evalgate/internal/report"
	"github.com/evalgate/evalgate/pkg/types"
)

const (
	exitGateFailed    = 1
	exitInvalidConfig = 2

	cachePath = ".evalgate/cache.json"
)

type cliError struct {
	code int
	err  error
}

func (e cliError) Error() string { return e.err.Error() }

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		var ce cliError
		if errors.As(err, &ce) {
			fmt.Fprintln(os.Stderr, ce.err)
			os.Exit(ce.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "evalgate",
		Short: "Evaluate LLM outputs against fixtures and gate CI on the result",
	}
	root.AddCommand(newInitCommand())
	root.AddCommand(newGenerateFixturesCommand())
	root.AddCommand(newRunCommand())
	root.AddCommand(newBaselineCommand())
	root.AddCommand(newReportCommand())
	return root
}

func newInitCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Drop example config, fixtures, schemas, and prompts",
		RunE: func(_ *cobra.Command, _ []string) error {
			for _, dir := range []string{".github", "eval/fixtures", "eval/schemas", "eval/prompts", ".evalgate/outputs"} {
				if err := os.MkdirAll(filepath.Join(path, dir), 0o755); err != nil {
					return err
				}
			}
			files := map[string]string{
				".github/evalgate.yml":             defaultConfigYAML,
				"eval/schemas/queue_item.json":     exampleSchemaJSON,
				"eval/fixtures/cx_001.json":        exampleFixtureJSON,
				"eval/prompts/quality_judge.txt":   qualityJudgePrompt,
				"eval/prompts/sentiment_judge.txt": sentimentJudgePrompt,
			}
			for name, content := range files {
				target := filepath.Join(path, name)
				if _, err := os.Stat(target); err == nil {
					continue
				}
				if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
					return err
				}
			}
			fmt.Println("Initialized example EvalGate files.")
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", ".", "directory to initialize")
	return cmd
}

func newGenerateFixturesCommand() *cobra.Command {
	var schemaPath, outputDir, seedDataPath string
	var count int
	var seed int64
	cmd := &cobra.Command{
		Use:   "generate-fixtures",
		Short: "Generate randomized fixtures from a JSON schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			if schemaPath == "" {
				return fmt.Errorf("--schema is required")
			}
			schema, err := readJSONObject(schemaPath)
			if err != nil {
				return err
			}
			var seedData map[string]any
			if seedDataPath != "" {
				if seedData, err = readJSONObject(seedDataPath); err != nil {
					return err
				}
			}
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return err
			}
			gen := generator.New(seed)
			for i, fx := range gen.Suite(schema, count, seedData) {
				raw, err := json.MarshalIndent(fx, "", "  ")
				if err != nil {
					return err
				}
				name := filepath.Join(outputDir, fmt.Sprintf("fixture_%03d.json", i+1))
				if err := os.WriteFile(name, raw, 0o644); err != nil {
					return err
				}
			}
			fmt.Printf("Generated %d fixture(s) in %s\n", count, outputDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to JSON schema")
	cmd.Flags().StringVar(&outputDir, "output", "eval/fixtures", "directory to write fixtures")
	cmd.Flags().IntVar(&count, "count", 10, "number of fixtures to generate")
	cmd.Flags().StringVar(&seedDataPath, "seed-data", "", "optional seed data JSON file")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	return cmd
}

func newRunCommand() *cobra.Command {
	var configPath, outputPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run evals and write a results artifact",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := runSuite(cmd.Context(), configPath, outputPath)
			if err != nil {
				return err
			}
			if !res.Gate.Passed {
				return cliError{code: exitGateFailed, err: fmt.Errorf("EvalGate FAILED")}
			}
			fmt.Println("EvalGate PASSED")
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to evalgate YAML")
	cmd.Flags().StringVar(&outputPath, "output", ".evalgate/results.json", "where to write results JSON")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

// runSuite loads everything, runs the engine, and writes the artifact. When
// outputPath is empty the config's artifact path is used.
func runSuite(ctx context.Context, configPath, outputPath string) (*types.RunResult, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			return nil, cliError{code: exitInvalidConfig, err: err}
		}
		return nil, err
	}
	set, err := fixture.Load(cfg.Fixtures.Path, cfg.Outputs.Path)
	if err != nil {
		return nil, err
	}

	eng := &engine.Engine{
		Registry: evaluator.NewRegistry(llm.NewOpenAI(), promptcache.Open(cachePath)),
		Baseline: baseline.Load,
	}
	res := eng.Run(ctx, cfg, set)

	if outputPath == "" {
		outputPath = cfg.Report.ArtifactPath
	}
	if err := report.WriteJSON(outputPath, *res); err != nil {
		return nil, err
	}
	return res, nil
}

func newBaselineCommand() *cobra.Command {
	baselineCmd := &cobra.Command{Use: "baseline", Short: "Manage baseline results"}

	var configPath, message string
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Run evals and commit results to the baseline ref",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				var verr *config.ValidationError
				if errors.As(err, &verr) {
					return cliError{code: exitInvalidConfig, err: err}
				}
				return err
			}
			if _, err := runSuite(cmd.Context(), configPath, cfg.Report.ArtifactPath); err != nil {
				var ce cliError
				// A failing gate still updates the baseline; invalid config
				// does not.
				if errors.As(err, &ce) && ce.code == exitInvalidConfig {
					return err
				}
				if !errors.As(err, &ce) {
					return err
				}
			}
			if err := commitBaseline(cfg.Baseline.Ref, cfg.Report.ArtifactPath, message); err != nil {
				return err
			}
			fmt.Printf("Committed %s to %s\n", cfg.Report.ArtifactPath, cfg.Baseline.Ref)
			return nil
		},
	}
	updateCmd.Flags().StringVar(&configPath, "config", "", "path to evalgate YAML")
	updateCmd.Flags().StringVar(&message, "message", "Update EvalGate baseline", "commit message")
	_ = updateCmd.MarkFlagRequired("config")

	baselineCmd.AddCommand(updateCmd)
	return baselineCmd
}

// commitBaseline commits the artifact onto the baseline branch and returns
// to the branch the user was on.
func commitBaseline(ref, artifact, message string) error {
	remote, branch := "", ref
	if idx := strings.Index(ref, "/"); idx > 0 {
		remote, branch = ref[:idx], ref[idx+1:]
	}
	current, err := gitOutput("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return err
	}
	if remote != "" {
		if err := gitRun("fetch", remote, branch); err != nil {
			return err
		}
	}
	if err := gitRun("checkout", branch); err != nil {
		return err
	}
	if err := gitRun("add", artifact); err != nil {
		return err
	}
	if err := gitRun("commit", "-m", message); err != nil {
		return err
	}
	if remote != "" {
		if err := gitRun("push", remote, branch); err != nil {
			return err
		}
	}
	return gitRun("checkout", current)
}

func gitRun(args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func gitOutput(args ...string) (string, error) {
	raw, err := exec.Command("git", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func newReportCommand() *cobra.Command {
	var artifactPath string
	var maxFailures int
	var summary, checkRun bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a markdown summary from results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(artifactPath)
			if err != nil {
				return err
			}
			var res types.RunResult
			if err := json.Unmarshal(raw, &res); err != nil {
				return err
			}
			md := report.BuildMarkdown(res, maxFailures)

			if summary && os.Getenv("GITHUB_STEP_SUMMARY") != "" {
				if err := os.WriteFile(os.Getenv("GITHUB_STEP_SUMMARY"), []byte(md), 0o644); err != nil {
					return err
				}
			} else {
				fmt.Println(md)
			}

			if checkRun {
				token := os.Getenv("GITHUB_TOKEN")
				sha := os.Getenv("GITHUB_SHA")
				repo := os.Getenv("GITHUB_REPOSITORY")
				if token == "" || sha == "" || repo == "" {
					fmt.Fprintln(os.Stderr, "Missing GITHUB_TOKEN, GITHUB_SHA, or GITHUB_REPOSITORY for check run")
					return nil
				}
				payload := report.BuildCheckRun(res, md, sha)
				if err := report.PostCheckRun(cmd.Context(), nil, "", token, repo, payload); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to create check run: %v\n", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&artifactPath, "artifact", ".evalgate/results.json", "path to results JSON")
	cmd.Flags().IntVar(&maxFailures, "max-failures", 20, "max failures to show")
	cmd.Flags().BoolVar(&summary, "summary", false, "write to $GITHUB_STEP_SUMMARY")
	cmd.Flags().BoolVar(&checkRun, "check-run", false, "create a GitHub check run with summary and annotations")
	return cmd
}

func readJSONObject(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return obj, nil
}
