// Package cli implements kpictl, which runs the analysis pipeline on local files
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"kpi-diagnostics/internal/config"
	"kpi-diagnostics/internal/llm"
	"kpi-diagnostics/internal/models"
	"kpi-diagnostics/internal/pipeline"
)

const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

type app struct {
	configPath string
	output     string
	logLevel   string

	stdout io.Writer
	stderr io.Writer
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdout, os.Stderr)
}

func NewRootCommandWithIO(out, errOut io.Writer) *cobra.Command {
	return newRootCommand(out, errOut)
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{stdout: out, stderr: errOut}

	cmd := &cobra.Command{
		Use:           "kpictl",
		Short:         "Run RAN KPI diagnostics on local CSV exports",
		Long:          "kpictl normalizes RTWP/SINR/PRB exports, detects anomalies, analyzes correlations and compares panels without a running server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.output != OutputJSON && a.output != OutputYAML {
				return fmt.Errorf("unsupported output format %q (json or yaml)", a.output)
			}
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVarP(&a.output, "output", "o", OutputJSON, "output format: json or yaml")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level written to stderr")

	cmd.AddCommand(
		newAnalyzeCmd(a),
		newCompareCmd(a),
		newBaselineCmd(a),
	)
	return cmd
}

func (a *app) logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(a.stderr)
	level, err := logrus.ParseLevel(a.logLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
	return logger
}

func (a *app) setup() (*config.Config, *pipeline.Analyzer, *logrus.Logger, error) {
	logger := a.logger()
	cfg, err := config.Load(logger, a.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	analyzer, err := pipeline.New(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, analyzer, logger, nil
}

func readInput(path string) (pipeline.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return pipeline.Input{Name: filepath.Base(path), Data: data}, nil
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var summary bool

	cmd := &cobra.Command{
		Use:   "analyze <file.csv>",
		Short: "Analyze one KPI export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, analyzer, logger, err := a.setup()
			if err != nil {
				return err
			}
			in, err := readInput(args[0])
			if err != nil {
				return err
			}

			record, err := analyzer.Analyze(contextOrBackground(cmd), in)
			if err != nil {
				return err
			}

			resp := models.AnalyzeResponse{AnalysisRecord: record}
			if summary {
				s, err := llm.NewService(cfg.LLM).Summarize(contextOrBackground(cmd), record)
				if err != nil {
					logger.WithError(err).Warn("AI summary unavailable")
				} else {
					resp.AISummary = s
				}
			}
			return a.write(resp)
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "ask the configured Ollama model for a summary")
	return cmd
}

func newCompareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <before.csv> <after.csv>",
		Short: "Compare two KPI exports, e.g. before and after an optimization",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, analyzer, _, err := a.setup()
			if err != nil {
				return err
			}
			before, err := readInput(args[0])
			if err != nil {
				return err
			}
			after, err := readInput(args[1])
			if err != nil {
				return err
			}

			report, err := analyzer.CompareBeforeAfter(contextOrBackground(cmd), before, after)
			if err != nil {
				return err
			}
			return a.write(report)
		},
	}
}

func newBaselineCmd(a *app) *cobra.Command {
	var baselinePath string

	cmd := &cobra.Command{
		Use:   "baseline <file.csv>",
		Short: "Compare a KPI export against a baseline profile",
		Long:  "Compares against the configured industry default unless --baseline names a YAML profile.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, analyzer, _, err := a.setup()
			if err != nil {
				return err
			}
			in, err := readInput(args[0])
			if err != nil {
				return err
			}

			var baseline *models.BaselineRecord
			if baselinePath != "" {
				baseline, err = LoadBaseline(baselinePath)
				if err != nil {
					return err
				}
			}

			report, err := analyzer.CompareBaseline(contextOrBackground(cmd), in, baseline)
			if err != nil {
				return err
			}
			return a.write(report)
		},
	}
	cmd.Flags().StringVar(&baselinePath, "baseline", "", "YAML baseline profile")
	return cmd
}

// LoadBaseline reads a baseline profile such as
//
//	source: site-42-march
//	metrics:
//	  RTWP: {mean: -97.5, std: 2.1}
//	  SINR: {mean: 16, std: 1.5}
func LoadBaseline(path string) (*models.BaselineRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}

	var b models.BaselineRecord
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse baseline %s: %w", path, err)
	}
	if len(b.Metrics) == 0 {
		return nil, fmt.Errorf("baseline %s defines no metrics", path)
	}
	for m, ref := range b.Metrics {
		switch m {
		case models.MetricRTWP, models.MetricSINR, models.MetricPRB:
		default:
			return nil, fmt.Errorf("baseline %s: unknown metric %q", path, m)
		}
		if !isFinite(ref.Mean) || !isFinite(ref.Std) {
			return nil, fmt.Errorf("baseline %s: %s must be finite", path, m)
		}
	}
	if b.Source == "" {
		b.Source = "file:" + filepath.Base(path)
	}
	return &b, nil
}

// write renders v in the selected format. YAML goes through the JSON encoding
// so both formats share field names.
func (a *app) write(v interface{}) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if a.output == OutputJSON {
		_, err = fmt.Fprintln(a.stdout, string(body))
		return err
	}

	var generic interface{}
	if err := json.Unmarshal(body, &generic); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	enc := yaml.NewEncoder(a.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
