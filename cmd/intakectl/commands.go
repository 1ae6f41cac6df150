package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/noah-isme/fvu-intake/internal/models"
	"github.com/noah-isme/fvu-intake/internal/service"
	"github.com/noah-isme/fvu-intake/pkg/clock"
	"github.com/noah-isme/fvu-intake/pkg/export"
)

var errInvalidForm = errors.New("form has validation errors")

func newEngine() (*service.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return service.NewEngine(cfg, clock.Real{}, nil)
}

func readFieldSet(formType, path string) (models.FieldSet, error) {
	ft, err := models.ParseFormType(formType)
	if err != nil {
		return models.FieldSet{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.FieldSet{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.FieldSet{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return models.CaptureFieldSet(ft, raw)
}

// printErrors writes one "field: message" line per error in a stable order.
func printErrors(w io.Writer, errs map[string]string) {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %s\n", k, errs[k])
	}
}

func newValidateCmd() *cobra.Command {
	var formType string
	cmd := &cobra.Command{
		Use:   "validate <fields.json>",
		Short: "Validate a captured form and report completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			fs, err := readFieldSet(formType, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			result := engine.Validation.Validate(fs)
			printErrors(out, result.FieldErrors)
			fmt.Fprintf(out, "completion: %d%%\n", engine.Validation.CompletionPercent(fs))
			if !result.IsValid {
				fmt.Fprintf(out, "first invalid field: %s\n", result.FirstInvalidField)
				return errInvalidForm
			}
			fmt.Fprintln(out, "valid")
			return nil
		},
	}
	cmd.Flags().StringVarP(&formType, "type", "t", "", "form type: upload, analysis or recovery")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var formType, output, recordPath, csvPath string
	cmd := &cobra.Command{
		Use:   "render <fields.json>",
		Short: "Render the PDF report and optionally the JSON record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			fs, err := readFieldSet(formType, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result := engine.Validation.Validate(fs); !result.IsValid {
				printErrors(out, result.FieldErrors)
				return errInvalidForm
			}
			model, err := engine.Documents.Build(fs)
			if err != nil {
				return err
			}

			if output == "" {
				output = service.AttachmentBaseName(fs, engine.Calculation.Now()) + ".pdf"
			}
			pdf, err := export.NewPDFRenderer("Forensic Video Unit").Render(cmd.Context(), model.Report)
			if err != nil {
				return fmt.Errorf("render report: %w", err)
			}
			if err := os.WriteFile(output, pdf, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(out, "report: %s\n", output)

			if recordPath != "" {
				data, digest, err := engine.Documents.EncodeRecord(model.Record)
				if err != nil {
					return fmt.Errorf("encode record: %w", err)
				}
				if err := os.WriteFile(recordPath, data, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(out, "record: %s (sha256 %s)\n", recordPath, digest)
			}
			if csvPath != "" {
				data, err := export.NewCSVExporter().Render(model.Report)
				if err != nil {
					return err
				}
				if err := os.WriteFile(csvPath, data, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(out, "csv: %s\n", csvPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&formType, "type", "t", "", "form type: upload, analysis or recovery")
	cmd.Flags().StringVarP(&output, "output", "o", "", "PDF output path")
	cmd.Flags().StringVar(&recordPath, "record", "", "also write the canonical JSON record to this path")
	cmd.Flags().StringVar(&csvPath, "csv", "", "also write the report sections as CSV to this path")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newOffsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "offset <text>",
		Short: "Parse a DVR clock offset description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info := service.ParseTimeOffset(args[0])
			out := cmd.OutOrStdout()
			if !info.HasUnits {
				fmt.Fprintf(out, "no units found: %q\n", info.Formatted)
				return nil
			}
			fmt.Fprintf(out, "hours: %d\nminutes: %d\nseconds: %d\ndirection: %s\n", info.Hours, info.Minutes, info.Seconds, info.Direction)
			fmt.Fprintf(out, "canonical: %s\n", info.Formatted)
			return nil
		},
	}
}
