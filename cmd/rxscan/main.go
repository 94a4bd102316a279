// Command rxscan analyzes prescription and pill images from the terminal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"medscan/pkg/analysis"
	"medscan/pkg/config"
	"medscan/pkg/logging"
	"medscan/pkg/meds"
	"medscan/pkg/report"
	"medscan/pkg/rx"
)

func main() {
	if err := rootCmd(os.Stdout).Execute(); err != nil {
		var reported errReported
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

type options struct {
	json    bool
	verbose bool
}

func rootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "rxscan",
		Short:         "Prescription OCR and pill identification",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print JSON instead of the text report")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(prescriptionCmd(opts))
	root.AddCommand(pillCmd(opts))
	root.AddCommand(parseCmd(opts))
	root.AddCommand(medsCmd(opts))
	return root
}

// loadService builds the analysis service and loads models synchronously.
func loadService(ctx context.Context, opts *options) (*analysis.Service, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := zap.NewNop()
	if opts.verbose {
		log = logging.New(true, cfg.LogLevel)
	}
	s := analysis.FromConfig(cfg, nil, log)
	loadCtx, cancel := context.WithTimeout(ctx, 2*cfg.ClassifierTimeout)
	defer cancel()
	if err := s.LoadModels(loadCtx); err != nil {
		return nil, log, fmt.Errorf("Error loading models - %w", err)
	}
	return s, log, nil
}

func prescriptionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "prescription <image>",
		Short: "OCR a prescription image and extract its fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, log, err := loadService(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer log.Sync()
			r, aerr := s.AnalyzePrescription(cmd.Context(), args[0])
			if err := emit(cmd.OutOrStdout(), opts, r, func(w io.Writer) error { return report.WritePrescription(w, r) }); err != nil {
				return err
			}
			return silent(aerr)
		},
	}
}

func pillCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pill <image>",
		Short: "Identify a medication from a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, log, err := loadService(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer log.Sync()
			r, aerr := s.IdentifyPill(cmd.Context(), args[0])
			if err := emit(cmd.OutOrStdout(), opts, r, func(w io.Writer) error { return report.WritePill(w, r) }); err != nil {
				return err
			}
			return silent(aerr)
		},
	}
}

func parseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <textfile|->",
		Short: "Run the prescription field parser on already extracted text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				b   []byte
				err error
			)
			if args[0] == "-" {
				b, err = io.ReadAll(cmd.InOrStdin())
			} else {
				b, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			text := string(b)
			p := rx.Parse(text)
			r := &report.Prescription{RawText: text, Patient: p.Patient, Doctor: p.Doctor, Medications: []report.MedicationEntry{}}
			for _, m := range p.Medications {
				e := report.MedicationEntry{Mention: m}
				if rec, ok := meds.Lookup(m.Name); ok {
					e.Information = rec.Purpose
				}
				r.Medications = append(r.Medications, e)
			}
			return emit(cmd.OutOrStdout(), opts, r, func(w io.Writer) error { return report.WritePrescription(w, r) })
		},
	}
}

func medsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "meds [name]",
		Short: "List the medication knowledge base or show one record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				if opts.json {
					return writeJSON(out, meds.All())
				}
				for _, k := range meds.Keys() {
					rec, _ := meds.Get(k)
					fmt.Fprintf(out, "%-14s %s\n", rec.Name, rec.Purpose)
				}
				return nil
			}
			rec, ok := meds.Lookup(args[0])
			if !ok {
				return fmt.Errorf("%s: not in knowledge base", args[0])
			}
			if opts.json {
				return writeJSON(out, rec)
			}
			fmt.Fprintf(out, "%s\n  Purpose: %s\n  Common Dosage: %s\n  Side Effects: %s\n  Warnings: %s\n  Interactions: %s\n",
				rec.Name, rec.Purpose, rec.Dosage, rec.SideEffects, rec.Warnings, rec.Interactions)
			return nil
		},
	}
}

func emit(w io.Writer, opts *options, v any, text func(io.Writer) error) error {
	if opts.json {
		return writeJSON(w, v)
	}
	return text(w)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// errReported marks a failure already printed in the report.
type errReported struct{ err error }

func (e errReported) Error() string { return e.err.Error() }
func (e errReported) Unwrap() error { return e.err }

func silent(err error) error {
	if err == nil {
		return nil
	}
	return errReported{err}
}
