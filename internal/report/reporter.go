// Package report writes human-readable summaries of a trained oracle.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"aquitania/internal/ml"
	"aquitania/internal/oracle"
	"aquitania/internal/storage"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// Report file names inside {outputDir}/{strategy}.
const (
	SummaryFile   = "summary.txt"
	BetSizingFile = "bet_sizing.csv"
	JSONFile      = "report.json"
	XLSXFile      = "report.xlsx"
	PDFFile       = "report.pdf"
)

var formatFiles = map[string]string{
	"txt":  SummaryFile,
	"csv":  BetSizingFile,
	"json": JSONFile,
	"xlsx": XLSXFile,
	"pdf":  PDFFile,
}

// Reporter generates training reports
type Reporter struct {
	oracle     *oracle.Oracle
	history    []storage.TrainingRun
	outputPath string
	formats    []string
}

// NewReporter creates a reporter writing into {outputDir}/{strategy}. An
// empty formats list writes every format.
func NewReporter(o *oracle.Oracle, history []storage.TrainingRun, outputDir string, formats []string) (*Reporter, error) {
	if o == nil {
		return nil, fmt.Errorf("oracle is required")
	}
	if len(formats) == 0 {
		formats = []string{"txt", "csv", "json", "xlsx", "pdf"}
	}
	for _, f := range formats {
		if _, ok := formatFiles[f]; !ok {
			return nil, fmt.Errorf("unknown report format %q", f)
		}
	}
	return &Reporter{
		oracle:     o,
		history:    history,
		outputPath: filepath.Join(outputDir, o.Strategy),
		formats:    formats,
	}, nil
}

// OutputPath returns the directory reports are written to.
func (r *Reporter) OutputPath() string { return r.outputPath }

// GenerateReport writes every configured format and returns the paths written.
func (r *Reporter) GenerateReport() ([]string, error) {
	if err := os.MkdirAll(r.outputPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	generators := map[string]func(io.Writer) error{
		"txt":  r.writeSummary,
		"csv":  r.writeBetSizing,
		"json": r.writeJSON,
		"xlsx": r.writeXLSX,
		"pdf":  r.writePDF,
	}

	paths := make([]string, 0, len(r.formats))
	for _, format := range r.formats {
		path := filepath.Join(r.outputPath, formatFiles[format])
		var buf bytes.Buffer
		if err := generators[format](&buf); err != nil {
			return paths, fmt.Errorf("failed to generate %s report: %w", format, err)
		}
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		log.Info().Str("file", path).Msg("Report generated")
		paths = append(paths, path)
	}
	return paths, nil
}

func (r *Reporter) writeSummary(w io.Writer) error {
	o := r.oracle
	m := o.Metrics

	fmt.Fprintf(w, "TRAINING RESULTS SUMMARY\n")
	fmt.Fprintf(w, "========================\n\n")
	fmt.Fprintf(w, "Strategy: %s\n", o.Strategy)
	fmt.Fprintf(w, "Signal: %s\n", o.Signal)
	fmt.Fprintf(w, "Model: %s\n", o.ModelKind())
	fmt.Fprintf(w, "Artifact ID: %s\n", o.ID)
	fmt.Fprintf(w, "Created: %s\n\n", o.CreatedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(w, "EVALUATION\n")
	fmt.Fprintf(w, "----------\n")
	fmt.Fprintf(w, "Train/Test Rows: %d / %d\n", m.TrainingSamples, m.TestSamples)
	fmt.Fprintf(w, "Threshold: %.2f\n", o.Threshold)
	fmt.Fprintf(w, "Accuracy: %.2f%%\n", m.Accuracy*100)
	fmt.Fprintf(w, "Precision: %.2f%%\n", m.Precision*100)
	fmt.Fprintf(w, "Recall: %.2f%%\n", m.Recall*100)
	fmt.Fprintf(w, "F1: %.4f\n", m.F1Score)
	fmt.Fprintf(w, "AUC: %.4f\n", m.AUCScore)
	fmt.Fprintf(w, "Approval Rate: %.2f%%\n", m.ApprovalRate*100)

	for _, side := range r.sides() {
		fmt.Fprintf(w, "\nBET SIZING (%s)\n", side.name)
		fmt.Fprintf(w, "--------------------\n")
		for _, currency := range side.table.Currencies() {
			for _, b := range side.table[currency] {
				fmt.Fprintf(w, "%s @ %.2f: %d trades, %.2f%% win rate, kelly %.4f\n",
					currency, b.Ratio, b.Samples, b.WinRate*100, b.Kelly)
			}
		}
	}

	if len(o.Importance) > 0 {
		fmt.Fprintf(w, "\nFEATURE IMPORTANCE\n")
		fmt.Fprintf(w, "------------------\n")
		for _, fi := range o.Importance {
			fmt.Fprintf(w, "%s: %.4f\n", fi.Name, fi.Importance)
		}
	}

	if len(r.history) > 0 {
		fmt.Fprintf(w, "\nRUN HISTORY\n")
		fmt.Fprintf(w, "-----------\n")
		for _, run := range r.history {
			status := "ok"
			if run.Error != "" {
				status = "failed: " + run.Error
			}
			fmt.Fprintf(w, "%s %s rows=%d auc=%.4f %s\n",
				run.StartedAt.Format("2006-01-02 15:04:05"), run.ModelKind, run.DatasetRows, run.AUC, status)
		}
	}
	return nil
}

var betSizingHeader = []string{"Direction", "Currency", "Ratio", "Samples", "Win Rate", "Kelly"}

func (r *Reporter) writeBetSizing(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(betSizingHeader); err != nil {
		return err
	}
	for _, record := range r.betSizingRecords() {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (r *Reporter) betSizingRecords() [][]string {
	var records [][]string
	for _, side := range r.sides() {
		for _, currency := range side.table.Currencies() {
			for _, b := range side.table[currency] {
				records = append(records, []string{
					side.name,
					currency,
					strconv.FormatFloat(b.Ratio, 'f', 2, 64),
					strconv.Itoa(b.Samples),
					strconv.FormatFloat(b.WinRate, 'f', 4, 64),
					strconv.FormatFloat(b.Kelly, 'f', 4, 64),
				})
			}
		}
	}
	return records
}

type side struct {
	name  string
	table ml.BetSizingTable
}

func (r *Reporter) sides() []side {
	return []side{
		{string(oracle.DirectionNormal), r.oracle.BetSizing},
		{string(oracle.DirectionInverse), r.oracle.InverseBetSizing},
	}
}

// jsonReport is the layout of report.json.
type jsonReport struct {
	Strategy         string                 `json:"strategy"`
	Signal           string                 `json:"signal"`
	ModelKind        string                 `json:"model_kind"`
	ArtifactID       string                 `json:"artifact_id"`
	CreatedAt        time.Time              `json:"created_at"`
	Features         []string               `json:"features"`
	Metrics          ml.ModelMetrics        `json:"metrics"`
	BetSizing        ml.BetSizingTable      `json:"bet_sizing"`
	InverseBetSizing ml.BetSizingTable      `json:"inverse_bet_sizing"`
	Importance       []ml.FeatureImportance `json:"importance,omitempty"`
	History          []storage.TrainingRun  `json:"history,omitempty"`
	GeneratedAt      time.Time              `json:"generated_at"`
}

func (r *Reporter) writeJSON(w io.Writer) error {
	o := r.oracle
	report := jsonReport{
		Strategy:         o.Strategy,
		Signal:           o.Signal.Entry,
		ModelKind:        o.ModelKind(),
		ArtifactID:       o.ID,
		CreatedAt:        o.CreatedAt,
		Features:         o.Features,
		Metrics:          o.Metrics,
		BetSizing:        o.BetSizing,
		InverseBetSizing: o.InverseBetSizing,
		Importance:       o.Importance,
		History:          r.history,
		GeneratedAt:      time.Now().UTC(),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

func (r *Reporter) writeXLSX(w io.Writer) error {
	o := r.oracle
	m := o.Metrics

	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	betSheet := "bet_sizing"
	importanceSheet := "importance"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(betSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(importanceSheet); err != nil {
		return err
	}

	summary := [][2]any{
		{"Strategy", o.Strategy},
		{"Signal", o.Signal.Entry},
		{"Model", o.ModelKind()},
		{"Artifact ID", o.ID},
		{"Created", o.CreatedAt.Format(time.RFC3339)},
		{"Train Rows", m.TrainingSamples},
		{"Test Rows", m.TestSamples},
		{"Threshold", o.Threshold},
		{"Accuracy", m.Accuracy},
		{"Precision", m.Precision},
		{"Recall", m.Recall},
		{"F1", m.F1Score},
		{"AUC", m.AUCScore},
		{"Approval Rate", m.ApprovalRate},
	}
	_ = f.SetCellValue(summarySheet, "A1", "Training Results")
	for i, kv := range summary {
		row := i + 3
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), kv[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), kv[1])
	}

	for i, h := range betSizingHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(betSheet, cell, h)
	}
	row := 2
	for _, side := range r.sides() {
		for _, currency := range side.table.Currencies() {
			for _, b := range side.table[currency] {
				_ = f.SetCellValue(betSheet, fmt.Sprintf("A%d", row), side.name)
				_ = f.SetCellValue(betSheet, fmt.Sprintf("B%d", row), currency)
				_ = f.SetCellValue(betSheet, fmt.Sprintf("C%d", row), b.Ratio)
				_ = f.SetCellValue(betSheet, fmt.Sprintf("D%d", row), b.Samples)
				_ = f.SetCellValue(betSheet, fmt.Sprintf("E%d", row), b.WinRate)
				_ = f.SetCellValue(betSheet, fmt.Sprintf("F%d", row), b.Kelly)
				row++
			}
		}
	}

	_ = f.SetCellValue(importanceSheet, "A1", "Feature")
	_ = f.SetCellValue(importanceSheet, "B1", "Importance")
	for i, fi := range o.Importance {
		_ = f.SetCellValue(importanceSheet, fmt.Sprintf("A%d", i+2), fi.Name)
		_ = f.SetCellValue(importanceSheet, fmt.Sprintf("B%d", i+2), fi.Importance)
	}

	return f.Write(w)
}

func (r *Reporter) writePDF(w io.Writer) error {
	o := r.oracle
	m := o.Metrics

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, fmt.Sprintf("Training Report: %s", o.Strategy))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	lines := []string{
		fmt.Sprintf("Signal: %s", o.Signal.Entry),
		fmt.Sprintf("Model: %s", o.ModelKind()),
		fmt.Sprintf("Artifact ID: %s", o.ID),
		fmt.Sprintf("Created: %s", o.CreatedAt.Format(time.RFC3339)),
		fmt.Sprintf("Train/Test Rows: %d / %d", m.TrainingSamples, m.TestSamples),
		fmt.Sprintf("Accuracy: %.2f%%  Precision: %.2f%%  Recall: %.2f%%", m.Accuracy*100, m.Precision*100, m.Recall*100),
		fmt.Sprintf("AUC: %.4f  F1: %.4f  Threshold: %.2f", m.AUCScore, m.F1Score, o.Threshold),
	}
	for _, line := range lines {
		pdf.Cell(0, 6, line)
		pdf.Ln(5)
	}
	pdf.Ln(4)

	widths := []float64{25, 30, 20, 25, 30, 30}
	pdf.SetFont("Arial", "B", 10)
	for i, h := range betSizingHeader {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, record := range r.betSizingRecords() {
		for i, v := range record {
			align := "R"
			if i < 2 {
				align = "C"
			}
			pdf.CellFormat(widths[i], 6, v, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}
