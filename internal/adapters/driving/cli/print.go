package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driving"
)

var (
	printZip    string
	printOutput string
)

var printCmd = &cobra.Command{
	Use:   "print <xml>",
	Short: "Export the samples and markers of one aECG file to Excel",
	Long: `Decodes one HL7 aECG file and writes a workbook with one sheet per
waveform (time in ms and one column per lead in mV), the annotation
markers and the interval measurements.

The default output is <xml name>.xlsx in the current directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runPrint,
}

func init() {
	printCmd.Flags().StringVar(&printZip, "zip", "", "zip archive containing the XML member")
	printCmd.Flags().StringVarP(&printOutput, "output", "o", "", "output workbook path")
	rootCmd.AddCommand(printCmd)
}

func runPrint(cmd *cobra.Command, args []string) error {
	if err := requireService("inspect", inspectService); err != nil {
		return err
	}
	if err := requireService("workbook", workbookWriter); err != nil {
		return err
	}

	ctx := cmd.Context()
	res, err := inspectService.Inspect(ctx, driving.InspectRequest{XMLPath: args[0], ZipPath: printZip})
	if err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}

	out := printOutput
	if out == "" {
		out = defaultPrintPath(args[0])
	}

	export := driven.WaveformExport{Document: res.Document, Measurements: res.Measurements}
	if err := workbookWriter.WriteWaveforms(ctx, export, out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	cmd.Printf("Waveforms written to %s\n", out)
	return nil
}

func defaultPrintPath(xmlPath string) string {
	base := filepath.Base(xmlPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".xlsx"
}
