package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/nanobanan/banana/internal/db/models"
)

// output format values
const (
	formatText  = "text"
	formatJSON  = "json"
	formatQuiet = "quiet"
)

func validFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatQuiet:
		return nil
	default:
		return fmt.Errorf("invalid format %q, valid values: text, json, quiet", format)
	}
}

// printJSON pretty-prints any value to stdout
func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting response: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// printJobTable renders jobs as an aligned text table, newest first
func printJobTable(jobs []models.Job) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSTATUS\tATTEMPTS\tPROMPT\tCREATED")
	for _, job := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			job.ID,
			job.Kind,
			job.Status,
			job.Attempts,
			job.PromptPreview(38),
			job.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// printJobDetail renders one job's full record as text
func printJobDetail(job *models.Job) {
	fmt.Printf("Job ID:   %s\n", job.ID)
	fmt.Printf("Kind:     %s\n", job.Kind)
	fmt.Printf("Status:   %s\n", job.Status)
	fmt.Printf("Attempts: %d\n", job.Attempts)
	fmt.Printf("Model:    %s\n", job.Params.Model)
	fmt.Printf("Created:  %s\n", job.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:  %s\n", job.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Println()
	fmt.Println("Prompt:")
	fmt.Printf("  %s\n", job.Prompt)
	fmt.Println()
	fmt.Println("Parameters:")
	fmt.Printf("  Aspect Ratio: %s\n", job.Params.AspectRatio)
	fmt.Printf("  Size:         %s\n", job.Params.Size)
	fmt.Printf("  Images:       %d\n", job.Params.NumImages)

	if job.SourceImage != "" {
		fmt.Printf("  Source:       %s\n", job.SourceImage)
	}

	if len(job.Images) > 0 {
		fmt.Println()
		fmt.Println("Artifacts:")
		for _, img := range job.Images {
			switch {
			case img.Path != "":
				fmt.Printf("  [%d] %s\n", img.Index, img.Path)
			default:
				fmt.Printf("  [%d] %s (not downloaded)\n", img.Index, img.MIMEType)
			}
		}
	}

	if job.ErrorKind != models.ErrorKindNone {
		fmt.Println()
		fmt.Printf("Error (%s): %s\n", job.ErrorKind, job.ErrorMsg)
	}
}
