package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nanobanan/banana/internal/artifacts"
	"github.com/nanobanan/banana/internal/db/models"
	"github.com/nanobanan/banana/internal/engine"
	"github.com/nanobanan/banana/internal/logger"
)

func init() {
	addGenerationFlags(generateCmd)
	RootCmd.AddCommand(generateCmd)
}

var generateCmd = &cobra.Command{
	Use:     "generate <prompt>",
	Aliases: []string{"g"},
	Short:   "Generate a new image from a text prompt",
	Long: `Generate creates images from a text description and tracks the request as
a durable job. The command waits for the job to finish and downloads the
produced images to the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := paramsFromFlags(cmd)
		if err != nil {
			return err
		}
		return submitAndWait(cmd, func(ctx context.Context, eng *engine.Engine) (string, error) {
			return eng.SubmitGenerate(ctx, args[0], params)
		})
	},
}

// addGenerationFlags registers the parameter flags shared by generate and edit
func addGenerationFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("aspect-ratio", "a", "", "Aspect ratio (1:1, 16:9, 9:16, ...)")
	cmd.Flags().StringP("size", "s", "", "Image size (1K, 2K, 4K)")
	cmd.Flags().StringP("model", "m", "", "Model to use")
	cmd.Flags().IntP("num-images", "n", 0, "Number of images to generate (1-4)")
	cmd.Flags().StringP("output", "o", "", "Output directory for downloaded images")
	cmd.Flags().Bool("no-download", false, "Don't download images automatically")
	cmd.Flags().StringP(flagFormat, "f", formatText, "Output format (text, json, quiet)")
}

// paramsFromFlags builds the immutable parameter snapshot from config
// defaults overridden by flags.
func paramsFromFlags(cmd *cobra.Command) (models.Params, error) {
	params := models.Params{
		Model:       cfg.API.Model,
		AspectRatio: cfg.Defaults.AspectRatio,
		Size:        cfg.Defaults.Size,
		NumImages:   cfg.Defaults.NumImages,
	}
	if v, _ := cmd.Flags().GetString("aspect-ratio"); v != "" {
		params.AspectRatio = v
	}
	if v, _ := cmd.Flags().GetString("size"); v != "" {
		params.Size = v
	}
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		params.Model = v
	}
	if v, _ := cmd.Flags().GetInt("num-images"); v != 0 {
		if v < 1 || v > 4 {
			return params, fmt.Errorf("num-images must be between 1 and 4")
		}
		params.NumImages = v
	}
	if params.NumImages == 0 {
		params.NumImages = 1
	}
	return params, nil
}

// submitAndWait runs the shared submit → await → download → report flow
func submitAndWait(cmd *cobra.Command, submit func(context.Context, *engine.Engine) (string, error)) error {
	ctx := cmd.Context()

	format, _ := cmd.Flags().GetString(flagFormat)
	if err := validFormat(format); err != nil {
		return err
	}

	eng, cleanup, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	// Pick up anything a previous process left unfinished.
	if _, err := eng.Recover(ctx); err != nil {
		logger.Warnf("recovery scan failed: %v", err)
	}

	id, err := submit(ctx, eng)
	if err != nil {
		return err
	}
	if format == formatText {
		fmt.Printf("Submitted job %s\n", id)
	}

	job, err := eng.Await(ctx, id)
	if err != nil {
		return err
	}

	if job.Status == models.JobStatusFailed {
		if format == formatJSON {
			return printJSON(job)
		}
		return fmt.Errorf("job %s failed (%s): %s", job.ID, job.ErrorKind, job.ErrorMsg)
	}

	var paths []string
	noDownload, _ := cmd.Flags().GetBool("no-download")
	if !noDownload && cfg.Output.AutoDownload {
		outputDir, _ := cmd.Flags().GetString("output")
		if outputDir == "" {
			outputDir = cfg.Output.Directory
		}
		paths, err = artifacts.Download(job, outputDir)
		if err != nil {
			return err
		}
	}

	switch format {
	case formatJSON:
		return printJSON(job)
	case formatQuiet:
		for _, path := range paths {
			fmt.Println(path)
		}
	default:
		fmt.Printf("Job %s completed with %d image(s) after %d attempt(s)\n", job.ID, len(job.Images), job.Attempts)
		for _, path := range paths {
			fmt.Printf("  %s\n", path)
		}
		if len(paths) == 0 {
			fmt.Println("  (images not downloaded; use 'banana jobs show' to inspect)")
		}
	}
	return nil
}
