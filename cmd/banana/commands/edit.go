package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nanobanan/banana/internal/artifacts"
	"github.com/nanobanan/banana/internal/engine"
)

func init() {
	addGenerationFlags(editCmd)
	RootCmd.AddCommand(editCmd)
}

var editCmd = &cobra.Command{
	Use:     "edit <image> <prompt>",
	Aliases: []string{"e"},
	Short:   "Edit an existing image using a text prompt",
	Long: `Edit modifies an existing image guided by a text description. The source
image is resolved at submission time and snapshotted into the job, so the
job can be retried or resumed without re-reading the file.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourcePath, prompt := args[0], args[1]

		params, err := paramsFromFlags(cmd)
		if err != nil {
			return err
		}

		// Resolve the source image up front; the engine never reads disk.
		data, mimeType, err := artifacts.LoadImage(sourcePath)
		if err != nil {
			return err
		}
		params.InputData = data
		params.InputMIME = mimeType

		return submitAndWait(cmd, func(ctx context.Context, eng *engine.Engine) (string, error) {
			return eng.SubmitEdit(ctx, prompt, sourcePath, params)
		})
	},
}
