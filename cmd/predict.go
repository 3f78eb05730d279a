package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facebot/internal/annotate"
)

var predictCmd = &cobra.Command{
	Use:   "predict <file>",
	Short: "Predict the faces on a local photo",
	Long: `Run a prediction against the trained model for a local image file.
The annotated image is written next to the caption output.`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().String("out", "prediction.png", "Path for the annotated output image")
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, store, svc, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	result, err := svc.PredictImage(ctx, data)
	if err != nil {
		return err
	}

	out := mustGetString(cmd, "out")
	if err := os.WriteFile(out, result.Image, 0o644); err != nil {
		return fmt.Errorf("write annotated image: %w", err)
	}

	fmt.Print(result.Caption)
	if text := annotate.NotesText(result.Notes); text != "" {
		fmt.Print(text)
	}
	fmt.Printf("Annotated image written to %s\n", out)
	return nil
}
