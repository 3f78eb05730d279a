package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facebot/internal/encoder"
)

var trainCmd = &cobra.Command{
	Use:   "train <label> <directory>",
	Short: "Bulk-train a label from a directory of photos",
	Long: `Train the model with every image in a directory under one label.
Each photo must contain exactly one face; photos that fail are reported
and skipped.`,
	Args: cobra.ExactArgs(2),
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}

func runTrain(cmd *cobra.Command, args []string) error {
	label, dir := args[0], args[1]
	ctx := context.Background()

	_, store, svc, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && isImageFile(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no images found in %s", dir)
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription(fmt.Sprintf("Training %s", label)),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var trained, skipped int
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			fmt.Printf("\n%s: %v\n", file, err)
			skipped++
			_ = bar.Add(1)
			continue
		}
		if err := svc.TrainImage(ctx, data, label); err != nil {
			switch {
			case errors.Is(err, encoder.ErrNoFace):
				fmt.Printf("\n%s: no face found, skipping\n", file)
			case errors.Is(err, encoder.ErrTooManyFaces):
				fmt.Printf("\n%s: more than one face found, skipping\n", file)
			default:
				return fmt.Errorf("train %s: %w", file, err)
			}
			skipped++
			_ = bar.Add(1)
			continue
		}
		trained++
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Printf("\nTrained %d photos for %s (%d skipped)\n", trained, label, skipped)
	return nil
}
