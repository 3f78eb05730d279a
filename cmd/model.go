package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Show the latest model version",
	RunE:  runModel,
}

func init() {
	rootCmd.AddCommand(modelCmd)
}

func runModel(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, store, svc, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	model, err := svc.LatestModel(ctx)
	if err != nil {
		return err
	}
	if model == nil {
		fmt.Println("No model trained")
		return nil
	}

	fmt.Printf("Model %s\n", model.ID)
	fmt.Printf("  Faces:   %d\n", model.FaceCount)
	fmt.Printf("  Created: %s\n", model.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}
