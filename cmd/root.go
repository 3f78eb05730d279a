package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facebot/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "facebot",
	Short: "A Telegram bot for face recognition",
	Long: `Facebot is a Telegram bot that learns faces from labeled photos
and recognizes them in new ones. Admins train labels by sending photos,
everyone can request predictions. Models are versioned in PostgreSQL.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
	logger.Init()
}
