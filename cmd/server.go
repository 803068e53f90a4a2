package cmd

import (
	"ScoreFM/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the ScoreFM HTTP server",
	Long:  "Start the ScoreFM HTTP server: music generation, score conversion and audio serving.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
