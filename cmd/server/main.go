// Package main is the entry point for the vtt-api server
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vtt-api",
	Short: "VTT API Server",
	Long:  `VTT API provides the backend for virtual-tabletop game sessions: lifecycle, chat, dice rolls, initiative, and a realtime channel for connected players.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
