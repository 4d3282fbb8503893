// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the listsearch CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the listsearch CLI.
var rootCmd = &cobra.Command{
	Use:   "listsearch",
	Short: "Find what an author sent to mailing lists in a given month",
	Long: `listsearch collects every message an author sent to public mailing-list
archives (LKML, Spinics, Pipermail, HyperKitty and the Red Hat internal
archive) during one month, merges them across archives by Message-ID, and
reports them as patches, replies and other messages.

Defaults come from listsearch.yaml in the current directory or in
~/.config/listsearch/, then LISTSEARCH_* environment variables, then flags.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./listsearch.yaml or ~/.config/listsearch/listsearch.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log every fetch")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("listsearch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "listsearch"))
		}
	}

	viper.SetEnvPrefix("LISTSEARCH")
	// LISTSEARCH_HTTP_TIMEOUT sets http.timeout.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger returns the stderr logger shared by every component.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
