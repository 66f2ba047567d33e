package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mickekring/berget-gpt/internal/config"
	"github.com/mickekring/berget-gpt/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bergetgpt",
	Short: "BergetGPT chat backend",
	Long:  `BergetGPT serves a browser chat application: streaming completions, document search, web search, and external tools over MCP.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.bergetgpt/config.yaml)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("server.addr", config.DefaultServerAddr, "listen address")
}
