package commands

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgPath   string
	logLevel  string
	logFormat string
)

func Execute() error {
	root := &cobra.Command{
		Use:           "flowforge",
		Short:         "Train and sample Glow-style normalizing-flow image models",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(logLevel, logFormat)
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (default info)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(trainCmd(), sampleCmd(), inspectCmd())
	if err := root.Execute(); err != nil {
		log.Error(err)
		return err
	}
	return nil
}

func setupLogger(level, format string) error {
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	log.SetLevel(lvl)
	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
