package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sulu/sulu-sub013/config"
	"github.com/sulu/sulu-sub013/internal/bootstrap"
)

var (
	configPath string
	scope      string
	locale     string
	author     string
	app        *bootstrap.App
)

var rootCmd = &cobra.Command{
	Use:   "treectl",
	Short: "Administer the content tree, its resource locators and categories",
	Long: `treectl works directly on the configured store. It creates, moves,
copies and reorders content nodes, inspects and restores archived resource
locators and maintains the category nested set.

Configuration is read from the environment or from a YAML file given with
--config (STORE_BACKEND, SQLITE_PATH, DB_* ...).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var provider config.Provider = config.NewEnvProvider("")
		if configPath != "" {
			fileProvider, err := config.NewFileProvider(configPath)
			if err != nil {
				return err
			}
			provider = fileProvider
		}
		var err error
		app, err = bootstrap.New(cmd.Context(), provider)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app == nil {
			return nil
		}
		return app.Close(context.Background())
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&scope, "scope", "s", "default", "scope (site or workspace) of the path namespace")
	rootCmd.PersistentFlags().StringVarP(&locale, "locale", "l", "en", "locale of generated and archived paths")
	rootCmd.PersistentFlags().StringVarP(&author, "author", "a", os.Getenv("USER"), "author recorded in audit fields")
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// optionalArg returns a pointer to args[i] or nil when it is absent
func optionalArg(args []string, i int) *string {
	if len(args) <= i || args[i] == "" {
		return nil
	}
	value := args[i]
	return &value
}
