package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sulu/sulu-sub013/models"
	"github.com/sulu/sulu-sub013/resourcelocator"
)

var (
	parentPath  string
	parentNode  string
	templateKey string
)

var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Generate, resolve and maintain resource locators",
}

var pathGenerateCmd = &cobra.Command{
	Use:   "generate <part>...",
	Short: "Print a free resource locator for the given parts",
	Long: `Generate a resource locator without reserving it.

Examples:
  treectl path generate Hello World --parent-path /news   # /news/hello-world
  treectl path generate Hello World --parent 6f1c...`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := app.Strategy.Generate(cmd.Context(), resourcelocator.GenerateInput{
			Parts:       args,
			ParentPath:  parentPath,
			ParentID:    optionalArg([]string{parentNode}, 0),
			Scope:       scope,
			Locale:      locale,
			TemplateKey: templateKey,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var pathResolveCmd = &cobra.Command{
	Use:   "resolve <path>",
	Short: "Show the node behind a resource locator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolution, err := app.Strategy.Resolve(cmd.Context(), scope, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resolution)
	},
}

var pathHistoryCmd = &cobra.Command{
	Use:   "history <node-id>",
	Short: "List the archived resource locators of a node, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := app.Strategy.GetHistory(cmd.Context(), args[0], scope, locale)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), models.NewHistory(entries))
	},
}

var pathRestoreCmd = &cobra.Command{
	Use:   "restore <path>",
	Short: "Make an archived resource locator active again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := app.Strategy.Restore(cmd.Context(), args[0], scope, locale, author)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var pathDeleteCmd = &cobra.Command{
	Use:   "delete <path>",
	Short: "Remove an archived resource locator permanently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Strategy.Delete(cmd.Context(), args[0], scope, locale); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	pathGenerateCmd.Flags().StringVar(&parentPath, "parent-path", "", "path of the parent")
	pathGenerateCmd.Flags().StringVarP(&parentNode, "parent", "p", "", "parent node ID, takes precedence over --parent-path")
	pathGenerateCmd.Flags().StringVar(&templateKey, "template", "", "template key of the page")

	pathCmd.AddCommand(pathGenerateCmd, pathResolveCmd, pathHistoryCmd, pathRestoreCmd, pathDeleteCmd)
	rootCmd.AddCommand(pathCmd)
}
