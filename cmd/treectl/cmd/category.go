package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sulu/sulu-sub013/models"
)

var (
	categoryParent string
	categoryKey    string
	betweenFrom    []string
	betweenTo      []string
)

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Maintain the category nested set",
}

var categoryInsertCmd = &cobra.Command{
	Use:   "insert",
	Short: "Insert a category as the last child of --parent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		created, err := app.Categories.Insert(cmd.Context(), optionalArg([]string{categoryParent}, 0), optionalArg([]string{categoryKey}, 0))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), models.NewCategory(created))
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "ls",
	Short: "Print the category tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		categories, err := app.Categories.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, c := range categories {
			key := ""
			if c.Key != nil {
				key = *c.Key
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s [%d,%d] %s\n", strings.Repeat("  ", c.Depth), c.ID, c.Lft, c.Rgt, key)
		}
		return nil
	},
}

var categoryMoveCmd = &cobra.Command{
	Use:   "move <category-id> [parent-id]",
	Short: "Move a category with its subtree; omit the parent for the top level",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		moved, err := app.Categories.Move(cmd.Context(), args[0], optionalArg(args, 1))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), models.NewCategory(moved))
	},
}

var categoryRemoveCmd = &cobra.Command{
	Use:   "rm <category-id>",
	Short: "Delete a category with its descendants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Categories.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
		return nil
	},
}

var categoryDescendantsCmd = &cobra.Command{
	Use:   "descendants <category-id>",
	Short: "List the categories below a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		categories, err := app.Categories.DescendantsOf(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), models.NewCategories(categories))
	},
}

var categoryAncestorsCmd = &cobra.Command{
	Use:   "ancestors <category-id>",
	Short: "List the categories above a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		categories, err := app.Categories.AncestorsOf(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), models.NewCategories(categories))
	},
}

var categoryBetweenCmd = &cobra.Command{
	Use:   "between --from <id>[,<id>] --to <id>[,<id>]",
	Short: "List the categories strictly between the from and to categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		categories, err := app.Categories.FindBetween(cmd.Context(), betweenFrom, betweenTo)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), models.NewCategories(categories))
	},
}

var categoryVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the nested set invariants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Categories.Verify(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

func init() {
	categoryInsertCmd.Flags().StringVarP(&categoryParent, "parent", "p", "", "parent category ID")
	categoryInsertCmd.Flags().StringVarP(&categoryKey, "key", "k", "", "unique category key")
	categoryBetweenCmd.Flags().StringSliceVar(&betweenFrom, "from", nil, "upper bound categories")
	categoryBetweenCmd.Flags().StringSliceVar(&betweenTo, "to", nil, "lower bound categories")
	_ = categoryBetweenCmd.MarkFlagRequired("from")
	_ = categoryBetweenCmd.MarkFlagRequired("to")

	categoryCmd.AddCommand(categoryInsertCmd, categoryListCmd, categoryMoveCmd, categoryRemoveCmd,
		categoryDescendantsCmd, categoryAncestorsCmd, categoryBetweenCmd, categoryVerifyCmd)
	rootCmd.AddCommand(categoryCmd)
}
