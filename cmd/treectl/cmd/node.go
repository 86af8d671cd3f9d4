package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sulu/sulu-sub013/content"
	"github.com/sulu/sulu-sub013/models"
)

var (
	parentID string
	title    string
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Create and restructure content nodes",
}

var nodeCreateCmd = &cobra.Command{
	Use:   "create <part>...",
	Short: "Create a node with a path generated from the given parts",
	Long: `Create a node as the last child of --parent, or as a top-level node.

Examples:
  treectl node create News
  treectl node create Hello World --parent 6f1c...`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := app.Nodes.Create(cmd.Context(), content.CreateInput{
			ParentID: optionalArg([]string{parentID}, 0),
			Parts:    args,
			Scope:    scope,
			Locale:   locale,
			AuthorID: author,
			Title:    title,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), models.NewNode(node, locale))
	},
}

var nodeListCmd = &cobra.Command{
	Use:   "ls [node-id]",
	Short: "List the children of a node, or the top-level nodes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes, err := app.Nodes.Children(cmd.Context(), optionalArg(args, 0), scope)
		if err != nil {
			return err
		}
		for _, node := range nodes {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", node.Position, node.ID, node.Path)
		}
		return nil
	},
}

var nodeTreeCmd = &cobra.Command{
	Use:   "tree <node-id>",
	Short: "Print a node with all of its descendants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes, err := app.Nodes.Subtree(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), models.BuildTree(nodes, locale))
	},
}

var nodeMoveCmd = &cobra.Command{
	Use:   "move <node-id> [destination-id]",
	Short: "Move a node with its subtree; omit the destination for the top level",
	Long: `Move a node below a new parent. The paths of the node and all of its
descendants are rewritten and the previous paths are archived.

Examples:
  treectl node move 6f1c... 0a9e...     # below another node
  treectl node move 6f1c...             # to the top level`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := app.Nodes.Move(cmd.Context(), args[0], optionalArg(args, 1), scope, locale, author)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), models.NewNode(node, locale))
	},
}

var nodeCopyCmd = &cobra.Command{
	Use:   "copy <node-id> [destination-id]",
	Short: "Copy a node with its subtree; omit the destination for the top level",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := app.Nodes.Copy(cmd.Context(), args[0], optionalArg(args, 1), scope, locale, author)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), models.NewNode(node, locale))
	},
}

var nodeOrderBeforeCmd = &cobra.Command{
	Use:   "order-before <node-id> <sibling-id>",
	Short: "Place a node directly in front of a sibling",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := app.Nodes.OrderBefore(cmd.Context(), args[0], args[1], scope, locale, author)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), models.NewNode(node, locale))
	},
}

var nodeOrderAtCmd = &cobra.Command{
	Use:   "order-at <node-id> <position>",
	Short: "Place a node at a 1-based position among its siblings",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		position, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid position %q: %w", args[1], err)
		}
		node, err := app.Nodes.OrderAt(cmd.Context(), args[0], position, scope, locale, author)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), models.NewNode(node, locale))
	},
}

var nodeRenameCmd = &cobra.Command{
	Use:   "rename <node-id> <part>...",
	Short: "Regenerate the path segment of a node from new parts",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := app.Nodes.Rename(cmd.Context(), args[0], args[1:], scope, locale, author)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), models.NewNode(node, locale))
	},
}

var nodeRemoveCmd = &cobra.Command{
	Use:   "rm <node-id>",
	Short: "Delete a node, its descendants and their archived paths",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Nodes.Remove(cmd.Context(), args[0], scope); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
		return nil
	},
}

func init() {
	nodeCreateCmd.Flags().StringVarP(&parentID, "parent", "p", "", "parent node ID")
	nodeCreateCmd.Flags().StringVarP(&title, "title", "t", "", "title, defaults to the parts")

	nodeCmd.AddCommand(nodeCreateCmd, nodeListCmd, nodeTreeCmd, nodeMoveCmd, nodeCopyCmd,
		nodeOrderBeforeCmd, nodeOrderAtCmd, nodeRenameCmd, nodeRemoveCmd)
	rootCmd.AddCommand(nodeCmd)
}
