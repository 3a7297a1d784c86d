package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/boardworks/govrec/internal/types"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the audit log, newest first",
	Long: `Show who changed what. Filter by object or actor:

  govrec audit --object minutes --id <minutes-id>
  govrec audit --actor alice -n 20`,
	Run: func(cmd *cobra.Command, args []string) {
		objectType, _ := cmd.Flags().GetString("object")
		objectID, _ := cmd.Flags().GetString("id")
		actor, _ := cmd.Flags().GetString("by")
		limit, _ := cmd.Flags().GetInt("limit")

		entries, err := svc.ListAudit(cmd.Context(), types.AuditFilter{
			ObjectType: objectType,
			ObjectID:   objectID,
			ActorID:    actor,
			Limit:      limit,
		})
		if err != nil {
			fail(err)
		}
		emit(entries, func() {
			if len(entries) == 0 {
				fmt.Printf("%s\n", yellow("No audit entries found"))
				return
			}
			for _, e := range entries {
				printAudit(os.Stdout, e)
			}
		})
	},
}

func init() {
	auditCmd.Flags().String("object", "", "Object type (meeting, minutes, motion, annotation, review_flag)")
	auditCmd.Flags().String("id", "", "Object ID")
	auditCmd.Flags().String("by", "", "Actor ID")
	auditCmd.Flags().IntP("limit", "n", 50, "Maximum entries to show")
	rootCmd.AddCommand(auditCmd)
}
