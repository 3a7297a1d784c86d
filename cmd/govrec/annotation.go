package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boardworks/govrec/internal/types"
)

var annotationCmd = &cobra.Command{
	Use:     "annotation",
	Aliases: []string{"note"},
	Short:   "Annotate motions, minutes and other governance documents",
}

// parseTarget splits "type:id" into a target reference.
func parseTarget(s string) (types.TargetType, string, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || kind == "" || id == "" {
		return "", "", fmt.Errorf("invalid target %q (want type:id, e.g. motion:abc123)", s)
	}
	return types.TargetType(strings.ToLower(kind)), id, nil
}

var annotationAddCmd = &cobra.Command{
	Use:   "add <type:id> <body>",
	Short: "Add an unpublished annotation to a target",
	Long: `Add an annotation to a target. Targets are written as type:id where type is
one of motion, minutes, bylaw, policy, page or file.

Example:
  govrec annotation add motion:3f2c... "Counsel reviewed this wording"`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		targetType, targetID, err := parseTarget(args[0])
		if err != nil {
			fail(err)
		}
		anchor, _ := cmd.Flags().GetString("anchor")
		motionID, _ := cmd.Flags().GetString("motion")

		a, err := svc.CreateAnnotation(cmd.Context(), &types.Annotation{
			TargetType: targetType,
			TargetID:   targetID,
			MotionID:   motionID,
			Anchor:     anchor,
			Body:       args[1],
		}, currentActor())
		if err != nil {
			fail(err)
		}
		emit(a, func() {
			done("Added annotation %s", a.ID)
		})
	},
}

func annotationFilterFromFlags(cmd *cobra.Command) (types.AnnotationFilter, error) {
	var filter types.AnnotationFilter
	if target, _ := cmd.Flags().GetString("target"); target != "" {
		t, id, err := parseTarget(target)
		if err != nil {
			return filter, err
		}
		filter.TargetType, filter.TargetID = t, id
	}
	filter.MotionID, _ = cmd.Flags().GetString("motion")
	filter.MinutesID, _ = cmd.Flags().GetString("minutes")
	filter.IncludeUnpublished, _ = cmd.Flags().GetBool("all")
	return filter, nil
}

var annotationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List annotations, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		filter, err := annotationFilterFromFlags(cmd)
		if err != nil {
			fail(err)
		}
		filter.Limit, _ = cmd.Flags().GetInt("limit")

		items, err := svc.ListAnnotations(cmd.Context(), filter)
		if err != nil {
			fail(err)
		}
		emit(items, func() {
			if len(items) == 0 {
				fmt.Printf("%s\n", yellow("No annotations found"))
				return
			}
			for _, a := range items {
				printAnnotation(a)
			}
		})
	},
}

var annotationCountsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Count published and unpublished annotations",
	Run: func(cmd *cobra.Command, args []string) {
		filter, err := annotationFilterFromFlags(cmd)
		if err != nil {
			fail(err)
		}
		counts, err := svc.GetAnnotationCounts(cmd.Context(), filter)
		if err != nil {
			fail(err)
		}
		emit(counts, func() {
			fmt.Printf("%d annotations (%s published, %s unpublished)\n",
				counts.Total, green(counts.Published), yellow(counts.Unpublished))
		})
	},
}

var annotationShowCmd = &cobra.Command{
	Use:   "show <annotation-id>",
	Short: "Show an annotation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := svc.GetAnnotation(cmd.Context(), args[0])
		if err != nil {
			fail(err)
		}
		emit(a, func() { printAnnotation(a) })
	},
}

var annotationEditCmd = &cobra.Command{
	Use:   "edit <annotation-id>",
	Short: "Edit an annotation's body or anchor",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var update types.AnnotationUpdate
		if cmd.Flags().Changed("body") {
			v, _ := cmd.Flags().GetString("body")
			update.Body = &v
		}
		if cmd.Flags().Changed("anchor") {
			v, _ := cmd.Flags().GetString("anchor")
			update.Anchor = &v
		}
		a, err := svc.UpdateAnnotation(cmd.Context(), args[0], update, currentActor())
		if err != nil {
			fail(err)
		}
		emit(a, func() {
			done("Updated annotation %s", a.ID)
		})
	},
}

var annotationPublishCmd = &cobra.Command{
	Use:   "publish <annotation-id>",
	Short: "Make an annotation visible to all readers",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := svc.PublishAnnotation(cmd.Context(), args[0], currentActor())
		if err != nil {
			fail(err)
		}
		emit(a, func() { done("Published annotation %s", a.ID) })
	},
}

var annotationUnpublishCmd = &cobra.Command{
	Use:   "unpublish <annotation-id>",
	Short: "Hide an annotation from general readers",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := svc.UnpublishAnnotation(cmd.Context(), args[0], currentActor())
		if err != nil {
			fail(err)
		}
		emit(a, func() { done("Unpublished annotation %s", a.ID) })
	},
}

var annotationDeleteCmd = &cobra.Command{
	Use:   "delete <annotation-id>",
	Short: "Delete an annotation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := svc.DeleteAnnotation(cmd.Context(), args[0], currentActor()); err != nil {
			fail(err)
		}
		done("Deleted annotation %s", args[0])
	},
}

func init() {
	annotationAddCmd.Flags().String("anchor", "", "Position within the target document")
	annotationAddCmd.Flags().String("motion", "", "Related motion ID")

	for _, c := range []*cobra.Command{annotationListCmd, annotationCountsCmd} {
		c.Flags().String("target", "", "Filter by target (type:id)")
		c.Flags().String("motion", "", "Filter by motion ID")
		c.Flags().String("minutes", "", "Filter by minutes ID")
		c.Flags().Bool("all", false, "Include unpublished annotations")
	}
	annotationListCmd.Flags().IntP("limit", "n", 0, "Maximum annotations to show")

	annotationEditCmd.Flags().String("body", "", "Annotation text")
	annotationEditCmd.Flags().String("anchor", "", "Position within the target document")

	annotationCmd.AddCommand(
		annotationAddCmd,
		annotationListCmd,
		annotationCountsCmd,
		annotationShowCmd,
		annotationEditCmd,
		annotationPublishCmd,
		annotationUnpublishCmd,
		annotationDeleteCmd,
	)
	rootCmd.AddCommand(annotationCmd)
}
