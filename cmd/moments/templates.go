package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/moments/moments-agent/internal/media"
)

func newTemplatesCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List the built-in composition templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cat media.Category
			if category != "" {
				parsed, err := media.ParseCategory(category)
				if err != nil {
					return err
				}
				cat = parsed
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTemplates(media.Templates(cat)))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list FEATURE, NEW or MOST_VIEWED templates")
	return cmd
}

func renderTemplates(templates []media.Template) string {
	rows := make([][]string, 0, len(templates))
	for _, t := range templates {
		rows = append(rows, []string{
			strconv.Itoa(t.ID),
			t.Title,
			string(t.Category),
			strconv.Itoa(t.SlotCount()),
			fmt.Sprintf("%.1fs", t.TotalSeconds()),
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Category", "Slots", "Length"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
	)
}
