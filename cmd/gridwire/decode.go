package main

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gridwire-dev/gridwire/pkg/urlstate"
)

func decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <query-string>",
		Short: "Decode a grid URL query string into its table state",
		Long: `Decode a bookmarked query string and print the table state it encodes:
sort descriptor, active filters, pagination and per-parameter selection.

Example:
  gridwire decode "sort=model:desc&f_manufacturer=for&page=2&vehicles=Ford:Mustang"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimPrefix(args[0], "?")
			values, err := url.ParseQuery(query)
			if err != nil {
				return fmt.Errorf("parse query: %w", err)
			}
			params := make(map[string]string, len(values))
			for key := range values {
				params[key] = values.Get(key)
			}

			s := urlstate.DecodeSort(params[urlstate.ParamSort])
			if s.IsZero() {
				fmt.Println("Sort:       none")
			} else {
				fmt.Printf("Sort:       %s (%s)\n", s.Field, s.Order)
			}

			page := urlstate.DecodePage(params[urlstate.ParamPage], params[urlstate.ParamPageSize], 25)
			fmt.Printf("Page:       %d (size %d, offset %d)\n", page.Number, page.Size, page.Offset())

			filters := urlstate.DecodeFilters(params)
			if len(filters) == 0 {
				fmt.Println("Filters:    none")
			} else {
				columns := make([]string, 0, len(filters))
				for column := range filters {
					columns = append(columns, column)
				}
				sort.Strings(columns)
				fmt.Println("Filters:")
				for _, column := range columns {
					fmt.Printf("  %s contains %q\n", column, filters[column])
				}
			}

			// Any parameter that is not a reserved name or a reserved prefix
			// may carry a selection; decode whatever parses.
			for key, value := range params {
				if key == urlstate.ParamSort || key == urlstate.ParamPage || key == urlstate.ParamPageSize {
					continue
				}
				if strings.HasPrefix(key, urlstate.FilterPrefix) || urlstate.IsHighlightParam(key) {
					continue
				}
				keys := urlstate.DecodeSelection(value)
				if len(keys) == 0 {
					continue
				}
				fmt.Printf("Selection (%s): %d item(s)\n", key, len(keys))
				for _, k := range keys {
					fmt.Printf("  %s\n", k)
				}
			}
			return nil
		},
	}
}
