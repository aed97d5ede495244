package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/bibhub/internal/author"
	"github.com/matsen/bibhub/internal/reference"
	"github.com/matsen/bibhub/internal/storage"
)

var (
	searchLimit    int
	searchAuthors  []string
	searchTitle    string
	searchYearFrom int
	searchYearTo   int
	searchType     string
)

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", DefaultSearchLimit, "Maximum results to return (0 = no limit)")
	searchCmd.Flags().StringArrayVarP(&searchAuthors, "author", "a", nil, "Filter by contributor (repeatable, AND logic)")
	searchCmd.Flags().StringVar(&searchTitle, "title", "", "Search title only")
	searchCmd.Flags().IntVar(&searchYearFrom, "year-from", 0, "Minimum issued year")
	searchCmd.Flags().IntVar(&searchYearTo, "year-to", 0, "Maximum issued year")
	searchCmd.Flags().StringVar(&searchType, "type", "", "Filter by canonical type (e.g. article-journal)")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search library entries",
	Long: `Search library entries by keyword and filters.

The keyword searches title, abstract, contributors, container title and
keywords. Author filters match family names exactly (with or without
particles such as "van") and given names by prefix.

Examples:
  bibhub search "phylogenetics"
  bibhub search -a "Timothy Yu" -a Matsen
  bibhub search --title influenza --year-from 2020
  bibhub search --type book`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	filters := storage.SearchFilters{
		Authors:  searchAuthors,
		Title:    searchTitle,
		YearFrom: searchYearFrom,
		YearTo:   searchYearTo,
		Type:     searchType,
	}
	if len(args) > 0 {
		filters.Keyword = args[0]
	}
	if filters.Keyword == "" && filters.Title == "" && len(filters.Authors) == 0 &&
		filters.YearFrom == 0 && filters.YearTo == 0 && filters.Type == "" {
		exitWithError(ExitError, "a query or at least one filter is required")
	}

	root := mustFindLibrary()
	db := mustOpenDatabase(root)
	defer db.Close()

	var entries []reference.Entry
	var err error
	if keywordOnly(filters) {
		entries, err = db.Search(filters.Keyword, searchLimit)
	} else {
		// FTS author matching is a prefix match on any name part; fetch
		// everything and refine with exact name matching before limiting.
		dbLimit := searchLimit
		if len(searchAuthors) > 0 {
			dbLimit = 0
		}
		entries, err = db.SearchWithFilters(filters, dbLimit)
	}
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}
	entries = refineByAuthor(entries, searchAuthors, searchLimit)

	if humanOutput {
		if len(entries) == 0 {
			fmt.Println("No entries found")
		} else {
			fmt.Printf("Found %d entries:\n\n", len(entries))
			for i, e := range entries {
				printEntrySummary(cmd.OutOrStdout(), i+1, e)
			}
		}
	} else {
		outputJSON(entries)
	}
	return nil
}

// keywordOnly reports whether f is a plain keyword search.
func keywordOnly(f storage.SearchFilters) bool {
	return f.Keyword != "" && f.Title == "" && len(f.Authors) == 0 &&
		f.YearFrom == 0 && f.YearTo == 0 && f.Type == ""
}

// refineByAuthor keeps entries whose contributors match every author query,
// up to limit (0 = no limit). The result is never nil.
func refineByAuthor(entries []reference.Entry, authors []string, limit int) []reference.Entry {
	queries := make([]author.Query, 0, len(authors))
	for _, a := range authors {
		if q := author.ParseQuery(a); q.Family != "" {
			queries = append(queries, q)
		}
	}

	out := []reference.Entry{}
	for _, e := range entries {
		if limit > 0 && len(out) >= limit {
			break
		}
		if author.AllMatch(queries, author.Contributors(e)) {
			out = append(out, e)
		}
	}
	return out
}
