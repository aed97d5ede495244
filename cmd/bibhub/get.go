package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/bibhub/internal/dates"
	"github.com/matsen/bibhub/internal/names"
	"github.com/matsen/bibhub/internal/reference"
)

var getByDOI bool

func init() {
	getCmd.Flags().BoolVar(&getByDOI, "doi", false, "Look the entry up by DOI instead of id")
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a single library entry",
	Long: `Get a single library entry by its id, or by DOI with --doi.

Examples:
  bibhub get smith2024
  bibhub get --doi https://doi.org/10.1234/example`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	root := mustFindLibrary()
	db := mustOpenDatabase(root)
	defer db.Close()

	key := args[0]
	var (
		entry *reference.Entry
		err   error
	)
	if getByDOI {
		entry, err = db.GetByDOI(key)
	} else {
		entry, err = db.GetByID(key)
	}
	if err != nil {
		exitWithError(ExitError, "getting entry: %v", err)
	}
	if entry == nil {
		exitWithError(ExitError, "entry not found: %s", key)
	}

	if humanOutput {
		printEntryDetail(os.Stdout, *entry)
	} else {
		outputJSON(entry)
	}
	return nil
}

// printEntryDetail prints every populated headline field of an entry.
func printEntryDetail(w io.Writer, e reference.Entry) {
	fmt.Fprintf(w, "%s (%s)\n", e.ID, e.Type)
	fmt.Fprintln(w, strings.Repeat("═", 70))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Title:    %s\n", wrapText(e.Get(reference.FieldTitle), 60, "          "))
	fmt.Fprintln(w)

	for _, group := range []struct {
		label   string
		persons []reference.Person
	}{
		{"Authors: ", e.Author},
		{"Editors: ", e.Editor},
	} {
		if len(group.persons) == 0 {
			continue
		}
		list := names.SerializeList(group.persons, names.StyleNatural, ", ")
		fmt.Fprintf(w, "%s %s\n", group.label, wrapText(list, 60, "          "))
	}

	if venue := e.Get(reference.FieldContainerTitle); venue != "" {
		fmt.Fprintf(w, "Venue:    %s\n", venue)
	}
	if date := dates.Serialize(e.Issued); date != "" {
		fmt.Fprintf(w, "Date:     %s\n", date)
	}
	if doi := e.Get(reference.FieldDOI); doi != "" {
		fmt.Fprintf(w, "DOI:      %s\n", doi)
	}
	if url := e.Get(reference.FieldURL); url != "" {
		fmt.Fprintf(w, "URL:      %s\n", url)
	}

	if abstract := e.Get(reference.FieldAbstract); abstract != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Abstract:")
		fmt.Fprintf(w, "  %s\n", wrapText(abstract, 68, "  "))
	}
}

// wrapText wraps text at width runes, indenting continuation lines.
func wrapText(text string, width int, indent string) string {
	if len([]rune(text)) <= width {
		return text
	}

	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		switch {
		case current == "":
			current = word
		case len([]rune(current))+1+len([]rune(word)) <= width:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return strings.Join(lines, "\n"+indent)
}
