package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hitoshi/disneydex/internal/browse"
	"github.com/hitoshi/disneydex/internal/model"
)

func printCharacters(w io.Writer, items []model.Character) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range items {
		fmt.Fprintf(tw, "%s\t%s\n", c.ID, c.Name)
	}
	tw.Flush()
}

func printDetail(w io.Writer, d *model.CharacterDetail) {
	fmt.Fprintf(w, "%s (%s)\n", d.Name, d.ID)
	if d.ImageURL != "" {
		fmt.Fprintf(w, "画像: %s\n", d.ImageURL)
	}
	printSection(w, "映画", d.Films)
	printSection(w, "テレビ番組", d.TVShows)
	printSection(w, "パークアトラクション", d.ParkAttractions)
	if !d.HasAppearances() {
		fmt.Fprintln(w, "出演作品の情報はありません。")
	}
}

// printSection は空のセクションを出力しない。
func printSection(w io.Writer, title string, entries []string) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, e := range entries {
		fmt.Fprintf(w, "  - %s\n", e)
	}
}

func printListView(w io.Writer, v browse.ListView) {
	if v.Searching() {
		fmt.Fprintf(w, "「%s」の検索結果\n", v.SearchText)
	}
	printCharacters(w, v.Items)
	if v.Notice != "" {
		fmt.Fprintln(w, v.Notice)
	}
	if v.ErrorMessage != "" {
		fmt.Fprintln(w, v.ErrorMessage)
	}
	fmt.Fprintf(w, "ページ %d / %d\n", v.CurrentPage, v.TotalPages)
}
