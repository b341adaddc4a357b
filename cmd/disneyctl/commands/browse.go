package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hitoshi/disneydex/internal/browse"
	"github.com/hitoshi/disneydex/internal/model"
)

const browseHelp = "n: 次のページ  p: 前のページ  s NAME: 検索  r: すべて表示  d ID: 詳細  q: 終了"

// browse: interactive list view driven by a ListController.
func browseCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Interactive list view (n/p/s/r/d/q)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := browse.NewListController(e.source, e.logger, browse.ListConfig{PageSize: e.cfg.PageSize})
			defer list.Close()
			detail := browse.NewDetailController(e.source, e.logger, nil)
			defer detail.Close()

			return runBrowse(cmd.Context(), e, list, detail, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// runBrowse は入力が終わるか q が入力されるまで1行ずつ操作を実行する。
func runBrowse(ctx context.Context, e *env, list *browse.ListController, detail *browse.DetailController, in io.Reader, out io.Writer) error {
	withTimeout := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(ctx, e.timeout)
	}

	show := func() {
		printListView(out, list.Snapshot())
		list.DismissMessages()
	}

	c, cancel := withTimeout()
	_ = list.EnsureLoaded(c)
	cancel()
	show()
	fmt.Fprintln(out, browseHelp)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		verb, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		c, cancel := withTimeout()
		switch verb {
		case "":
			cancel()
			continue
		case "q":
			cancel()
			return nil
		case "n":
			_, _ = list.NextPage(c)
		case "p":
			_, _ = list.PreviousPage(c)
		case "s":
			_, _ = list.Search(c, arg)
		case "r":
			_, _ = list.Reset(c)
		case "d":
			d, err := detail.Load(c, arg)
			cancel()
			switch {
			case err == nil:
				printDetail(out, d)
			case model.IsNotFound(err):
				fmt.Fprintln(out, browse.MessageDetailNotFound)
			case errors.Is(err, browse.ErrSuperseded):
			default:
				fmt.Fprintln(out, browse.MessageDetailFailed)
			}
			continue
		default:
			cancel()
			fmt.Fprintln(out, browseHelp)
			continue
		}
		cancel()
		show()
	}
}
