package commands

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newAPIMock は2ページ分の一覧・検索・詳細を返すDisney APIのモックを起動し、環境変数を設定する。
func newAPIMock(t *testing.T) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/characters", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "2":
			io.WriteString(w, `{"info":{"totalPages":2},"data":[{"_id":2,"name":"Donald Duck"}]}`)
		default:
			io.WriteString(w, `{"info":{"totalPages":2},"data":[{"_id":1,"name":"Mickey Mouse"}]}`)
		}
	})
	mux.HandleFunc("/character", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("name") == "Goofy" {
			io.WriteString(w, `{"info":{"count":1},"data":{"_id":3,"name":"Goofy"}}`)
			return
		}
		io.WriteString(w, `{"info":{"count":0},"data":[]}`)
	})
	mux.HandleFunc("/character/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/1") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"info":{},"data":{"_id":1,"name":"Mickey Mouse","films":["Fantasia"],"tvShows":[]}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Setenv("DISNEY_API_BASE_URL", srv.URL)
	t.Setenv("ALLOW_PRIVATE_API", "true")
	t.Setenv("PAGE_SIZE", "")
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestListCmd(t *testing.T) {
	newAPIMock(t)

	out, err := execute(t, "", "list", "--page", "2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Donald Duck") || !strings.Contains(out, "ページ 2 / 2") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestListCmd_InvalidPage(t *testing.T) {
	newAPIMock(t)

	if _, err := execute(t, "", "list", "--page", "0"); err == nil {
		t.Error("expected error for page 0")
	}
}

func TestSearchCmd(t *testing.T) {
	newAPIMock(t)

	out, err := execute(t, "", "search", "Goofy")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "Goofy") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, err := execute(t, "", "search", "Nobody"); err == nil {
		t.Error("expected not-found error")
	}
}

func TestShowCmd(t *testing.T) {
	newAPIMock(t)

	out, err := execute(t, "", "show", "1")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "映画:") || !strings.Contains(out, "Fantasia") {
		t.Errorf("films section missing:\n%s", out)
	}
	if strings.Contains(out, "テレビ番組") {
		t.Errorf("empty section should be omitted:\n%s", out)
	}

	if _, err := execute(t, "", "show", "999"); err == nil {
		t.Error("expected not-found error")
	}
}

func TestBrowseCmd(t *testing.T) {
	newAPIMock(t)

	out, err := execute(t, "n\nn\ns Nobody\ns Goofy\nr\nd 1\nq\n", "browse")
	if err != nil {
		t.Fatalf("browse: %v", err)
	}

	for _, want := range []string{
		"Mickey Mouse",
		"Donald Duck",
		"キャラクターが見つかりませんでした。",
		"「Goofy」の検索結果",
		"Fantasia",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q:\n%s", want, out)
		}
	}
}

func TestRootCmd_RejectsInvalidConfig(t *testing.T) {
	t.Setenv("PAGE_SIZE", "0")

	if _, err := execute(t, "", "list"); err == nil {
		t.Error("expected config error")
	}
}
