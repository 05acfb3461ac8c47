package config

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMsg(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	for name, tc := range map[string]struct {
		msg     string
		want    string
		wantErr string
	}{
		"raw text": {
			msg:  "You build gRPC services.",
			want: "You build gRPC services.",
		},
		"text file keeps dashes": {
			msg:  "file://" + write("plain.txt", "---\nnot frontmatter\n---\n"),
			want: "---\nnot frontmatter\n---\n",
		},
		"markdown strips frontmatter": {
			msg:  "file://" + write("agent.md", "---\nmodel: gpt-5-mini\n---\n\nYou are concise.\n"),
			want: "You are concise.\n",
		},
		"markdown without frontmatter": {
			msg:  "file://" + write("bare.md", "# Rules\nBe brief."),
			want: "# Rules\nBe brief.",
		},
		"broken frontmatter": {
			msg:     "file://" + write("broken.md", "---\nname: [broken\n---\ncontent"),
			wantErr: "invalid markdown frontmatter",
		},
		"unclosed frontmatter": {
			msg:     "file://" + write("open.md", "---\nname: x\ncontent"),
			wantErr: "missing closing delimiter",
		},
		"missing file": {
			msg:     "file://" + filepath.Join(dir, "nope.md"),
			wantErr: "read instructions file",
		},
	} {
		t.Run(name, func(t *testing.T) {
			msg, err := LoadMsg(tc.msg)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, msg)
		})
	}
}

func TestLoadMsgRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte("remote instructions"))
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("a", maxRemoteMsgBytes+1)))
		default:
			http.Error(w, "gone", http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	msg, err := LoadMsg(srv.URL + "/ok")
	require.NoError(t, err)
	require.Equal(t, "remote instructions", msg)

	_, err = LoadMsg(srv.URL + "/missing")
	require.ErrorContains(t, err, "HTTP 404: gone")

	_, err = LoadMsg(srv.URL + "/big")
	require.ErrorContains(t, err, "response too large")
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "agents", "a.md"), expandHome("~/agents/a.md"))
	require.Equal(t, "/abs/a.md", expandHome("/abs/a.md"))
	require.Equal(t, "rel/~/a.md", expandHome("rel/~/a.md"))
}
