package eval

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dontdude/tiobot/internal/config"
	"github.com/dontdude/tiobot/internal/domain"
)

func TestNewPipeline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /languages.json", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"python3": {}, "c-gcc": {}, "java-openjdk": {}}`)
	})
	mux.HandleFunc("POST /run", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sessionToken+"Hello\n"+sessionToken)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	t.Setenv("TIO_RUN_URL", srv.URL+"/run")
	t.Setenv("TIO_LANGUAGES_URL", srv.URL+"/languages.json")
	cfg := config.Load()
	tables, err := config.LoadTables("")
	require.NoError(t, err)

	p := NewPipeline(cfg, tables)
	require.Nil(t, p.Catalog.Load())
	require.NoError(t, p.Refresher.Refresh(context.Background()))
	assert.Equal(t, 3, p.Catalog.Load().Len())

	resp := p.Dispatcher.Dispatch(context.Background(), domain.Invocation{Language: "java", Code: "--wrapped System.out.println(\"Hello\");"})
	require.NotNil(t, resp.Embed)
	assert.Equal(t, "Eval results (java-openjdk)", resp.Embed.Title)
	assert.Equal(t, "```\nHello\n```", resp.Embed.Description)
}
