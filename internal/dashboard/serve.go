// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bartekus/gitexam/internal/gitrepo"
	"github.com/bartekus/gitexam/internal/transcript"
)

const indexHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>gitexam dashboard</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.6rem; text-align: left; }
.pass { color: #176b25; } .fail { color: #a11122; }
</style>
</head>
<body>
<h1>gitexam transcripts</h1>
<table id="t"><tr><th>commit</th><th>subject</th><th>decision</th><th>score</th><th>flags</th><th>provider</th></tr></table>
<script>
fetch('/api/export').then(r => r.json()).then(doc => {
  const t = document.getElementById('t');
  for (const e of doc.entries) {
    const row = t.insertRow();
    row.insertCell().textContent = e.commit.sha.slice(0, 10);
    row.insertCell().textContent = e.commit.subject;
    const d = row.insertCell();
    d.textContent = e.transcript.decision;
    d.className = e.transcript.decision;
    row.insertCell().textContent = e.transcript.score.total_score.toFixed(2);
    row.insertCell().textContent = (e.transcript.score.hallucination_flags || []).length;
    row.insertCell().textContent = e.transcript.provider.provider;
  }
});
</script>
</body>
</html>
`

// NewRouter builds the HTTP surface: a small HTML shell plus the JSON
// export it fetches. The export is rebuilt per request so newly stored
// transcripts show up on refresh.
func NewRouter(repo *gitrepo.Repo, store transcript.Store, opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexHTML))
	})
	router.GET("/api/export", func(c *gin.Context) {
		export, err := Build(c.Request.Context(), repo, store, opts)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, export)
	})
	return router
}

// Serve blocks serving the dashboard until the context is canceled or the
// listener fails.
func Serve(ctx context.Context, addr string, repo *gitrepo.Repo, store transcript.Store, opts Options) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: NewRouter(repo, store, opts),
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		_ = srv.Close()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
