package cmd

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/sortedstartup/ztr/internal/errs"
	"github.com/sortedstartup/ztr/internal/recipe"
)

const (
	defaultServeAgent = "mvp-creator"
	shutdownTimeout   = 5 * time.Second
)

var pages = template.Must(template.New("pages").Parse(`
{{define "index"}}<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>ztr: {{.Agent}}</title></head>
<body>
<h1>{{.Agent}}</h1>
{{with .Description}}<p>{{.}}</p>{{end}}
<form method="post" action="/run">
<textarea name="user_input" rows="16" cols="80" placeholder="Describe what to build"></textarea>
<p><button type="submit">Run</button></p>
</form>
</body>
</html>{{end}}
{{define "result"}}<div class="result">
<h3>Run finished</h3>
<p>Output directory: {{.Dir}}</p>
<p>Tokens: {{.Tokens}}</p>
<pre>{{.Output}}</pre>
</div>{{end}}
{{define "error"}}<div class="error">{{.Message}}</div>{{end}}
`))

func newServeCmd(rt *runtime) *cobra.Command {
	addr := ":8080"
	serveCmd := &cobra.Command{
		Use:   "serve [agent]",
		Short: "Serve a web form that runs an agent",
		Long: "Serve a web form that runs an agent with the submitted text. " +
			"Agents with a starter workspace get the text as a requirements file in a fresh copy of the starter template. " +
			"Runs are handled one at a time.",
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return agentNames(&rt.cfg, toComplete), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			name := defaultServeAgent
			if len(args) == 1 {
				name = args[0]
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := rt.newAgentServer(ctx, cmd, name)
			if err != nil {
				return err
			}
			return srv.listen(ctx, addr)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", addr, flagDesc("addr"))
	return serveCmd
}

// agentServer runs one agent for web form submissions.
type agentServer struct {
	rt  *runtime
	cmd *cobra.Command
	def recipe.Definition
	// ctx outlives requests so a closed browser tab does not cancel a run.
	ctx context.Context

	mu sync.Mutex // one run at a time; runs share the workspace and container
}

func (rt *runtime) newAgentServer(ctx context.Context, cmd *cobra.Command, name string) (*agentServer, error) {
	def, err := recipe.Get(&rt.cfg, name)
	if err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &agentServer{rt: rt, cmd: cmd, def: def, ctx: ctx}, nil
}

func (s *agentServer) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetHTMLTemplate(pages)

	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index", gin.H{
			"Agent":       s.def.Name,
			"Description": s.def.Description,
		})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "agent": s.def.Name})
	})
	r.POST("/run", s.run)
	r.POST("/generate-mvp", s.run)
	return r
}

func (s *agentServer) run(c *gin.Context) {
	input := strings.TrimSpace(c.PostForm("user_input"))
	if input == "" {
		c.HTML(http.StatusBadRequest, "error", gin.H{"Message": "Please provide a valid input."})
		return
	}

	task, cleanup, err := s.task(input)
	if err != nil {
		slog.Error("could not write requirements file", "err", err)
		c.HTML(http.StatusInternalServerError, "error", gin.H{"Message": "Could not write the requirements file."})
		return
	}
	defer cleanup()

	s.mu.Lock()
	out, err := s.rt.startRun(s.ctx, s.cmd, s.def.Name, task, false)
	s.mu.Unlock()
	if err != nil {
		slog.Error("agent run failed", "agent", s.def.Name, "err", err)
		c.HTML(http.StatusInternalServerError, "error", gin.H{"Message": "The agent run failed: " + errs.Describe(err)})
		return
	}
	c.HTML(http.StatusOK, "result", gin.H{
		"Dir":    out.Dir,
		"Output": out.Output,
		"Tokens": out.Usage.TotalTokens,
	})
}

// task returns what the agent is run with. Starter workspaces take the input
// as a requirements file, which the run copies into the new workspace.
func (s *agentServer) task(input string) (string, func(), error) {
	if s.def.Workspace != recipe.WorkspaceStarter {
		return input, func() {}, nil
	}
	f, err := os.CreateTemp("", "requirements_*.md")
	if err != nil {
		return "", nil, err //nolint:wrapcheck
	}
	remove := func() { _ = os.Remove(f.Name()) }
	if _, err := f.WriteString(input + "\n"); err != nil {
		_ = f.Close()
		remove()
		return "", nil, err //nolint:wrapcheck
	}
	if err := f.Close(); err != nil {
		remove()
		return "", nil, err //nolint:wrapcheck
	}
	return f.Name(), remove, nil
}

func (s *agentServer) listen(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	slog.Info("serving agent", "agent", s.def.Name, "addr", addr)

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return errs.Wrapf(err, "Could not listen on %s.", addr)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errs.Wrap(err, "Could not stop the server.")
	}
	return nil
}
