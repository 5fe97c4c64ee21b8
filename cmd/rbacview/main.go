package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"rbacview/internal/config"
	"rbacview/internal/notify"
	"rbacview/internal/resource"
	"rbacview/internal/restclient"
	"rbacview/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries the dashboard config shared by every subcommand. Flags override
// the RBACVIEW_* environment.
type app struct {
	cfg *config.Config

	backendURL string
	statePath  string
	logLevel   string
	token      string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "rbacview",
		Short:        "Browse and edit Kubernetes RBAC through the rbacview REST backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.backendURL, "backend-url", config.DefaultBackendURL, "base URL of the REST backend")
	f.StringVar(&a.statePath, "state", "", "path of the local state file")
	f.StringVar(&a.logLevel, "log-level", "info", "log level")
	f.StringVar(&a.token, "token", "", "bearer token; defaults to the one stored by login")

	root.AddCommand(
		newServeCmd(a),
		newBackendCmd(),
		newLoginCmd(a),
		newLogoutCmd(a),
		newGetCmd(a),
		newDescribeCmd(a),
		newCreateCmd(a, "create", "Create a record from a YAML manifest"),
		newCreateCmd(a, "apply", "Replace an existing record from a YAML manifest"),
		newDeleteCmd(a),
		newCanICmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("backend-url") {
		cfg.BackendURL = a.backendURL
	}
	if flags.Changed("state") {
		cfg.StatePath = a.statePath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	config.ConfigureLogging(cfg.LogLevel)
	a.cfg = cfg
	return nil
}

// tokens resolves the bearer token once. The state file is closed right
// after so a running dashboard can keep using it.
func (a *app) tokens() (restclient.TokenSource, error) {
	if a.token != "" {
		return restclient.StaticToken(a.token), nil
	}
	st, err := store.Open(a.cfg.StatePath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	token, err := store.NewSession(st).Token()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, errors.New("not logged in: run `rbacview login` or pass --token")
	}
	return restclient.StaticToken(token), nil
}

// factory builds the hook factory used by the one-shot commands. Toasts go to
// the log.
func (a *app) factory() (*resource.Factory, error) {
	tokens, err := a.tokens()
	if err != nil {
		return nil, err
	}
	client := restclient.New(a.cfg.BackendURL, tokens)
	return resource.NewFactory(client, resource.NewCache(0), notify.LogNotifier{}), nil
}

func (a *app) hooks(kindArg string) (*resource.Hooks, error) {
	kind, err := resource.ParseKind(kindArg)
	if err != nil {
		return nil, err
	}
	f, err := a.factory()
	if err != nil {
		return nil, err
	}
	return f.For(kind)
}

// listenAndServe runs h until ctx is cancelled, then shuts down gracefully.
func listenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func randomToken(nbytes int) string {
	b := make([]byte, nbytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return nil
	}
	return cmd.Start()
}
