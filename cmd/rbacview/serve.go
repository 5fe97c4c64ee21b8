package main

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"rbacview/internal/backend"
	"rbacview/internal/cluster"
	"rbacview/internal/config"
	"rbacview/internal/notify"
	"rbacview/internal/resource"
	"rbacview/internal/restclient"
	"rbacview/internal/server"
	"rbacview/internal/store"
)

const tableConfigBucket = "table_configs"

func newServeCmd(a *app) *cobra.Command {
	var (
		listen   string
		open     bool
		pageSize int
		grace    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}
			if cmd.Flags().Changed("open") {
				cfg.Open = open
			}
			if cmd.Flags().Changed("page-size") {
				cfg.PageSize = pageSize
			}
			if cmd.Flags().Changed("loading-grace") {
				cfg.LoadingGrace = grace
			}

			st, err := store.Open(cfg.StatePath)
			if err != nil {
				return err
			}
			defer st.Close()

			session := store.NewSession(st)
			if a.token != "" {
				if err := session.SetToken(a.token); err != nil {
					return err
				}
			}

			hub := notify.NewHub(50)
			factory := resource.NewFactory(restclient.New(cfg.BackendURL, session), resource.NewCache(cfg.CacheTTL), hub)
			launch := randomToken(24)
			srv, err := server.New(cfg, factory, session, st.Bucket(tableConfigBucket), hub, launch)
			if err != nil {
				return err
			}

			url := fmt.Sprintf("http://%s/?token=%s", cfg.Listen, launch)
			log.WithFields(log.Fields{"listen": cfg.Listen, "backend": cfg.BackendURL}).Info("rbacview dashboard listening")
			log.Infof("open: %s", url)
			if cfg.Open {
				_ = openBrowser(url)
			}
			return listenAndServe(cmd.Context(), cfg.Listen, srv.Router())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:10443", "listen address")
	cmd.Flags().BoolVar(&open, "open", true, "open browser")
	cmd.Flags().IntVar(&pageSize, "page-size", 10, "default rows per page")
	cmd.Flags().DurationVar(&grace, "loading-grace", 300*time.Millisecond, "wait before rendering the loading placeholder")
	return cmd
}

func newBackendCmd() *cobra.Command {
	var (
		listen     string
		token      string
		kubeconfig string
		statePath  string
	)
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Run the REST backend against the current kubeconfig",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadBackend()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("listen") {
				cfg.Listen = listen
			}
			if flags.Changed("backend-token") {
				cfg.Token = token
			}
			if flags.Changed("kubeconfig") {
				cfg.Kubeconfig = kubeconfig
			}
			if flags.Changed("backend-state") {
				cfg.StatePath = statePath
			}
			if !flags.Changed("log-level") {
				config.ConfigureLogging(cfg.LogLevel)
			}

			if cfg.Token == "" {
				cfg.Token = randomToken(24)
				log.WithField("token", cfg.Token).Warn("no backend token configured, generated one")
			}

			mgr, err := cluster.NewManager(cfg.Kubeconfig)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.StatePath)
			if err != nil {
				return err
			}
			defer st.Close()

			log.WithField("listen", cfg.Listen).Info("rbacview backend listening")
			return listenAndServe(cmd.Context(), cfg.Listen, backend.New(mgr, cfg.Token, st).Router())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&token, "backend-token", "", "bearer token clients must present")
	cmd.Flags().StringVar(&kubeconfig, "kubeconfig", "", "kubeconfig path")
	cmd.Flags().StringVar(&statePath, "backend-state", "", "path of the backend state file")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login TOKEN",
		Short: "Store the bearer token used by the dashboard and the CLI",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := a.token
			if len(args) == 1 {
				token = args[0]
			}
			if token == "" {
				return fmt.Errorf("a token is required")
			}
			st, err := store.Open(a.cfg.StatePath)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := store.NewSession(st).SetToken(token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in")
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(a.cfg.StatePath)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := store.NewSession(st).Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
