package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goliatone/go-formflow/internal/server"
	"github.com/goliatone/go-formflow/pkg/builder"
	"github.com/goliatone/go-formflow/pkg/design"
	"github.com/goliatone/go-formflow/pkg/importer"
	"github.com/goliatone/go-formflow/pkg/notify"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/share"
	"github.com/goliatone/go-formflow/pkg/store"
)

var rootCmd = &cobra.Command{
	Use:   "formflow",
	Short: "Formflow CLI",
	Long: `Formflow builds and serves conversational forms.
Forms are made of blocks (questions) plus logic rules that show, hide,
require or unrequire blocks based on earlier answers. Drafts autosave,
publishing issues a signed share link, and submissions land in SQLite.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("FORMFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("db", "formflow.db", "SQLite database path")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(formCmd())
	rootCmd.AddCommand(submissionsCmd())
	rootCmd.AddCommand(themesCmd())
	rootCmd.AddCommand(fillCmd())
	rootCmd.AddCommand(serveCmd())
}

func withStore(fn func(ctx context.Context, st *store.Store) error) error {
	st, err := store.Open(viper.GetString("db"))
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(context.Background(), st)
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func formCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "form", Short: "Manage forms"}
	cmd.AddCommand(formListCmd())
	cmd.AddCommand(formCreateCmd())
	cmd.AddCommand(formShowCmd())
	cmd.AddCommand(formDeleteCmd())
	cmd.AddCommand(formPublishCmd())
	cmd.AddCommand(formImportCmd())
	cmd.AddCommand(formThemeCmd())
	return cmd
}

func formListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List forms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.Store) error {
				items, err := st.ListForms(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Blocks", "Published", "Updated"})
				for _, f := range items {
					tw.AppendRow(table.Row{f.ID, f.Title, len(f.Blocks), f.Published, f.UpdatedAt.Format(time.RFC3339)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func formCreateCmd() *cobra.Command {
	var title, themeName string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft form",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.Store) error {
				form := builder.NewForm()
				if title != "" {
					form.Title = schema.SanitizeText(title)
				}
				if themeName != "" {
					if err := design.NewGallery().Apply(&form, themeName, ""); err != nil {
						return err
					}
				}
				saved, err := st.SaveForm(ctx, form)
				if err != nil {
					return err
				}
				return printJSON(saved)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "form title")
	cmd.Flags().StringVar(&themeName, "theme", "", "gallery theme to apply")
	return cmd
}

func formShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <form-id>",
		Short: "Show a form definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.Store) error {
				form, err := st.LoadForm(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(form)
			})
		},
	}
}

func formDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <form-id>",
		Short: "Delete a form and its submissions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.Store) error {
				return st.DeleteForm(ctx, args[0])
			})
		},
	}
}

func formPublishCmd() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "publish <form-id>",
		Short: "Publish a form and print its share link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.Store) error {
				form, err := st.LoadForm(ctx, args[0])
				if err != nil {
					return err
				}
				form = schema.Sanitize(form)
				if err := schema.Validate(form); err != nil {
					return err
				}
				form.Published = true
				if _, err := st.SaveForm(ctx, form); err != nil {
					return err
				}
				cfg := shareConfig()
				token, err := cfg.Issue(form.ID, share.ScopeRespond)
				if err != nil {
					return err
				}
				fmt.Println(share.URL(baseURL, token))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080", "public base URL for share links")
	return cmd
}

func formImportCmd() *cobra.Command {
	var operationID string
	cmd := &cobra.Command{
		Use:   "import <openapi-file>",
		Short: "Create a form from an OpenAPI operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.Store) error {
				form, err := importer.FromFile(ctx, args[0], operationID)
				if err != nil {
					return err
				}
				saved, err := st.SaveForm(ctx, form)
				if err != nil {
					return err
				}
				return printJSON(saved)
			})
		},
	}
	cmd.Flags().StringVar(&operationID, "operation", "", "operationId to import")
	_ = cmd.MarkFlagRequired("operation")
	return cmd
}

func formThemeCmd() *cobra.Command {
	var variant string
	cmd := &cobra.Command{
		Use:   "theme <form-id> <theme>",
		Short: "Apply a gallery theme to a form",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.Store) error {
				form, err := st.LoadForm(ctx, args[0])
				if err != nil {
					return err
				}
				if err := design.NewGallery().Apply(&form, args[1], variant); err != nil {
					return err
				}
				saved, err := st.SaveForm(ctx, form)
				if err != nil {
					return err
				}
				return printJSON(saved.Design)
			})
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "theme variant")
	return cmd
}

func themesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "List gallery themes",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range design.NewGallery().Themes() {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func submissionsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "submissions", Short: "Inspect submissions"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list <form-id>",
		Short: "List a form's submissions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.Store) error {
				items, err := st.ListSubmissions(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Submitted", "Answers"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.SubmittedAt.Format(time.RFC3339), len(s.Data)})
				}
				tw.Render()
				return nil
			})
		},
	})
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath, baseURL string
	var webhooks []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(viper.GetString("db"))
			if err != nil {
				return err
			}
			defer st.Close()

			cfg := server.Config{
				Store:    st,
				Gallery:  design.NewGallery(),
				Share:    shareConfig(),
				BasePath: basePath,
				BaseURL:  baseURL,
			}
			if len(webhooks) > 0 {
				cfg.Notify = webhookDispatcher(webhooks)
			}
			handler, err := server.New(cfg)
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Formflow API on http://%s%s\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080", "public base URL for share links")
	cmd.Flags().StringSliceVar(&webhooks, "webhook", nil, "webhook URL notified on submissions (repeatable)")
	return cmd
}

func shareConfig() share.Config {
	return share.Config{Secret: os.Getenv("FORMFLOW_SHARE_SECRET")}
}

func webhookDispatcher(urls []string) *notify.Dispatcher {
	sinks := make([]notify.Notifier, 0, len(urls))
	for _, u := range urls {
		sinks = append(sinks, &notify.Webhook{URL: u})
	}
	return notify.NewDispatcher(nil, sinks...)
}
