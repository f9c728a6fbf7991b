package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"readjourney/internal/bootstrap"
	identitydto "readjourney/internal/modules/identity/dto"
	readingdto "readjourney/internal/modules/reading/dto"
	"readjourney/internal/platform/config"
	apperrors "readjourney/internal/platform/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", apperrors.Message(err))
		os.Exit(1)
	}
}

type globalOptions struct {
	dataDir    string
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "readjourney",
		Short:         "Track books and reading sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", ".", "directory holding the local store, cache and diary")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (overrides READJOURNEY_CONFIG)")

	root.AddCommand(newRegisterCmd(opts))
	root.AddCommand(newLoginCmd(opts))
	root.AddCommand(newLogoutCmd(opts))
	root.AddCommand(newWhoAmICmd(opts))
	root.AddCommand(newWatchCmd(opts))
	root.AddCommand(newLibraryCmd(opts))
	root.AddCommand(newReadingCmd(opts))
	root.AddCommand(newDiaryCmd(opts))
	return root
}

// withApp runs fn against a freshly wired app and closes it afterwards.
func withApp(cmd *cobra.Command, opts *globalOptions, fn func(context.Context, *bootstrap.App) error) (err error) {
	cfg, err := config.Load(opts.dataDir, opts.configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(ctx, app)
}

func newRegisterCmd(opts *globalOptions) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register --name <name> --email <email> --password <password>",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.IdentityCLI.Register(ctx, name, email, password)
				if err != nil {
					return err
				}
				printIdentity(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&password, "password", "", "password (at least 7 characters)")
	return cmd
}

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login --email <email> --password <password>",
		Short: "Sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.IdentityCLI.Login(ctx, email, password)
				if err != nil {
					return err
				}
				printIdentity(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&password, "password", "", "password")
	return cmd
}

func newLogoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the cached identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.IdentityCLI.Logout(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "signed out")
				return nil
			})
		},
	}
}

func newWhoAmICmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the cached identity and ask the backend who it belongs to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				printIdentity(cmd.OutOrStdout(), app.IdentityCLI.Status(ctx))
				user, err := app.IdentityCLI.WhoAmI(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "backend: %s <%s> (%s)\n", user.DisplayName, user.Email, user.ID)
				return nil
			})
		},
	}
}

func newWatchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the identity provider and reconcile the cached identity until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				printIdentity(cmd.OutOrStdout(), app.IdentityCLI.Status(ctx))
				return app.IdentityCLI.Watch(ctx, func(out identitydto.IdentityOutput) {
					printIdentity(cmd.OutOrStdout(), out)
				})
			})
		},
	}
}

func newLibraryCmd(opts *globalOptions) *cobra.Command {
	library := &cobra.Command{Use: "library", Short: "Manage your books"}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List books in your library",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				books, err := app.LibraryCLI.List(ctx, status)
				if err != nil {
					return err
				}
				if len(books) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no books")
					return nil
				}
				for _, b := range books {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d pages\t%s\n", b.ID, b.Title, b.Author, b.TotalPages, b.Status)
				}
				return nil
			})
		},
	}
	list.Flags().StringVar(&status, "status", "", "filter: unread|in-progress|done")

	show := &cobra.Command{
		Use:   "show <book-id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				b, err := app.LibraryCLI.Show(ctx, args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "id: %s\ntitle: %s\nauthor: %s\npages: %d\nstatus: %s\nimage: %s\nsessions: %d\n",
					b.ID, b.Title, b.Author, b.TotalPages, b.Status, b.ImageURL, len(b.Progress))
				return nil
			})
		},
	}

	var title, author, imageURL, pdfPath string
	var pages int
	add := &cobra.Command{
		Use:   "add --title <title> --author <author> (--pages <n> | --pdf <file>)",
		Short: "Add a book",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				b, err := app.LibraryCLI.Add(ctx, title, author, pages, imageURL, pdfPath)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s), %d pages\n", b.Title, b.ID, b.TotalPages)
				return nil
			})
		},
	}
	add.Flags().StringVar(&title, "title", "", "title")
	add.Flags().StringVar(&author, "author", "", "author")
	add.Flags().IntVar(&pages, "pages", 0, "total pages (read from --pdf when omitted)")
	add.Flags().StringVar(&imageURL, "image", "", "cover image URL")
	add.Flags().StringVar(&pdfPath, "pdf", "", "PDF file to count pages from")

	remove := &cobra.Command{
		Use:   "remove <book-id>",
		Short: "Remove a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.LibraryCLI.Remove(ctx, args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
				return nil
			})
		},
	}

	var page, limit int
	var filterTitle, filterAuthor string
	recommended := &cobra.Command{
		Use:   "recommended",
		Short: "Browse recommended books",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.LibraryCLI.Recommended(ctx, page, limit, filterTitle, filterAuthor)
				if err != nil {
					return err
				}
				for _, b := range out.Books {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d pages\n", b.ID, b.Title, b.Author, b.TotalPages)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d per page)\n", out.Page, out.TotalPages, out.PerPage)
				return nil
			})
		},
	}
	recommended.Flags().IntVar(&page, "page", 1, "page number")
	recommended.Flags().IntVar(&limit, "limit", 10, "books per page")
	recommended.Flags().StringVar(&filterTitle, "title", "", "title filter")
	recommended.Flags().StringVar(&filterAuthor, "author", "", "author filter")

	adopt := &cobra.Command{
		Use:   "adopt <recommended-id>",
		Short: "Add a recommended book to your library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				b, err := app.LibraryCLI.Adopt(ctx, args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", b.Title, b.ID)
				return nil
			})
		},
	}

	library.AddCommand(list, show, add, remove, recommended, adopt)
	return library
}

func newReadingCmd(opts *globalOptions) *cobra.Command {
	reading := &cobra.Command{Use: "reading", Short: "Reading sessions and progress"}

	reading.AddCommand(&cobra.Command{
		Use:   "progress <book-id>",
		Short: "Show sessions and statistics for a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.ReadingCLI.Progress(ctx, args[0])
				if err != nil {
					return err
				}
				printProgress(cmd.OutOrStdout(), out)
				return nil
			})
		},
	})

	var startPage int
	start := &cobra.Command{
		Use:   "start <book-id> --page <n>",
		Short: "Start a reading session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				tracker := app.Tracker(args[0])
				defer tracker.Close()
				out, err := tracker.Start(ctx, startPage)
				if err != nil {
					return err
				}
				printProgress(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	start.Flags().IntVar(&startPage, "page", 0, "page you start on")

	var finishPage int
	finish := &cobra.Command{
		Use:   "finish <book-id> --page <n>",
		Short: "Finish the active reading session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				tracker := app.Tracker(args[0])
				defer tracker.Close()
				out, completed, err := tracker.Finish(ctx, finishPage)
				if err != nil {
					return err
				}
				printProgress(cmd.OutOrStdout(), out)
				if completed {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "book completed")
				}
				return nil
			})
		},
	}
	finish.Flags().IntVar(&finishPage, "page", 0, "page you stopped on")

	var bookID string
	remove := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a reading session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.ReadingCLI.Delete(ctx, args[0], bookID)
				if err != nil {
					return err
				}
				printProgress(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	remove.Flags().StringVar(&bookID, "book-id", "", "book id (derived from the session id when omitted)")

	reading.AddCommand(start, finish, remove)
	return reading
}

func newDiaryCmd(opts *globalOptions) *cobra.Command {
	diary := &cobra.Command{Use: "diary", Short: "Reading diary notes"}
	diary.AddCommand(&cobra.Command{
		Use:   "export <book-id>",
		Short: "Write the reading diary of a book as markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.ReadingCLI.ExportDiary(ctx, args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "diary written: %s\n", out.Path)
				return nil
			})
		},
	})
	return diary
}

func printIdentity(w io.Writer, out identitydto.IdentityOutput) {
	if out.User == nil {
		_, _ = fmt.Fprintf(w, "identity: %s\n", out.State)
		return
	}
	_, _ = fmt.Fprintf(w, "identity: %s as %s <%s> (token: %s, v%d)\n",
		out.State, out.User.DisplayName, out.User.Email, tokenLabel(out), out.Version)
}

func tokenLabel(out identitydto.IdentityOutput) string {
	if !out.Authenticated {
		return "none"
	}
	return out.TokenSource
}

func printProgress(w io.Writer, out readingdto.ProgressOutput) {
	if !out.Found {
		_, _ = fmt.Fprintf(w, "%s: no reading data yet\n", out.BookID)
		return
	}
	_, _ = fmt.Fprintf(w, "%s by %s: %d/%d pages read (%.1f%%), %.0f min, %.1f pages/min", out.Title, out.Author,
		out.TotalPagesRead, out.TotalPages, out.CompletionPercent, out.TotalReadingTime, out.AverageSpeed)
	if out.IsCurrentlyReading {
		_, _ = fmt.Fprint(w, ", reading now")
	}
	_, _ = fmt.Fprintln(w)
	for _, s := range out.Sessions {
		speed := "-"
		if s.Speed != nil {
			speed = fmt.Sprintf("%.1f", *s.Speed)
		}
		_, _ = fmt.Fprintf(w, "  %s\t%s\tp.%d-%d\t%d pages\t%.1f%%\t%s pages/min\t%s\n",
			s.ID, s.Status, s.StartPage, s.FinishPage, s.PagesRead, s.Percent, speed, s.StartTime)
	}
}
