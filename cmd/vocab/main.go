package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"vocab-go/internal/app"
	"vocab-go/internal/config"
	"vocab-go/internal/model"
	"vocab-go/internal/vocab"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a VocabApp for the --user account.
// The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "CreateSnapshot").
func newApp(cmd *cobra.Command, operation string) (*app.VocabApp, error) {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		user = os.Getenv("VOCAB_USER")
	}
	if user == "" {
		return nil, errors.New("no user given; pass --user or set VOCAB_USER")
	}

	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewVocabApp(cmd.Context(), cfg, operation, user)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// withApp runs fn against a fresh VocabApp and records a failed operation
// before closing it.
func withApp(cmd *cobra.Command, operation string, fn func(ctx context.Context, a *app.VocabApp) error) error {
	a, err := newApp(cmd, operation)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(cmd.Context(), a); err != nil {
		a.Fail()
		return err
	}
	return nil
}

func readPassphrase(prompt string) (string, error) {
	if p := os.Getenv("VOCAB_PASSPHRASE"); p != "" {
		return p, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// unlockIfNeeded asks for the snapshot passphrase when snapshots are sealed.
func unlockIfNeeded(a *app.VocabApp) error {
	if !a.NeedsUnlock() {
		return nil
	}
	pass, err := readPassphrase("Snapshot passphrase: ")
	if err != nil {
		return err
	}
	return a.Unlock(pass)
}

var rootCmd = &cobra.Command{
	Use:          "vocab",
	Short:        "Flashcard course storage and maintenance",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Storage:    %s\n", cfg.Storage.Type)
		fmt.Printf("Cache:      %t\n", cfg.Cache.Enabled)
		fmt.Printf("Metrics:    %t\n", cfg.Metrics.Enabled)
		fmt.Printf("Compress:   %t\n", cfg.Snapshots.Compress)
		fmt.Printf("Encrypt:    %t\n", cfg.Snapshots.Encrypt)
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the storage backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ValidateSetup", func(ctx context.Context, a *app.VocabApp) error {
			if err := a.ValidateSetup(ctx); err != nil {
				return err
			}
			fmt.Println("Storage OK")
			return nil
		})
	},
}

// courses command
var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Manage courses",
}

var coursesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List courses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ListCourses", func(ctx context.Context, a *app.VocabApp) error {
			courses, err := a.ListCourses(ctx)
			if err != nil {
				return err
			}
			if len(courses) == 0 {
				fmt.Println("No courses.")
				return nil
			}
			for _, c := range courses {
				fmt.Printf("%-3d %-30s %-40s page:%d\n", c.Order, c.Name, c.Filename, c.PageSize)
			}
			return nil
		})
	},
}

var coursesCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an empty course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageSize, _ := cmd.Flags().GetInt("page-size")
		return withApp(cmd, "CreateCourse", func(ctx context.Context, a *app.VocabApp) error {
			c, err := a.CreateCourse(ctx, args[0], pageSize)
			if err != nil {
				return err
			}
			fmt.Printf("Created course %q (%s)\n", c.Name, c.Filename)
			return nil
		})
	},
}

var coursesRenameCmd = &cobra.Command{
	Use:   "rename FILENAME NAME",
	Short: "Rename a course",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "RenameCourse", func(ctx context.Context, a *app.VocabApp) error {
			c, err := a.RenameCourse(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Renamed %s to %q\n", c.Filename, c.Name)
			return nil
		})
	},
}

var coursesPageSizeCmd = &cobra.Command{
	Use:   "pagesize FILENAME SIZE",
	Short: "Set the decay page size of a course",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		size, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid page size %q", args[1])
		}
		return withApp(cmd, "SetPageSize", func(ctx context.Context, a *app.VocabApp) error {
			c, err := a.SetPageSize(ctx, args[0], size)
			if err != nil {
				return err
			}
			fmt.Printf("Page size of %s is now %d\n", c.Filename, c.PageSize)
			return nil
		})
	},
}

var coursesReorderCmd = &cobra.Command{
	Use:   "reorder FILENAME...",
	Short: "Set the display order of all courses",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ReorderCourses", func(ctx context.Context, a *app.VocabApp) error {
			courses, err := a.ReorderCourses(ctx, args)
			if err != nil {
				return err
			}
			fmt.Printf("Reordered %d course(s)\n", len(courses))
			return nil
		})
	},
}

var coursesDeleteCmd = &cobra.Command{
	Use:   "delete FILENAME",
	Short: "Delete a course and its items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "DeleteCourse", func(ctx context.Context, a *app.VocabApp) error {
			if err := a.DeleteCourse(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		})
	},
}

// items command
var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "View and update course items",
}

var itemsShowCmd = &cobra.Command{
	Use:   "show FILENAME",
	Short: "Show the items of a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "GetVocab", func(ctx context.Context, a *app.VocabApp) error {
			items, err := a.GetVocab(ctx, args[0])
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("No items.")
				return nil
			}
			for _, it := range items {
				marks := make([]string, len(it.States))
				for i, s := range it.States {
					marks[i] = stateMark(s)
				}
				fmt.Printf("%-36s %s  %s = %s\n", it.ID, strings.Join(marks, ""), it.Word, it.Answer)
			}
			return nil
		})
	},
}

func stateMark(s model.State) string {
	switch s {
	case model.StateTick:
		return "+"
	case model.StateCross:
		return "x"
	case model.StateBoost:
		return "*"
	default:
		return "."
	}
}

var itemsSetCmd = &cobra.Command{
	Use:   "set FILENAME ITEM_ID SLOT STATE",
	Short: "Set one review mark (none, tick, cross, boost)",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		slot, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid slot %q", args[2])
		}
		return withApp(cmd, "UpdateItemState", func(ctx context.Context, a *app.VocabApp) error {
			it, err := a.SetItemState(ctx, args[0], args[1], slot, args[3])
			if err != nil {
				return err
			}
			fmt.Printf("%s slot %d = %s\n", it.ID, slot, it.States[slot])
			return nil
		})
	},
}

var itemsImportCmd = &cobra.Command{
	Use:   "import FILENAME PATH",
	Short: "Append items from a local vocab file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ImportItems", func(ctx context.Context, a *app.VocabApp) error {
			n, err := a.ImportFile(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d item(s)\n", n)
			return nil
		})
	},
}

// snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage snapshots",
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Snapshot all courses",
	RunE: func(cmd *cobra.Command, args []string) error {
		note, _ := cmd.Flags().GetString("note")
		return withApp(cmd, "CreateSnapshot", func(ctx context.Context, a *app.VocabApp) error {
			info, err := a.CreateSnapshot(ctx, note)
			if err != nil {
				return err
			}
			fmt.Printf("Created snapshot %s (%d course(s))\n", info.ID, info.CourseCount)
			return nil
		})
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		unlock, _ := cmd.Flags().GetBool("unlock")
		return withApp(cmd, "ListSnapshots", func(ctx context.Context, a *app.VocabApp) error {
			if unlock {
				if err := unlockIfNeeded(a); err != nil {
					return err
				}
			}
			snaps, err := a.ListSnapshots(ctx)
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Println("No snapshots.")
				return nil
			}
			for _, s := range snaps {
				if s.Sealed {
					fmt.Printf("%s  [encrypted]\n", s.ID)
					continue
				}
				fmt.Printf("%s  %s  %d course(s)  %s\n",
					s.ID,
					s.CreatedAt.Format("2006-01-02 15:04:05"),
					s.CourseCount,
					s.Note,
				)
			}
			return nil
		})
	},
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore ID",
	Short: "Restore courses from a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "RestoreSnapshot", func(ctx context.Context, a *app.VocabApp) error {
			if err := unlockIfNeeded(a); err != nil {
				return err
			}
			info, err := a.RestoreSnapshot(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Restored %d course(s) from %s\n", info.CourseCount, info.ID)
			return nil
		})
	},
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "DeleteSnapshot", func(ctx context.Context, a *app.VocabApp) error {
			if err := a.DeleteSnapshot(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted snapshot %s\n", args[0])
			return nil
		})
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage snapshot encryption keys",
}

var keysSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Generate the snapshot key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "SetupKeys", func(ctx context.Context, a *app.VocabApp) error {
			pass, err := readPassphrase("New passphrase: ")
			if err != nil {
				return err
			}
			confirm, err := readPassphrase("Repeat passphrase: ")
			if err != nil {
				return err
			}
			if pass != confirm {
				return vocab.InvalidInput("setup keys", "passphrases do not match")
			}
			if err := a.SetupKeys(pass); err != nil {
				return err
			}
			fmt.Println("Snapshot keys created")
			return nil
		})
	},
}

// maintain command
var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run due decay and automatic snapshot checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "Maintain", func(ctx context.Context, a *app.VocabApp) error {
			report := a.Maintain(ctx)
			if report.Decay.Run {
				fmt.Printf("Decay: %d course(s) modified\n", report.Decay.CoursesModified)
			} else {
				fmt.Println("Decay: not due")
			}
			if report.AutoSnapshot.Created && report.AutoSnapshot.Snapshot != nil {
				fmt.Printf("Snapshot: created %s\n", report.AutoSnapshot.Snapshot.ID)
			} else {
				fmt.Println("Snapshot: not due")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("user", "u", "", "User account to act on (default $VOCAB_USER)")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configCheckCmd)

	// courses subcommands
	coursesCmd.AddCommand(coursesListCmd)
	coursesCmd.AddCommand(coursesCreateCmd)
	coursesCreateCmd.Flags().IntP("page-size", "p", 0, "Items per decay page (0 uses the configured default)")
	coursesCmd.AddCommand(coursesRenameCmd)
	coursesCmd.AddCommand(coursesPageSizeCmd)
	coursesCmd.AddCommand(coursesReorderCmd)
	coursesCmd.AddCommand(coursesDeleteCmd)

	// items subcommands
	itemsCmd.AddCommand(itemsShowCmd)
	itemsCmd.AddCommand(itemsSetCmd)
	itemsCmd.AddCommand(itemsImportCmd)

	// snapshot subcommands
	snapshotCmd.AddCommand(snapshotCreateCmd)
	snapshotCreateCmd.Flags().StringP("note", "m", "", "Note stored with the snapshot")
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotListCmd.Flags().Bool("unlock", false, "Ask for the passphrase to show encrypted snapshots")
	snapshotCmd.AddCommand(snapshotRestoreCmd)
	snapshotCmd.AddCommand(snapshotDeleteCmd)

	keysCmd.AddCommand(keysSetupCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(coursesCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(maintainCmd)
}
