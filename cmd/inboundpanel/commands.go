package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/inboundpanel/internal/bootstrap"
	"github.com/creamcroissant/inboundpanel/internal/inbound"
	"github.com/creamcroissant/inboundpanel/internal/migrations"
	"github.com/creamcroissant/inboundpanel/internal/service"
)

func init() {
	// Migrate
	var migrateCmd = &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Database migration management",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := bootstrap.OpenSQLite(cfg.DB.Path)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.ErrOrStderr(), "Using DB path: %s\n", cfg.DB.Path)

			action := "up"
			if len(args) > 0 {
				action = args[0]
			}
			switch action {
			case "up":
				return migrations.UpContext(cmd.Context(), db)
			case "down":
				return migrations.Down(db)
			case "status":
				return migrations.Status(db)
			default:
				return fmt.Errorf("unknown migrate action %q", action)
			}
		},
	}
	rootCmd.AddCommand(migrateCmd)

	// Import
	var importStrict bool
	var importCmd = &cobra.Command{
		Use:   "import <file|->",
		Short: "Import inbounds from an export document or a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.inbounds.Import(cmd.Context(), data, service.WriteOptions{Strict: importStrict})
			if result != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Imported %d of %d inbounds\n", result.Success, result.Total)
				for _, failure := range result.Failures {
					fmt.Fprintf(out, "  %s\n", failure)
				}
			}
			return err
		},
	}
	importCmd.Flags().BoolVar(&importStrict, "strict", false, "Reject items whose protocol, network or security had to be defaulted")
	rootCmd.AddCommand(importCmd)

	// Export
	var exportOutput string
	var exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export all inbounds as a portable JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.inbounds.Export(cmd.Context())
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(result.Document, "", "  ")
			if err != nil {
				return fmt.Errorf("encode export: %w", err)
			}
			data = append(data, '\n')

			target, err := exportTarget(exportOutput, result.Filename)
			if err != nil {
				return err
			}
			if target == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(target, data, 0o600); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d inbounds to %s\n", len(result.Document.Inbounds), target)
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file or directory (default stdout)")
	rootCmd.AddCommand(exportCmd)

	// Clone
	var cloneCmd = &cobra.Command{
		Use:   "clone <id>",
		Short: "Duplicate an inbound with a fresh port and tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid inbound id %q", args[0])
			}
			a, err := openApp(cmd.Context(), cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			view, err := a.inbounds.Clone(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cloned inbound %d -> %d (%s, port %d)\n", id, view.ID, view.Tag, view.Port)
			return nil
		},
	}
	rootCmd.AddCommand(cloneCmd)

	rootCmd.AddCommand(newPackCmd(), newTokenCmd(), newUserCmd(), newGroupCmd())
}

func newPackCmd() *cobra.Command {
	packCmd := &cobra.Command{
		Use:   "pack",
		Short: "Preset pack management",
	}

	packCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available packs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTITLE\tENTRIES\tPROTOCOLS")
			for _, p := range a.packs.Packs() {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.Name, p.Title, p.Entries, strings.Join(p.Protocols, ","))
			}
			return w.Flush()
		},
	})

	var req inbound.PackRequest
	applyCmd := &cobra.Command{
		Use:   "apply <name>",
		Short: "Preview or commit a preset pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.packs.Apply(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			printPackResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	flags := applyCmd.Flags()
	flags.StringVar(&req.ServerAddress, "server", "", "Public address clients connect to")
	flags.StringVar(&req.ServerName, "server-name", "", "TLS server name (SNI)")
	flags.StringVar(&req.CDNHost, "cdn-host", "", "Host header for CDN-fronted entries")
	flags.StringVar(&req.FallbackPorts, "fallback-ports", "", "Comma separated fallback destination ports")
	flags.Int64SliceVar(&req.UserIDs, "user", nil, "User id to assign created inbounds to (repeatable)")
	flags.Int64SliceVar(&req.GroupIDs, "group", nil, "Group id to assign created inbounds to (repeatable)")
	flags.BoolVar(&req.DryRun, "dry-run", false, "Only show the plan, store nothing")
	_ = applyCmd.MarkFlagRequired("server")
	packCmd.AddCommand(applyCmd)

	return packCmd
}

func printPackResult(out io.Writer, result *service.PackResult) {
	mode := "committed"
	if result.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(out, "Pack %s (%s, plan %s)\n", result.Pack, mode, result.PlanID)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTAG\tPROTOCOL\tNETWORK\tSECURITY\tPORT")
	if result.DryRun {
		for _, p := range result.Planned {
			fmt.Fprintf(w, "-\t%s\t%s\t%s\t%s\t%d\n", p.Tag, p.Protocol, p.Network, p.Security, p.Port)
		}
	} else {
		for _, v := range result.Created {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\n", v.ID, v.Tag, v.Protocol, v.Network, v.Security, v.Port)
		}
	}
	_ = w.Flush()

	for _, warning := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
	if result.Assignment != nil {
		fmt.Fprintf(out, "Assigned to %d users and %d groups\n", result.Assignment.AssignedUsers, result.Assignment.AssignedGroups)
	}
}

func newTokenCmd() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Admin token management",
	}

	var subject string
	var ttl time.Duration
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue an admin JWT for the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject = strings.TrimSpace(subject)
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}
			a, err := openApp(cmd.Context(), cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			key, _, err := resolveSigningKeyWith(cmd.Context(), a.db)
			if err != nil {
				return err
			}
			cfg.Auth.SigningKey = key
			infra, err := bootstrap.BuildInfrastructure(cfg, a.logger)
			if err != nil {
				return err
			}
			signed, claims, err := infra.Token.IssueAdmin(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
			return nil
		},
	}
	issueCmd.Flags().StringVar(&subject, "subject", "", "Token subject, recorded as the audit actor")
	issueCmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default auth.token_ttl)")
	tokenCmd.AddCommand(issueCmd)
	return tokenCmd
}

func newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User directory management",
	}

	var email string
	var groups []int64
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a user, optionally into groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.directory.AddUser(cmd.Context(), email, groups)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %d (%s) created\n", user.ID, user.Email)
			return nil
		},
	}
	addCmd.Flags().StringVar(&email, "email", "", "User email")
	addCmd.Flags().Int64SliceVar(&groups, "group", nil, "Group id (repeatable)")
	_ = addCmd.MarkFlagRequired("email")

	inboundsCmd := &cobra.Command{
		Use:   "inbounds <id>",
		Short: "List inbound ids granted to a user directly or through its groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			a, err := openApp(cmd.Context(), cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ids, err := a.directory.UserInbounds(cmd.Context(), id)
			if err != nil {
				return err
			}
			printUserInbounds(cmd.OutOrStdout(), id, ids)
			return nil
		},
	}

	userCmd.AddCommand(addCmd, inboundsCmd)
	return userCmd
}

func printUserInbounds(w io.Writer, userID int64, ids []int64) {
	if len(ids) == 0 {
		fmt.Fprintf(w, "User %d has no inbounds\n", userID)
		return
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	fmt.Fprintf(w, "User %d: %s\n", userID, strings.Join(parts, ", "))
}

func newGroupCmd() *cobra.Command {
	groupCmd := &cobra.Command{
		Use:   "group",
		Short: "User group management",
	}
	groupCmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a user group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			group, err := a.directory.AddGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Group %d (%s) created\n", group.ID, group.Name)
			return nil
		},
	})
	return groupCmd
}

// resolveSigningKeyWith 解析签名密钥：配置优先，其次 settings 表，最后生成并保存。db 需已迁移。
func resolveSigningKeyWith(ctx context.Context, db *sql.DB) (string, bootstrap.SigningKeySource, error) {
	return bootstrap.ResolveJWTSigningKey(ctx, db, cfg.Auth.SigningKey, time.Now)
}

// readInput 读取文件，"-" 表示 stdin。
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// exportTarget 返回导出文件路径。空串表示写到 stdout；目录则使用建议的文件名。
func exportTarget(output, suggested string) (string, error) {
	output = strings.TrimSpace(output)
	if output == "" || output == "-" {
		return "", nil
	}
	info, err := os.Stat(output)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(output, suggested), nil
	case err == nil:
		return output, nil
	case os.IsNotExist(err):
		if strings.HasSuffix(output, string(os.PathSeparator)) {
			if err := os.MkdirAll(output, 0o755); err != nil {
				return "", fmt.Errorf("create output dir: %w", err)
			}
			return filepath.Join(output, suggested), nil
		}
		return output, nil
	default:
		return "", fmt.Errorf("stat output: %w", err)
	}
}
