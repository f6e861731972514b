package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/folio/internal/assistant"
	"github.com/kalambet/folio/internal/composer"
	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/profile"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the assistant about the profile owner",
	Long: `Ask the assistant a question about the profile owner.

Examples:
  folio ask "What cloud platforms has Edwin worked with?"
  folio ask --interactive`,
	RunE: func(cmd *cobra.Command, args []string) error {
		interactive, _ := cmd.Flags().GetBool("interactive")
		question := strings.TrimSpace(strings.Join(args, " "))
		if !interactive && question == "" {
			return errors.New("a question is required (or use --interactive)")
		}

		a, err := loadApp(os.Stderr)
		if err != nil {
			return err
		}
		asst := assistant.New(a.gemini, a.snapshot)

		if interactive {
			printStatus("Chatting about", "%s (/reset clears history, /exit quits)", a.snapshot.OwnerName())
			return runChat(cmd.Context(), asst, os.Stdin)
		}

		reply, err := asst.Ask(cmd.Context(), nil, question)
		if err != nil {
			return err
		}
		printReply(reply.Outcome)
		return nil
	},
}

func init() {
	askCmd.Flags().BoolP("interactive", "i", false, "hold a multi-turn conversation")
}

type asker interface {
	Ask(ctx context.Context, history []composer.Turn, message string) (assistant.Reply, error)
}

// runChat reads questions line by line and keeps the conversation in memory
// for the life of the session.
func runChat(ctx context.Context, asst asker, in io.Reader) error {
	var history []composer.Turn
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(stderr, colorize(colorCyan, "you> "))
		if !scanner.Scan() {
			fmt.Fprintln(stderr)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			history = nil
			printSuccess("History cleared")
			continue
		}

		reply, err := asst.Ask(ctx, history, line)
		if err != nil {
			return err
		}
		printReply(reply.Outcome)
		history = append(history, composer.Turn{Role: composer.RoleUser, Text: line}, reply.Turn)
	}
}

// --- draft ---

var draftCmd = &cobra.Command{
	Use:   "draft <intent>",
	Short: "Draft a contact message from a one-line intent",
	Long: `Draft a short, ready-to-send contact message.

Example:
  folio draft "ask about a freelance data engineering project"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		intent := strings.TrimSpace(strings.Join(args, " "))
		if intent == "" {
			return errors.New("intent is required")
		}

		a, err := loadApp(os.Stderr)
		if err != nil {
			return err
		}
		reply := assistant.New(a.gemini, a.snapshot).Draft(cmd.Context(), intent)
		printReply(reply.Outcome)
		return nil
	},
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect or validate the profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the loaded profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		asContext, _ := cmd.Flags().GetBool("context")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		snap, err := loadSnapshot(cfg)
		if err != nil {
			return err
		}

		if asContext {
			fmt.Fprintln(stdout, snap.Context())
			return nil
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap.Profile())
	},
}

var profileValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a profile YAML file against the schema",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			path = cfg.Profile.Path
		}
		if path == "" {
			return errors.New("no profile file given and profile.path is not set")
		}
		return validateProfileFile(path)
	},
}

func validateProfileFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading profile: %w", err)
	}
	if err := profile.Validate(data); err != nil {
		return err
	}
	printSuccess("%s is valid", path)
	return nil
}

func init() {
	profileShowCmd.Flags().Bool("context", false, "print the serialized context sent to the model")
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileValidateCmd)
}

// --- contact ---

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Read contact form submissions",
}

type contactRow struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
}

var contactListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent contact messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		rows, err := fetchContacts(cmd.Context(), client, limit)
		if err != nil {
			return err
		}

		if len(rows) == 0 {
			fmt.Fprintln(stdout, "No contact messages.")
			return nil
		}
		for _, m := range rows {
			fmt.Fprintf(stdout, "%s  %s  %s <%s>\n    %s\n",
				colorize(colorCyan, shortID(m.ID)),
				m.CreatedAt,
				m.Name,
				m.Email,
				truncate(oneLine(m.Message), 100),
			)
		}
		return nil
	},
}

var contactShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single contact message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/admin/contact/"+args[0])
		if err != nil {
			return err
		}
		var m contactRow
		if err := decodeJSON(resp, &m); err != nil {
			return err
		}

		printStatus("From", "%s <%s>", m.Name, m.Email)
		printStatus("Received", "%s", m.CreatedAt)
		fmt.Fprintln(stdout, m.Message)
		return nil
	},
}

func fetchContacts(ctx context.Context, c *apiClient, limit int) ([]contactRow, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/api/admin/contact?limit=%d", limit))
	if err != nil {
		return nil, err
	}
	var rows []contactRow
	if err := decodeJSON(resp, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func init() {
	contactListCmd.Flags().Int("limit", 20, "maximum number of messages to list")
	contactCmd.AddCommand(contactListCmd)
	contactCmd.AddCommand(contactShowCmd)
}

// --- interactions ---

var interactionsCmd = &cobra.Command{
	Use:   "interactions",
	Short: "Inspect assistant call metadata",
}

type interactionRow struct {
	ID         string `json:"id"`
	CreatedAt  string `json:"created_at"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`
	DurationMs int64  `json:"duration_ms"`
}

var interactionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent interactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		rows, err := fetchInteractions(cmd.Context(), client, limit)
		if err != nil {
			return err
		}

		if len(rows) == 0 {
			fmt.Fprintln(stdout, "No interactions recorded.")
			return nil
		}
		for _, ix := range rows {
			fmt.Fprintf(stdout, "%s  %s  %-5s  %s  %d attempt(s)  %dms\n",
				colorize(colorCyan, shortID(ix.ID)),
				ix.CreatedAt,
				ix.Kind,
				statusColor(ix.Status),
				ix.Attempts,
				ix.DurationMs,
			)
		}
		return nil
	},
}

func fetchInteractions(ctx context.Context, c *apiClient, limit int) ([]interactionRow, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/api/admin/interactions?limit=%d", limit))
	if err != nil {
		return nil, err
	}
	var rows []interactionRow
	if err := decodeJSON(resp, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func statusColor(status string) string {
	switch status {
	case "ok":
		return colorize(colorGreen, status)
	case "offline", "malformed":
		return colorize(colorYellow, status)
	default:
		return colorize(colorRed, status)
	}
}

func init() {
	interactionsListCmd.Flags().Int("limit", 20, "maximum number of interactions to list")
	interactionsCmd.AddCommand(interactionsListCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(stdout, "  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "$"+k.EnvVar))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Secret keys (gemini.api_key, server.admin_token) are written to the
secrets file with owner-only permissions; everything else goes to
config.json.

Valid keys: ` + strings.Join(config.ValidKeys(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		if config.IsSecret(key) {
			printSuccess("Set %s", key)
		} else {
			printSuccess("Set %s = %s", key, value)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// --- helpers ---

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
