package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, and revoke API keys used to authenticate against the QRForge API.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRevokeCmd())

	return cmd
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		email   string
		label   string
		expires string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Generate a new API key bound to an account. The raw key is shown once and cannot be retrieved again.",
		Example: `  qrforge key create --account ops@example.com --label "CI pipeline"
  qrforge key create --account ops@example.com --expires 2027-01-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(email, label, expires)
		},
	}

	cmd.Flags().StringVar(&email, "account", "", "Email of the owning account (required)")
	cmd.Flags().StringVar(&label, "label", "", "Human-readable label for the key")
	cmd.Flags().StringVar(&expires, "expires", "", "Expiry date (YYYY-MM-DD, optional)")
	cmd.MarkFlagRequired("account")

	return cmd
}

func runKeyCreate(email, label, expires string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	acct, err := st.GetAccountByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("account %q not found", email)
	}

	var expiresAt *time.Time
	if expires != "" {
		t, err := time.Parse("2006-01-02", expires)
		if err != nil {
			return fmt.Errorf("invalid --expires date %q: %w", expires, err)
		}
		expiresAt = &t
	}

	authSvc := newAuthService(cfg, st, newLogger(cfg.Logging))
	rawKey, apiKey, err := authSvc.IssueKey(ctx, acct.ID, label, expiresAt)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}

	fmt.Println("API Key created:")
	fmt.Println()
	fmt.Printf("  Key:     %s\n", rawKey)
	fmt.Printf("  Account: %s\n", email)
	if label != "" {
		fmt.Printf("  Label:   %s\n", label)
	}
	if apiKey.ExpiresAt != nil {
		fmt.Printf("  Expires: %s\n", apiKey.ExpiresAt.Format("2006-01-02"))
	}
	fmt.Println()
	fmt.Println("  Save this key now - it cannot be retrieved again.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runKeyList(jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	keys, err := st.ListAPIKeys(ctx)
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}

	// Build an account ID -> email map for display
	accounts, err := st.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	emails := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		emails[a.ID] = a.Email
	}

	type keyRow struct {
		Prefix  string `json:"prefix"`
		Account string `json:"account"`
		Label   string `json:"label"`
		Monthly int64  `json:"monthly_requests"`
		Revoked bool   `json:"revoked"`
	}

	rows := make([]keyRow, len(keys))
	for i, k := range keys {
		email := emails[k.AccountID]
		if email == "" {
			email = fmt.Sprintf("account:%d", k.AccountID)
		}
		rows[i] = keyRow{
			Prefix:  k.KeyPrefix,
			Account: email,
			Label:   k.Label,
			Monthly: k.MonthlyRequestCount,
			Revoked: k.RevokedAt != nil,
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No API keys configured. Use 'qrforge key create' to create one.")
		return nil
	}

	fmt.Printf("%-14s %-28s %-24s %-10s %-8s\n", "PREFIX", "ACCOUNT", "LABEL", "MONTHLY", "REVOKED")
	fmt.Printf("%-14s %-28s %-24s %-10s %-8s\n", "------", "-------", "-----", "-------", "-------")
	for _, k := range rows {
		revoked := "no"
		if k.Revoked {
			revoked = "yes"
		}
		fmt.Printf("%-14s %-28s %-24s %-10d %-8s\n", k.Prefix, k.Account, k.Label, k.Monthly, revoked)
	}

	return nil
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <prefix>",
		Short: "Revoke an API key by its prefix",
		Long:  "Revoke an API key, preventing any further authenticated requests using that key.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRevoke(args[0])
		},
	}

	return cmd
}

func runKeyRevoke(prefix string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.RevokeAPIKeyByPrefix(context.Background(), prefix); err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}

	fmt.Printf("Revoked API key with prefix %q\n", prefix)
	return nil
}
