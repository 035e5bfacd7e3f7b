package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/BenTyson/qrforge-sub000/internal/model"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
		Long:  "Create and list accounts that own API keys and QR codes.",
	}

	cmd.AddCommand(newAccountCreateCmd())
	cmd.AddCommand(newAccountListCmd())
	cmd.AddCommand(newAccountTierCmd())
	cmd.AddCommand(newAccountEnableCmd(true))
	cmd.AddCommand(newAccountEnableCmd(false))

	return cmd
}

// ---------- account create ----------

func newAccountCreateCmd() *cobra.Command {
	var (
		email    string
		password string
		name     string
		tier     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new account",
		Example: `  qrforge account create --email ops@example.com --tier business
  qrforge account create --email ops@example.com  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountCreate(email, password, name, tier)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted if omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Account display name")
	cmd.Flags().StringVar(&tier, "tier", "free", "Subscription tier: free, pro, or business")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runAccountCreate(email, password, name, tier string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %q", email)
	}
	t := model.Tier(tier)
	if !t.Valid() {
		return fmt.Errorf("invalid tier %q; use free, pro, or business", tier)
	}

	// Prompt for password if not provided
	if password == "" {
		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = string(pwBytes)

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()

		if password != string(confirmBytes) {
			return fmt.Errorf("passwords do not match")
		}
	}

	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	acct := &model.Account{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Tier:         t,
		IsActive:     true,
	}
	if err := st.CreateAccount(context.Background(), acct); err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	fmt.Printf("Created account %q (tier: %s)\n", email, t)
	return nil
}

// ---------- account list ----------

func newAccountListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAccountList(jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	accounts, err := st.ListAccounts(context.Background())
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	type accountRow struct {
		Email  string `json:"email"`
		Name   string `json:"name"`
		Tier   string `json:"tier"`
		Active bool   `json:"active"`
	}

	rows := make([]accountRow, len(accounts))
	for i, a := range accounts {
		rows[i] = accountRow{
			Email:  a.Email,
			Name:   a.Name,
			Tier:   string(a.Tier),
			Active: a.IsActive,
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No accounts. Use 'qrforge account create' to create one.")
		return nil
	}

	fmt.Printf("%-28s %-20s %-10s %-8s\n", "EMAIL", "NAME", "TIER", "ACTIVE")
	fmt.Printf("%-28s %-20s %-10s %-8s\n", "-----", "----", "----", "------")
	for _, a := range rows {
		active := "yes"
		if !a.Active {
			active = "no"
		}
		fmt.Printf("%-28s %-20s %-10s %-8s\n", a.Email, a.Name, a.Tier, active)
	}

	return nil
}

// ---------- account tier ----------

func newAccountTierCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tier <email> <tier>",
		Short: "Change an account's subscription tier",
		Long:  "Move an account between free, pro, and business. Only business accounts may use the programmatic API.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountTier(args[0], args[1])
		},
	}

	return cmd
}

// ---------- account enable / disable ----------

func newAccountEnableCmd(enable bool) *cobra.Command {
	use, short := "enable <email>", "Re-enable a disabled account"
	if !enable {
		use, short = "disable <email>", "Disable an account and all of its API keys"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountEnable(args[0], enable)
		},
	}
}

func runAccountEnable(email string, enable bool) error {
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
	if err := st.SetAccountActive(ctx, acct.ID, enable); err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	state := "enabled"
	if !enable {
		state = "disabled"
	}
	fmt.Printf("Account %q %s\n", email, state)
	return nil
}

func runAccountTier(email, tier string) error {
	t := model.Tier(tier)
	if !t.Valid() {
		return fmt.Errorf("invalid tier %q; use free, pro, or business", tier)
	}

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
	if err := st.UpdateAccountTier(ctx, acct.ID, t); err != nil {
		return fmt.Errorf("update tier: %w", err)
	}

	fmt.Printf("Account %q is now tier %s\n", email, t)
	return nil
}
