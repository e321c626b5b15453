package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/bankcore/internal/adapter/http/dto"
	"github.com/iho/bankcore/internal/domain"
)

const idempotencyHeader = "Idempotency-Key"

func loginCmd(opts *options) *cobra.Command {
	var (
		req     dto.LoginRequest
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Open a session and print its token",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.SessionResponse
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/sessions", req, &resp); err != nil {
				return err
			}
			if verbose {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "User email")
	cmd.Flags().StringVar(&req.Password, "password", "", "User password")
	cmd.Flags().BoolVar(&verbose, "json", false, "Print the whole session")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.client().do(cmd.Context(), http.MethodDelete, "/api/v1/sessions/current", nil, nil)
		},
	}
}

func whoamiCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.SessionResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/sessions/current", nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func accountCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account operations",
	}

	var create dto.CreateAccountRequest
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Open an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.AccountResponse
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/accounts", create, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	createCmd.Flags().StringVar(&create.Name, "name", "", "Account name")
	createCmd.Flags().StringVar(&create.Category, "category", string(domain.AccountCategoryChecking), "SAVINGS, CHECKING or BUSINESS")
	_ = createCmd.MarkFlagRequired("name")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.AccountResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/accounts/"+url.PathEscape(args[0]), nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	var page pageFlags
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.ListResponse[*dto.AccountResponse]
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/accounts"+page.query(nil), nil, &resp); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tBALANCE\tACTIVE")
			for _, a := range resp.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", a.ID, truncate(a.Name, 24), a.Category, a.Balance, a.Active)
			}
			return tw.Flush()
		},
	}
	page.register(listCmd)

	setStatus := func(use, short string, active bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var resp dto.AccountResponse
				body := dto.SetAccountStatusRequest{Active: &active}
				if err := opts.client().do(cmd.Context(), http.MethodPatch, "/api/v1/accounts/"+url.PathEscape(args[0])+"/status", body, &resp); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			},
		}
	}

	cmd.AddCommand(createCmd, getCmd, listCmd,
		setStatus("activate", "Re-open an account", true),
		setStatus("deactivate", "Close an account to new transactions", false),
	)
	return cmd
}

func txCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transaction"},
		Short:   "Ledger transactions",
	}

	process := func(kind domain.TransactionKind) *cobra.Command {
		var counterparty, key string

		c := &cobra.Command{
			Use:   strings.ToLower(string(kind)) + " <account-id> <amount>",
			Short: "Process a " + strings.ToLower(string(kind)),
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				amount, err := decimal.NewFromString(args[1])
				if err != nil {
					return fmt.Errorf("invalid amount %q: %w", args[1], err)
				}
				if key == "" {
					key = uuid.NewString()
				}

				req := dto.ProcessTransactionRequest{
					AccountID:    args[0],
					Kind:         string(kind),
					Amount:       amount,
					Counterparty: counterparty,
				}

				var resp dto.TransactionResponse
				err = opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/transactions", req, &resp, idempotencyHeader, key)
				if statusOf(err) == http.StatusUnprocessableEntity {
					return rejectedTransaction(cmd, err)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			},
		}

		c.Flags().StringVar(&key, "idempotency-key", "", "Idempotency key (random when empty)")
		if kind == domain.TransactionKindTransfer {
			c.Flags().StringVar(&counterparty, "to", "", "Counterparty reference")
		}
		return c
	}

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.TransactionResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/transactions/"+url.PathEscape(args[0]), nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	var (
		page      pageFlags
		accountID string
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			extra := url.Values{}
			if accountID != "" {
				extra.Set("account_id", accountID)
			}

			var resp dto.ListResponse[*dto.TransactionResponse]
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/transactions"+page.query(extra), nil, &resp); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tACCOUNT\tKIND\tAMOUNT\tSTATUS\tBALANCE AFTER")
			for _, t := range resp.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.AccountID, t.Kind, t.Amount, t.Status, t.BalanceAfter)
			}
			return tw.Flush()
		},
	}
	page.register(listCmd)
	listCmd.Flags().StringVar(&accountID, "account", "", "Only this account")

	cmd.AddCommand(
		process(domain.TransactionKindDeposit),
		process(domain.TransactionKindWithdraw),
		process(domain.TransactionKindTransfer),
		getCmd, listCmd,
	)
	return cmd
}

// rejectedTransaction prints the FAILED transaction recorded for an
// insufficient-funds attempt.
func rejectedTransaction(cmd *cobra.Command, err error) error {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		return err
	}

	var body dto.InsufficientFundsResponse
	if jsonErr := json.Unmarshal(apiErr.Body, &body); jsonErr != nil || body.Transaction == nil {
		return err
	}

	if printErr := printJSON(cmd.OutOrStdout(), body.Transaction); printErr != nil {
		return printErr
	}
	return fmt.Errorf("insufficient funds: balance %s, requested %s", body.Balance, body.Requested)
}

func loanCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Loan servicing",
	}

	var (
		principal, rate string
		originate       dto.OriginateLoanRequest
	)
	originateCmd := &cobra.Command{
		Use:   "originate",
		Short: "Originate a loan",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := decimal.NewFromString(principal)
			if err != nil {
				return fmt.Errorf("invalid principal %q: %w", principal, err)
			}
			r, err := decimal.NewFromString(rate)
			if err != nil {
				return fmt.Errorf("invalid rate %q: %w", rate, err)
			}
			originate.Principal = &p
			originate.InterestRate = &r

			var resp dto.LoanResponse
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/loans", originate, &resp, idempotencyHeader, uuid.NewString()); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	originateCmd.Flags().StringVar(&principal, "principal", "", "Amount lent")
	originateCmd.Flags().StringVar(&rate, "rate", "", "Flat interest rate in percent")
	originateCmd.Flags().StringVar(&originate.StartDate, "start", "", "Start date (YYYY-MM-DD, default today)")
	originateCmd.Flags().StringVar(&originate.EndDate, "end", "", "End date (YYYY-MM-DD)")
	originateCmd.Flags().StringSliceVar(&originate.AccountIDs, "account", nil, "Linked account id (repeatable)")
	_ = originateCmd.MarkFlagRequired("principal")
	_ = originateCmd.MarkFlagRequired("rate")
	_ = originateCmd.MarkFlagRequired("end")

	var paymentDate string
	repayCmd := &cobra.Command{
		Use:   "repay <loan-id> <amount>",
		Short: "Record a repayment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			req := dto.RepaymentRequest{Amount: amount, PaymentDate: paymentDate}
			var resp dto.RepaymentResultResponse
			path := "/api/v1/loans/" + url.PathEscape(args[0]) + "/repayments"
			if err := opts.client().do(cmd.Context(), http.MethodPost, path, req, &resp, idempotencyHeader, uuid.NewString()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "repayment %s recorded, loan %s is %s, remaining %s\n",
				resp.Repayment.ID, resp.Loan.ID, resp.Loan.Status, resp.Loan.Remaining)
			return nil
		},
	}
	repayCmd.Flags().StringVar(&paymentDate, "date", "", "Payment date (YYYY-MM-DD, default today)")

	showCmd := &cobra.Command{
		Use:   "show <loan-id>",
		Short: "Show a loan with its repayments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.LoanResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/loans/"+url.PathEscape(args[0]), nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	var page pageFlags
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List loans",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.ListResponse[*dto.LoanResponse]
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/loans"+page.query(nil), nil, &resp); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tTOTAL\tMONTHLY\tREMAINING\tEND")
			for _, l := range resp.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", l.ID, l.Status, l.TotalPayable, l.MonthlyDeduction, l.Remaining, l.EndDate)
			}
			return tw.Flush()
		},
	}
	page.register(listCmd)

	rejectCmd := &cobra.Command{
		Use:   "reject <loan-id>",
		Short: "Reject an initiated loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.LoanResponse
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/loans/"+url.PathEscape(args[0])+"/reject", nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loan %s is %s\n", resp.ID, resp.Status)
			return nil
		},
	}

	cmd.AddCommand(originateCmd, repayCmd, showCmd, listCmd, rejectCmd)
	return cmd
}

func userCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User management",
	}

	var req dto.CreateUserRequest
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.UserResponse
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/users", req, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	createCmd.Flags().StringVar(&req.Email, "email", "", "Email")
	createCmd.Flags().StringVar(&req.Name, "name", "", "Display name")
	createCmd.Flags().StringVar(&req.Password, "password", "", "Password")
	createCmd.Flags().StringVar(&req.Role, "role", string(domain.RoleViewer), "admin, operator or viewer")
	_ = createCmd.MarkFlagRequired("email")
	_ = createCmd.MarkFlagRequired("password")

	cmd.AddCommand(createCmd)
	return cmd
}

func ledgerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	reconcileCmd := &cobra.Command{
		Use:     "reconcile",
		Aliases: []string{"consistency"},
		Short:   "Check recorded balances against transaction history",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report dto.ReconciliationResponse
			err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/ledger/reconciliation", nil, &report)

			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
				if jsonErr := json.Unmarshal(apiErr.Body, &report); jsonErr != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if report.Consistent {
				fmt.Fprintf(out, "Consistency check PASSED (%d accounts)\n", report.TotalAccounts)
				return nil
			}

			fmt.Fprintf(out, "Consistency check FAILED (%d of %d accounts reconciled)\n", report.ReconciledAccounts, report.TotalAccounts)
			for _, d := range report.Discrepancies {
				fmt.Fprintf(out, "  %s: recorded %s, calculated %s, difference %s\n", d.AccountID, d.RecordedBalance, d.CalculatedBalance, d.Difference)
			}
			for _, id := range report.NegativeBalances {
				fmt.Fprintf(out, "  %s: negative balance\n", id)
			}
			return errors.New("ledger is inconsistent")
		},
	}

	cmd.AddCommand(reconcileCmd)
	return cmd
}

type pageFlags struct {
	limit  int
	offset int
}

func (p *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.limit, "limit", 20, "Page size")
	cmd.Flags().IntVar(&p.offset, "offset", 0, "Items to skip")
}

func (p *pageFlags) query(extra url.Values) string {
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	q.Set("limit", strconv.Itoa(p.limit))
	q.Set("offset", strconv.Itoa(p.offset))
	return "?" + q.Encode()
}
