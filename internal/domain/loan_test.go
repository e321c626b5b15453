package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWholeMonthsBetween(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"six months", date(2024, 1, 1), date(2024, 7, 1), 6},
		{"one day short", date(2024, 1, 15), date(2024, 7, 14), 5},
		{"across year", date(2023, 11, 30), date(2024, 2, 29), 2},
		{"month end to shorter month", date(2024, 1, 31), date(2024, 2, 29), 0},
		{"same month", date(2024, 3, 1), date(2024, 3, 20), 0},
		{"reversed", date(2024, 7, 1), date(2024, 1, 1), -6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WholeMonthsBetween(tt.start, tt.end); got != tt.want {
				t.Errorf("WholeMonthsBetween() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputeSchedule(t *testing.T) {
	tests := []struct {
		name        string
		principal   string
		rate        string
		start, end  time.Time
		wantTotal   string
		wantMonths  int
		wantMonthly string
	}{
		{
			name:        "ten percent over six months",
			principal:   "100000",
			rate:        "10",
			start:       date(2024, 1, 1),
			end:         date(2024, 7, 1),
			wantTotal:   "110000",
			wantMonths:  6,
			wantMonthly: "18333.33",
		},
		{
			name:        "zero interest",
			principal:   "1200",
			rate:        "0",
			start:       date(2024, 1, 1),
			end:         date(2025, 1, 1),
			wantTotal:   "1200",
			wantMonths:  12,
			wantMonthly: "100",
		},
		{
			name:        "short term floors at one month",
			principal:   "500",
			rate:        "5",
			start:       date(2024, 3, 1),
			end:         date(2024, 3, 15),
			wantTotal:   "525",
			wantMonths:  1,
			wantMonthly: "525",
		},
		{
			name:        "rounds half up",
			principal:   "100",
			rate:        "0.5",
			start:       date(2024, 1, 1),
			end:         date(2024, 5, 1),
			wantTotal:   "100.5",
			wantMonths:  4,
			wantMonthly: "25.13",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ComputeSchedule(
				decimal.RequireFromString(tt.principal),
				decimal.RequireFromString(tt.rate),
				tt.start, tt.end,
			)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !s.TotalPayable.Equal(decimal.RequireFromString(tt.wantTotal)) {
				t.Errorf("TotalPayable = %s, want %s", s.TotalPayable, tt.wantTotal)
			}
			if s.TermMonths != tt.wantMonths {
				t.Errorf("TermMonths = %d, want %d", s.TermMonths, tt.wantMonths)
			}
			if !s.MonthlyDeduction.Equal(decimal.RequireFromString(tt.wantMonthly)) {
				t.Errorf("MonthlyDeduction = %s, want %s", s.MonthlyDeduction, tt.wantMonthly)
			}
		})
	}
}

func TestComputeSchedule_Errors(t *testing.T) {
	start := date(2024, 1, 1)

	tests := []struct {
		name      string
		principal decimal.Decimal
		rate      decimal.Decimal
		end       time.Time
		wantErr   error
	}{
		{"zero principal", decimal.Zero, decimal.NewFromInt(5), date(2024, 6, 1), ErrInvalidAmount},
		{"negative rate", decimal.NewFromInt(100), decimal.NewFromInt(-1), date(2024, 6, 1), ErrInvalidAmount},
		{"end equals start", decimal.NewFromInt(100), decimal.NewFromInt(5), start, ErrInvalidRange},
		{"end before start", decimal.NewFromInt(100), decimal.NewFromInt(5), date(2023, 12, 1), ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeSchedule(tt.principal, tt.rate, start, tt.end)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoan_RemainingAndPayable(t *testing.T) {
	loan := &Loan{
		TotalPayable: decimal.NewFromInt(1000),
		Status:       LoanStatusProgress,
		Repayments: []*LoanRepayment{
			{Amount: decimal.NewFromInt(300)},
			{Amount: decimal.RequireFromString("150.50")},
		},
	}

	if got := loan.TotalPaid(); !got.Equal(decimal.RequireFromString("450.50")) {
		t.Errorf("TotalPaid() = %s", got)
	}
	if got := loan.Remaining(); !got.Equal(decimal.RequireFromString("549.50")) {
		t.Errorf("Remaining() = %s", got)
	}
	if err := loan.EnsurePayable(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	loan.Status = LoanStatusCompleted
	if err := loan.EnsurePayable(); !errors.Is(err, ErrLoanCompleted) || !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrLoanCompleted, got %v", err)
	}

	loan.Status = LoanStatusRejected
	if err := loan.EnsurePayable(); !errors.Is(err, ErrLoanRejected) {
		t.Errorf("expected ErrLoanRejected, got %v", err)
	}
}

func TestLoanStatus(t *testing.T) {
	if !LoanStatusCompleted.IsTerminal() || !LoanStatusRejected.IsTerminal() {
		t.Error("COMPLETED and REJECTED must be terminal")
	}
	if LoanStatusInitiated.IsTerminal() || LoanStatusProgress.IsTerminal() {
		t.Error("INITIATED and PROGRESS must not be terminal")
	}
	if LoanStatus("DEFAULTED").IsValid() {
		t.Error("unknown status must be invalid")
	}
}

func TestValidateLoanTerms(t *testing.T) {
	start := date(2024, 1, 1)
	one := decimal.NewFromInt(1)

	tests := []struct {
		name       string
		start, end time.Time
		want       error
	}{
		{"next day", start, date(2024, 1, 2), nil},
		{"same date", start, start, ErrInvalidRange},
		{"same date different hours", start.Add(8 * time.Hour), start.Add(17 * time.Hour), ErrInvalidRange},
		{"end before start", date(2024, 2, 1), start, ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLoanTerms(one, one, tt.start, tt.end)
			if !errors.Is(err, tt.want) {
				t.Fatalf("ValidateLoanTerms() = %v, want %v", err, tt.want)
			}
		})
	}
}
