package core

import "testing"

func TestBudgetValidate(t *testing.T) {
	min, max := Cents(10000), Cents(20000)
	negative := Cents(-100)
	cases := []struct {
		name string
		b    Budget
		ok   bool
	}{
		{"income ok", Budget{Name: "Salary", Kind: KindIncome, Month: 1, Year: 2026, ExpectedAmount: Cents(300000)}, true},
		{"fund ok", Budget{Name: "Vacation", Kind: KindFund, Month: 1, Year: 2026, Increment: Cents(10000)}, true},
		{"missing name", Budget{Kind: KindIncome, Month: 1, Year: 2026}, false},
		{"bad kind", Budget{Name: "X", Kind: "savings", Month: 1, Year: 2026}, false},
		{"bad month", Budget{Name: "X", Kind: KindExpense, Month: 13, Year: 2026}, false},
		{"negative increment", Budget{Name: "X", Kind: KindFund, Month: 2, Year: 2026, Increment: negative}, false},
		{"negative expected", Budget{Name: "X", Kind: KindExpense, Month: 2, Year: 2026, ExpectedAmount: negative}, false},
		{"min above max", Budget{Name: "X", Kind: KindFlexible, Month: 2, Year: 2026, Min: &max, Max: &min}, false},
		{"estimated range ok", Budget{Name: "X", Kind: KindFlexible, Month: 2, Year: 2026, Min: &min, Max: &max}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.b.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.ok && KindOf(err) != KindValidation {
				t.Fatalf("expected validation kind, got %v", KindOf(err))
			}
		})
	}
}

func TestPeriodBefore(t *testing.T) {
	b := Budget{Month: 6, Year: 2026}
	if !b.PeriodBefore(7, 2026) || !b.PeriodBefore(1, 2027) {
		t.Fatalf("expected period to precede later months")
	}
	if b.PeriodBefore(6, 2026) || b.PeriodBefore(12, 2025) {
		t.Fatalf("expected period not to precede itself or earlier months")
	}
}

func TestPreviousPeriod(t *testing.T) {
	if m, y := PreviousPeriod(1, 2026); m != 12 || y != 2025 {
		t.Fatalf("got %d/%d, want 12/2025", m, y)
	}
	if m, y := PreviousPeriod(7, 2026); m != 6 || y != 2026 {
		t.Fatalf("got %d/%d, want 6/2026", m, y)
	}
}

func TestErrorKinds(t *testing.T) {
	if KindOf(Conflictf("dup")) != KindConflict {
		t.Fatalf("conflict kind lost")
	}
	if KindOf(NotFoundf("missing %d", 7)) != KindNotFound {
		t.Fatalf("not-found kind lost")
	}
	if KindOf(ErrInvalidAmount) != 0 {
		t.Fatalf("untyped error should have zero kind")
	}
}
