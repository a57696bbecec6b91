package core

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"12.345", 1234, true},
		{"12.346", 1235, true},
		{"-3.50", -350, true},
		{"+7", 700, true},
		{"0", 0, true},
		{"0.00", 0, true},
		{".5", 50, true},
		{"", 0, false},
		{"-", 0, false},
		{"1.2.3", 0, false},
		{"abc", 0, false},
		{"12a", 0, false},
	}
	for i, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("case %d (%q): expected ok, got %v", i, tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d (%q): expected error", i, tc.in)
		}
		if tc.ok && got.Cents != tc.cents {
			t.Fatalf("case %d (%q): expected %d cents, got %d", i, tc.in, tc.cents, got.Cents)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{1234, "12.34"},
		{-350, "-3.50"},
		{0, "0.00"},
		{5, "0.05"},
		{-5, "-0.05"},
		{100000, "1000.00"},
	}
	for _, tc := range cases {
		if got := Cents(tc.cents).String(); got != tc.want {
			t.Fatalf("Cents(%d).String() = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	in := Cents(-1234)
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"-12.34"` {
		t.Fatalf("marshal = %s, want \"-12.34\"", data)
	}
	var out Money
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Fatalf("round trip: got %d cents, want %d", out.Cents, in.Cents)
	}
}

func TestMoneyJSONAcceptsNumber(t *testing.T) {
	var m Money
	if err := json.Unmarshal([]byte(`150.25`), &m); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if m.Cents != 15025 {
		t.Fatalf("got %d cents, want 15025", m.Cents)
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a, b := Cents(500), Cents(-200)
	if a.Add(b).Cents != 300 {
		t.Fatalf("Add: got %d", a.Add(b).Cents)
	}
	if a.Sub(b).Cents != 700 {
		t.Fatalf("Sub: got %d", a.Sub(b).Cents)
	}
	if b.Abs().Cents != 200 {
		t.Fatalf("Abs: got %d", b.Abs().Cents)
	}
	if Min(a, b) != b {
		t.Fatalf("Min: got %v", Min(a, b))
	}
}
