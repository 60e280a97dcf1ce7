package utils

import "testing"

func TestFormatINRGrouping(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "Rs 0"},
		{120, "Rs 120"},
		{4500, "Rs 4,500"},
		{45000, "Rs 45,000"},
		{150000, "Rs 1,50,000"},
		{12345678, "Rs 1,23,45,678"},
		{-4500, "-Rs 4,500"},
	}
	for _, c := range cases {
		if got := FormatINR(c.in); got != c.want {
			t.Fatalf("FormatINR(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestReferenceNumberShape(t *testing.T) {
	ref := NewReferenceNumber()
	if len(ref) != 11 || ref[:3] != "BP-" {
		t.Fatalf("unexpected reference number %q", ref)
	}
	if ref == NewReferenceNumber() {
		t.Fatalf("reference numbers should be unique")
	}
}
