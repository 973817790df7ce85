package transformer

import (
	"testing"
	"time"
)

func TestParseValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		percent bool
		want    any
	}{
		{"12.3456789", true, 0.1234568},
		{"50", true, 0.5},
		{"abc", true, nil},
		{"", false, nil},
		{"42.0", false, int64(42)},
		{"42", false, int64(42)},
		{"42.5", false, 42.5},
		{"1.123456789", false, 1.1234568},
		{" 7 ", false, int64(7)},
		{"-3", false, int64(-3)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got := ParseValue(tt.in, tt.percent)
			if got != tt.want {
				t.Fatalf("ParseValue(%q, %v) = %#v; want %#v", tt.in, tt.percent, got, tt.want)
			}
		})
	}
}

func TestStartDate(t *testing.T) {
	t.Parallel()

	got := StartDate("Jan 2019-Dec 2019", LayoutMonthYear)
	want := time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
	if d, ok := got.(time.Time); !ok || !d.Equal(want) {
		t.Fatalf("StartDate = %#v; want %v", got, want)
	}

	got = StartDate("March 2021", LayoutFullMonthYear)
	want = time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)
	if d, ok := got.(time.Time); !ok || !d.Equal(want) {
		t.Fatalf("claims StartDate = %#v; want %v", got, want)
	}

	for _, bad := range []string{"", "2019", "Jan 2019 -Dec 2019", "March 2021"} {
		if got := StartDate(bad, LayoutMonthYear); got != nil {
			t.Fatalf("StartDate(%q) = %#v; want nil", bad, got)
		}
	}
}

func TestTruthy(t *testing.T) {
	t.Parallel()

	falsy := []any{nil, "", int64(0), 0, 0.0, false, Unclassified, time.Time{}}
	for _, v := range falsy {
		if Truthy(v) {
			t.Fatalf("Truthy(%#v) = true; want false", v)
		}
	}
	truthy := []any{"x", int64(1), -1, 0.1, true, time.Now()}
	for _, v := range truthy {
		if !Truthy(v) {
			t.Fatalf("Truthy(%#v) = false; want true", v)
		}
	}
}
