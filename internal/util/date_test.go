package util

import (
	"testing"
	"time"
)

func TestFormatBackendDate(t *testing.T) {
	cases := map[time.Time]string{
		time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC):    "05-03-2024",
		time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC):  "31-12-1999",
		time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC): "29-02-2024",
	}
	for in, want := range cases {
		if got := FormatBackendDate(in); got != want {
			t.Errorf("expected %s, got %q", want, got)
		}
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-05", "05-03-2024", "05/03/2024", " 2024-03-05 "} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("expected %q to parse, got %v", in, err)
		}
		if !got.Equal(want) {
			t.Errorf("expected %v from %q, got %v", want, in, got)
		}
	}
	for _, bad := range []string{"March 5", "", "2024-02-30", "2024/03/05"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
