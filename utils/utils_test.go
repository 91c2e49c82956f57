package utils

import "testing"

func TestCeilForceInt(t *testing.T) {
	cases := []struct {
		x, y, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{20, 10, 2},
		{33, 10, 4},
		{5, 1, 5},
	}
	for _, c := range cases {
		if got := CeilForceInt(c.x, c.y); got != c.want {
			t.Errorf("CeilForceInt(%d, %d) = %d, want %d", c.x, c.y, got, c.want)
		}
	}
}

func TestByteCountSI(t *testing.T) {
	cases := map[int64]string{
		0:       "0 B",
		999:     "999 B",
		1000:    "1.0 kB",
		1500:    "1.5 kB",
		2500000: "2.5 MB",
	}
	for in, want := range cases {
		if got := ByteCountSI(in); got != want {
			t.Errorf("ByteCountSI(%d) = %q, want %q", in, got, want)
		}
	}
}
