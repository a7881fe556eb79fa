package textnorm

import (
	"slices"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want AddressKind
	}{
		{"empty", "", KindEmpty},
		{"whitespace only", "   ", KindEmpty},
		{"street address", "214 Lý Thường Kiệt, Quận 10", KindRegular},
		{"single carrier", "nhà xe Anh Khoa", KindSingleCarrier},
		{"carrier with colon", "chành xe: Kim Hoàng", KindSingleCarrier},
		{"two carriers", "nhà xe Anh Khoa, chành xe Kim Hoàng", KindMultiCarrier},
		{"junk fails open", "???", KindRegular},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Classify(c.in); got != c.want {
				t.Fatalf("Classify(%q) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}

func TestExtractCarrierNames(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "single name",
			in:   "nhà xe Anh Khoa",
			want: []string{"ANH KHOA"},
		},
		{
			name: "phone stripped from name",
			in:   "nhà xe Anh Khoa 0903123456",
			want: []string{"ANH KHOA"},
		},
		{
			name: "parenthetical stripped",
			in:   "nhà xe Anh Khoa (gọi trước)",
			want: []string{"ANH KHOA"},
		},
		{
			name: "two names in order",
			in:   "nhà xe Anh Khoa, chành xe Kim Hoàng",
			want: []string{"ANH KHOA", "KIM HOANG"},
		},
		{
			name: "org suffix stripped",
			in:   "xe Thành Bưởi vận tải",
			want: []string{"THANH BUOI"},
		},
		{
			name: "no carrier",
			in:   "214 Lý Thường Kiệt",
			want: nil,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ExtractCarrierNames(c.in)
			if !slices.Equal(got, c.want) {
				t.Fatalf("ExtractCarrierNames(%q) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}

func TestExtractCarrierNameEmpty(t *testing.T) {
	if got := ExtractCarrierName("giao trong ngày"); got != "" {
		t.Fatalf("expected no carrier, got %q", got)
	}
}
