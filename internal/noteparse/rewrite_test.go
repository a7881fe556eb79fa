package noteparse

import "testing"

func TestRewrite(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"urgent", "giao gấp", "GIAO URGENT"},
		{"urgent long form", "khẩn cấp", "URGENT"},
		{"today", "giao trong ngày", "GIAO TODAY"},
		{"tomorrow short", "giao mai", "GIAO TOMORROW"},
		{"tomorrow long", "giao ngày mai", "GIAO TOMORROW"},
		{"day after", "giao ngày mốt", "GIAO DAYAFTER"},
		{"two days after", "giao ngày kia", "GIAO TWODAYSAFTER"},
		{"morning keeps day signal", "giao sáng mai", "GIAO MORNING TOMORROW"},
		{"noon", "giao buổi trưa", "GIAO NOON"},
		{"afternoon", "giao chiều", "GIAO AFTERNOON"},
		{"evening", "giao buổi tối", "GIAO EVENING"},
		{"weekday full", "giao thứ 3", "GIAO NEXTWEEK_3"},
		{"weekday abbreviated", "giao t5", "GIAO NEXTWEEK_5"},
		{"sunday", "giao CN", "GIAO NEXTWEEK_8"},
		{"untouched text", "giao 214 Lý Thường Kiệt", "GIAO 214 LY THUONG KIET"},
		{"unaccented urgent phrase", "giao gap trong ngay", "GIAO URGENT TODAY"},
		{"arrival word is not evening", "giao tới 143 Trần Hưng Đạo", "GIAO TOI 143 TRAN HUNG DAO"},
		{"one is not day after", "gửi một thùng hàng", "GUI MOT THUNG HANG"},
		{"meet is not urgent", "hẹn gặp anh Tư", "HEN GAP ANH TU"},
		{"crossing over is not morning", "giao sang quận 4", "GIAO SANG QUAN 4"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Rewrite(c.in); got != c.want {
				t.Fatalf("Rewrite(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}
