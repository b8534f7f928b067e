package format

import "testing"

func TestFormatClock(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    string
	}{
		{name: "zero", seconds: 0, want: "0:00"},
		{name: "fraction truncated", seconds: 9.99, want: "0:09"},
		{name: "one minute five", seconds: 65, want: "1:05"},
		{name: "past an hour", seconds: 75 * 60, want: "75:00"},
		{name: "negative", seconds: -3, want: "0:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatClock(tt.seconds); got != tt.want {
				t.Errorf("FormatClock(%v) = %q, want %q", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "42", want: 42},
		{in: "1:05", want: 65},
		{in: "1:02:03", want: 3723},
		{in: "12.5", want: 12.5},
		{in: "1:75", wantErr: true},
		{in: "a:00", wantErr: true},
		{in: "", wantErr: true},
		{in: "1:2:3:4", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClock(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClock(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(0.96); got != "96.0%" {
		t.Errorf("Percent(0.96) = %q", got)
	}
}
