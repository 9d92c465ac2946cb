package mic

import "testing"

func TestPickDevice(t *testing.T) {
	devs := []Device{
		{Index: 0, Name: "HDMI Out", Channels: 0},
		{Index: 1, Name: "Built-in Microphone", Channels: 1, Default: true},
		{Index: 2, Name: "USB Headset Mic", Channels: 1},
	}
	cases := []struct {
		preferred string
		want      int
	}{
		{"usb", 2},
		{"", 1},
		{"nonexistent", 1},
		{"hdmi", 1}, // no input channels
	}
	for _, c := range cases {
		d, ok := pickDevice(devs, c.preferred)
		if !ok || d.Index != c.want {
			t.Fatalf("pickDevice(%q)=%+v,%v want index %d", c.preferred, d, ok, c.want)
		}
	}
	if _, ok := pickDevice(nil, ""); ok {
		t.Fatalf("expected no device")
	}
}
