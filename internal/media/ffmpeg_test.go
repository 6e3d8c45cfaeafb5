package media

import (
	"encoding/json"
	"testing"
)

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 29.97002997002997},
		{"25", 25},
		{"0/0", 0},
		{"", 0},
		{"garbage", 0},
		{"30/0", 0},
	}

	for _, tt := range tests {
		if got := parseFrameRate(tt.raw); got != tt.want {
			t.Errorf("parseFrameRate(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestProbePayload_Parse(t *testing.T) {
	raw := `{
		"streams": [
			{"codec_type": "audio", "codec_name": "aac"},
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080,
			 "r_frame_rate": "30000/1001", "avg_frame_rate": "30000/1001", "duration": "10.5"}
		],
		"format": {"duration": "10.510000"}
	}`

	var payload probePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(payload.Streams) != 2 {
		t.Fatalf("got %d streams, want 2", len(payload.Streams))
	}
	v := payload.Streams[1]
	if v.Width != 1920 || v.Height != 1080 || v.CodecName != "h264" {
		t.Errorf("video stream = %+v", v)
	}
	if parseFrameRate(v.RFrameRate) < 29.9 {
		t.Errorf("frame rate parse failed: %v", parseFrameRate(v.RFrameRate))
	}
}

func TestFormatTimecode(t *testing.T) {
	cases := []struct {
		sec  float64
		want string
	}{
		{0, "00:00"},
		{-5, "00:00"},
		{9.7, "00:09"},
		{75, "01:15"},
		{3599, "59:59"},
		{3600, "01:00:00"},
		{3725, "01:02:05"},
	}
	for _, tc := range cases {
		if got := FormatTimecode(tc.sec); got != tc.want {
			t.Errorf("FormatTimecode(%v) = %q, want %q", tc.sec, got, tc.want)
		}
	}
}
