package ffmpeg

import "testing"

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantLevel string
		wantMsg   string
	}{
		{
			name:      "plain level",
			line:      "[error] Connection refused",
			wantLevel: "error",
			wantMsg:   "Connection refused",
		},
		{
			name:      "component then level",
			line:      "[rtmp @ 0x55d3f0] [warning] Server error",
			wantLevel: "warning",
			wantMsg:   "[rtmp @ 0x55d3f0] Server error",
		},
		{
			name:      "no brackets defaults to info",
			line:      "frame= 150 fps= 30 dup=2",
			wantLevel: "info",
			wantMsg:   "frame= 150 fps= 30 dup=2",
		},
		{
			name:      "unknown bracket is not a level",
			line:      "[something] text",
			wantLevel: "info",
			wantMsg:   "[something] text",
		},
		{
			name:      "empty line",
			line:      "",
			wantLevel: "info",
			wantMsg:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, msg := ParseLogLevel(tt.line)
			if level != tt.wantLevel {
				t.Errorf("level = %q, want %q", level, tt.wantLevel)
			}
			if msg != tt.wantMsg {
				t.Errorf("msg = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}
