package ffmpeg

import (
	"strings"
	"testing"

	"github.com/aab18011/ffmpeg-v4l2-connector/internal/camera"
)

func TestStreamURL(t *testing.T) {
	cam := &camera.Camera{Address: "10.0.0.10", Username: "admin", Password: "secret"}

	tests := []struct {
		name    string
		variant camera.Variant
		want    string
	}{
		{
			name:    "main rides stream 0",
			variant: camera.Variant{Name: "main", StreamNum: 0},
			want:    "rtmp://10.0.0.10/bcs/channel0_main.bcs?channel=0&stream=0&user=admin&password=secret",
		},
		{
			name:    "sub rides stream 1",
			variant: camera.Variant{Name: "sub", StreamNum: 1},
			want:    "rtmp://10.0.0.10/bcs/channel0_sub.bcs?channel=0&stream=1&user=admin&password=secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StreamURL(cam, tt.variant); got != tt.want {
				t.Errorf("StreamURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStreamURLEscapesCredentials(t *testing.T) {
	cam := &camera.Camera{Address: "10.0.0.10", Username: "admin", Password: "p&ss w=rd"}
	got := StreamURL(cam, camera.Variant{Name: "main", StreamNum: 0})

	if strings.Contains(got, "p&ss") {
		t.Errorf("password not escaped: %q", got)
	}
	if !strings.Contains(got, "password=p%26ss+w%3Drd") {
		t.Errorf("unexpected escaping: %q", got)
	}
}

func TestBuildProbeCommand(t *testing.T) {
	got := BuildProbeCommand("rtmp://10.0.0.10/bcs/channel0_main.bcs?channel=0&stream=0&user=a&password=b")
	want := `ffmpeg -re -rtmp_live live -i "rtmp://10.0.0.10/bcs/channel0_main.bcs?channel=0&stream=0&user=a&password=b" -t 5 -f null -`
	if got != want {
		t.Errorf("BuildProbeCommand() = %q, want %q", got, want)
	}
}

func TestBuildRelayCommand(t *testing.T) {
	tests := []struct {
		name string
		fps  float64
		want string
	}{
		{
			name: "integral rate has no decimal",
			fps:  30,
			want: `ffmpeg -re -rtmp_live live -i "rtmp://u" -vf fps=fps=30 -vsync 1 -r 30 -f v4l2 /dev/video2`,
		},
		{
			name: "fractional rate kept",
			fps:  29.97,
			want: `ffmpeg -re -rtmp_live live -i "rtmp://u" -vf fps=fps=29.97 -vsync 1 -r 29.97 -f v4l2 /dev/video2`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildRelayCommand("rtmp://u", tt.fps, "/dev/video2"); got != tt.want {
				t.Errorf("BuildRelayCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []string
		wantErr bool
	}{
		{
			name:    "simple",
			command: "ffmpeg -re -f null -",
			want:    []string{"ffmpeg", "-re", "-f", "null", "-"},
		},
		{
			name:    "quoted url survives ampersands",
			command: `ffmpeg -i "rtmp://h/p?a=1&b=2" -f null -`,
			want:    []string{"ffmpeg", "-i", "rtmp://h/p?a=1&b=2", "-f", "null", "-"},
		},
		{
			name:    "single quotes",
			command: `sh -c 'sleep 1'`,
			want:    []string{"sh", "-c", "sleep 1"},
		},
		{
			name:    "unclosed quote",
			command: `ffmpeg -i "rtmp://h`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.command)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("arg %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
