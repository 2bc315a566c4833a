package clips_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"scenecast/internal/clips"
)

func TestNormalizeMediaID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://player.vimeo.com/external/371433846.hd.mp4?s=abc", "https://player.vimeo.com/external/371433846"},
		{"https://player.vimeo.com/external/371433846.sd.mp4?s=def", "https://player.vimeo.com/external/371433846"},
		{"https://videos.pexels.com/video-files/3571264/3571264-hd_1920_1080_30fps.mp4", "https://videos.pexels.com/video-files/3571264/3571264"},
		{"https://videos.pexels.com/video-files/3571264/3571264-uhd_3840_2160_30fps.mp4", "https://videos.pexels.com/video-files/3571264/3571264"},
		{"https://cdn.example.com/hd/clip.mp4", "https://cdn.example.com/hd/clip.mp4"},
		{"https://player.vimeo.com/external/371433846.hd.mp4#t=3", "https://player.vimeo.com/external/371433846"},
		{"HTTPS://Videos.Pexels.com/video-files/7/7-HD_1920_1080_25fps.mp4", "HTTPS://Videos.Pexels.com/video-files/7/7"},
		{"  /tmp/window_0.00_5.00.mp4  ", "/tmp/window_0.00_5.00.mp4"},
	}
	for _, tc := range cases {
		if got := clips.NormalizeMediaID(tc.in); got != tc.want {
			t.Errorf("NormalizeMediaID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUsedMediaSetClaimRejectsOtherVariants(t *testing.T) {
	used := clips.NewUsedMediaSet()
	if !used.Claim("https://videos.pexels.com/video-files/1/1-hd_1920_1080_25fps.mp4") {
		t.Fatal("expected first claim to succeed")
	}
	if used.Claim("https://videos.pexels.com/video-files/1/1-sd_640_360_25fps.mp4") {
		t.Fatal("expected variant of claimed clip to be rejected")
	}
	if !used.Contains("https://videos.pexels.com/video-files/1/1-uhd_3840_2160_25fps.mp4") {
		t.Fatal("expected Contains to match any variant")
	}
	if used.Claim("") {
		t.Fatal("expected empty link to be rejected")
	}
	if used.Len() != 1 {
		t.Fatalf("expected one entry, got %d", used.Len())
	}
}

func TestUsedMediaSetConcurrentClaimsHaveOneWinner(t *testing.T) {
	used := clips.NewUsedMediaSet()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if used.Claim("https://player.vimeo.com/external/9.hd.mp4") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winning claim, got %d", wins.Load())
	}
}
