package sns

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		url  string
		want string // "" means nil
	}{
		{"https://www.tiktok.com/@user/video/123", "TikTok"},
		{"https://x.com/someone/status/1", "X"},
		{"https://twitter.com/someone", "X"},
		{"https://t.co/abc", "X"},
		{"https://www.instagram.com/p/xyz/", "Instagram"},
		{"https://youtu.be/dQw4w9WgXcQ", "YouTube"},
		{"https://m.youtube.com/watch?v=1", "YouTube"},
		{"https://GitHub.com/foo/bar", "GitHub"},
		{"https://note.com/author/n/n123", "Note"},
		{"https://medium.com/@a/b", "Medium"},
		{"https://qiita.com/items/1", "Qiita"},
		{"https://zenn.dev/articles/1", "Zenn"},
		{"https://example.com/", ""},
		{"", ""},
		{"not a url", ""},
		{"://broken", ""},
		{"/relative/path", ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := Classify(tt.url)
			if tt.want == "" {
				if got != nil {
					t.Errorf("Classify(%q) = %+v, want nil", tt.url, got)
				}
				return
			}
			if got == nil || got.Name != tt.want {
				t.Errorf("Classify(%q) = %+v, want %s", tt.url, got, tt.want)
			}
		})
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// Both TikTok and X domains appear in the host; table order decides.
	got := Classify("https://tiktok.com.x.com/")
	if got == nil || got.Name != "TikTok" {
		t.Errorf("got %+v, want TikTok", got)
	}
}

func TestClassifyReturnsCopy(t *testing.T) {
	a := Classify("https://github.com/")
	a.Name = "changed"
	b := Classify("https://github.com/")
	if b.Name != "GitHub" {
		t.Error("Classify leaked a pointer into the platform table")
	}
}

func TestLookup(t *testing.T) {
	if p := Lookup("Zenn"); p.Color != "#3EA8FF" {
		t.Errorf("Lookup(Zenn) = %+v", p)
	}
	if p := Lookup("Mastodon"); p != Other {
		t.Errorf("Lookup(unknown) = %+v, want Other", p)
	}
	if n := Names(); len(n) != 9 || n[0] != "TikTok" || n[8] != "Zenn" {
		t.Errorf("Names() = %v", n)
	}
}
