package platform

import "testing"

func TestResolve(t *testing.T) {
	tc := map[string]Platform{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":    YouTube,
		"https://youtu.be/dQw4w9WgXcQ":                   YouTube,
		"https://m.youtube.com/watch?v=dQw4w9WgXcQ":      YouTube,
		"https://www.youtube-nocookie.com/embed/x":       YouTube,
		"https://YOUTUBE.com/watch?v=x":                  YouTube,
		"https://www.instagram.com/p/Cx1/":               Instagram,
		"https://instagr.am/p/Cx1/":                      Instagram,
		"https://www.tiktok.com/@user/video/123":         TikTok,
		"https://vm.tiktok.com/ZMx/":                     TikTok,
		"https://www.facebook.com/watch/?v=123":          Facebook,
		"https://fb.watch/abc/":                          Facebook,
		"https://fb.com/watch/?v=123":                    Facebook,
	}
	for rawurl, want := range tc {
		got, err := Resolve(rawurl)
		if err != nil {
			t.Errorf("Resolve(%q): unexpected error %s", rawurl, err)
			continue
		}
		if got != want {
			t.Errorf("Resolve(%q) = %s, want %s", rawurl, got, want)
		}
	}
}

func TestResolveUnsupported(t *testing.T) {
	for _, rawurl := range []string{
		"https://vimeo.com/123",
		"https://example.com/watch?v=x",
		// suffix matching must not be fooled by lookalike hosts
		"https://notyoutube.com/watch?v=x",
		"https://youtube.com.evil.net/watch?v=x",
	} {
		if _, err := Resolve(rawurl); err != ErrUnsupported {
			t.Errorf("Resolve(%q): expected ErrUnsupported, got %v", rawurl, err)
		}
	}
}

func TestResolveMalformed(t *testing.T) {
	for _, rawurl := range []string{
		"",
		"notaurl",
		"ftp://youtube.com/watch",
		"://youtube.com",
	} {
		if _, err := Resolve(rawurl); err != ErrMalformedURL {
			t.Errorf("Resolve(%q): expected ErrMalformedURL, got %v", rawurl, err)
		}
	}
}
