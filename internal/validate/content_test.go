package validate

import (
	"strings"
	"testing"
)

func TestContentUnknownKind(t *testing.T) {
	err := Content(map[string]any{"url": "https://example.com"}, "hologram")
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if !strings.Contains(err.Error(), "hologram") {
		t.Errorf("error should name the kind, got %q", err)
	}
}

func TestContentEmptyPayloadFailsEveryKind(t *testing.T) {
	// Every kind has at least one required field, so an empty payload
	// must never validate.
	for _, kind := range Kinds() {
		if err := Content(map[string]any{}, kind); err == nil {
			t.Errorf("kind %q accepted an empty payload", kind)
		}
	}
}

func TestContentPerKind(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		content map[string]any
		wantOK  bool
	}{
		{"url valid", "url", map[string]any{"url": "https://example.com"}, true},
		{"url unsafe", "url", map[string]any{"url": "http://127.0.0.1/"}, false},
		{"url javascript", "url", map[string]any{"url": "javascript:alert(1)"}, false},
		{"url whitespace only", "url", map[string]any{"url": "   "}, false},

		{"text valid", "text", map[string]any{"text": "hello"}, true},

		{"wifi ssid only", "wifi", map[string]any{"ssid": "HomeNet"}, true},
		{"wifi with wpa", "wifi", map[string]any{"ssid": "HomeNet", "encryption": "WPA", "password": "hunter22"}, true},
		{"wifi bad encryption", "wifi", map[string]any{"ssid": "HomeNet", "encryption": "WPA3"}, false},

		{"vcard first name", "vcard", map[string]any{"firstName": "Ada"}, true},
		{"vcard org only", "vcard", map[string]any{"organization": "Initech"}, true},
		{"vcard contact fields only", "vcard", map[string]any{"phone": "+1555", "email": "a@b.co"}, false},

		{"email valid", "email", map[string]any{"email": "user@example.com"}, true},
		{"email no at", "email", map[string]any{"email": "userexample.com"}, false},
		{"email no tld", "email", map[string]any{"email": "user@example"}, false},

		{"sms phone", "sms", map[string]any{"phone": "+15551234567", "message": "hi"}, true},
		{"whatsapp missing phone", "whatsapp", map[string]any{"message": "hi"}, false},

		{"instagram username", "instagram", map[string]any{"username": "ada"}, true},
		{"linkedin url", "linkedin", map[string]any{"url": "https://linkedin.com/in/ada"}, true},
		{"discord invite", "discord", map[string]any{"inviteUrl": "https://discord.gg/abc"}, true},
		{"discord unsafe invite", "discord", map[string]any{"inviteUrl": "http://10.0.0.1/x"}, false},

		{"youtube valid id", "youtube", map[string]any{"videoId": "dQw4w9WgXcQ"}, true},
		{"youtube short id", "youtube", map[string]any{"videoId": "short"}, false},

		{"spotify track", "spotify", map[string]any{"spotifyId": "4uLU6hMCjMI75M1A2tKUQC", "contentType": "track"}, true},
		{"spotify bad type", "spotify", map[string]any{"spotifyId": "4uLU6hMCjMI75M1A2tKUQC", "contentType": "mixtape"}, false},

		{"reddit user", "reddit", map[string]any{"contentType": "user", "username": "spez"}, true},
		{"reddit user missing name", "reddit", map[string]any{"contentType": "user"}, false},
		{"reddit subreddit", "reddit", map[string]any{"contentType": "subreddit", "subreddit": "golang"}, true},
		{"reddit subreddit missing", "reddit", map[string]any{"contentType": "subreddit"}, false},

		{"apps play store only", "apps", map[string]any{"playStoreUrl": "https://play.google.com/store/apps/details?id=x"}, true},
		{"apps none", "apps", map[string]any{"name": "MyApp"}, false},
		{"apps unsafe fallback", "apps", map[string]any{"fallbackUrl": "http://192.168.1.1/"}, false},

		{"google review", "google-review", map[string]any{"placeId": "ChIJN1t_tDeuEmsRUsoyG83frY4", "businessName": "Cafe"}, true},
		{"google review short place", "google-review", map[string]any{"placeId": "tooshort", "businessName": "Cafe"}, false},

		{"event valid", "event", map[string]any{"title": "Launch", "startDate": "2026-09-01", "endDate": "2026-09-02"}, true},
		{"event rfc3339", "event", map[string]any{"title": "Launch", "startDate": "2026-09-01T09:00:00Z", "endDate": "2026-09-01T17:00:00Z"}, true},
		{"event end before start", "event", map[string]any{"title": "Launch", "startDate": "2026-09-02", "endDate": "2026-09-01"}, false},
		{"event end equals start", "event", map[string]any{"title": "Launch", "startDate": "2026-09-01", "endDate": "2026-09-01"}, false},
		{"event bad date", "event", map[string]any{"title": "Launch", "startDate": "soon", "endDate": "2026-09-01"}, false},

		{"geo valid floats", "geo", map[string]any{"latitude": 40.7, "longitude": -74.0}, true},
		{"geo string coords", "geo", map[string]any{"latitude": "40.7", "longitude": "-74.0"}, true},
		{"geo lat out of range", "geo", map[string]any{"latitude": 91.0, "longitude": 0.0}, false},
		{"geo lng out of range", "geo", map[string]any{"latitude": 0.0, "longitude": 181.0}, false},
		{"geo missing lng", "geo", map[string]any{"latitude": 40.7}, false},

		{"pdf hosted url", "pdf", map[string]any{"pdfUrl": "https://example.com/doc.pdf"}, true},
		{"pdf uploaded file", "pdf", map[string]any{"fileUrl": "https://cdn.example.com/u/abc.pdf"}, true},
		{"pdf neither", "pdf", map[string]any{"title": "Doc"}, false},
		{"mp3 unsafe url", "mp3", map[string]any{"mp3Url": "http://169.254.169.254/x.mp3"}, false},
		{"video file url", "video", map[string]any{"fileUrl": "https://cdn.example.com/v.mp4"}, true},

		{"images list", "images", map[string]any{"images": []any{"https://example.com/a.png"}}, true},
		{"images empty list", "images", map[string]any{"images": []any{}}, false},
		{"links list", "links", map[string]any{"links": []any{map[string]any{"url": "https://example.com"}}}, true},
		{"social empty", "social", map[string]any{"links": []any{}}, false},

		{"menu", "menu", map[string]any{"restaurantName": "Chez Ada"}, true},
		{"business", "business", map[string]any{"businessName": "Initech"}, true},
		{"coupon", "coupon", map[string]any{"code": "SAVE10"}, true},
		{"feedback", "feedback", map[string]any{"title": "How was it?"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Content(tt.content, tt.kind)
			if tt.wantOK && err != nil {
				t.Errorf("Content(%s) = %v, want nil", tt.kind, err)
			}
			if !tt.wantOK && err == nil {
				t.Errorf("Content(%s) = nil, want error", tt.kind)
			}
		})
	}
}

func TestKindsSortedAndComplete(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != len(kindValidators) {
		t.Fatalf("Kinds() returned %d entries, want %d", len(kinds), len(kindValidators))
	}
	for i := 1; i < len(kinds); i++ {
		if kinds[i-1] >= kinds[i] {
			t.Fatalf("Kinds() not sorted: %q before %q", kinds[i-1], kinds[i])
		}
	}
}
