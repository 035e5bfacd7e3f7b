package validate

import (
	"fmt"
)

// kindValidators is the closed tagged union of content kinds. Each entry
// owns the required-field contract for one kind; dispatch happens on the
// kind tag in Content.
var kindValidators = map[string]func(map[string]any) error{
	"url":           func(c map[string]any) error { return requiredSafeURL(c, "url") },
	"text":          func(c map[string]any) error { return required(c, "text") },
	"wifi":          validateWifi,
	"vcard":         validateVCard,
	"email":         validateEmail,
	"phone":         func(c map[string]any) error { return required(c, "phone") },
	"sms":           func(c map[string]any) error { return required(c, "phone") },
	"whatsapp":      func(c map[string]any) error { return required(c, "phone") },
	"facebook":      func(c map[string]any) error { return required(c, "username") },
	"instagram":     func(c map[string]any) error { return required(c, "username") },
	"linkedin":      func(c map[string]any) error { return requiredSafeURL(c, "url") },
	"x":             func(c map[string]any) error { return required(c, "username") },
	"tiktok":        func(c map[string]any) error { return required(c, "username") },
	"snapchat":      func(c map[string]any) error { return required(c, "username") },
	"threads":       func(c map[string]any) error { return required(c, "username") },
	"youtube":       validateYouTube,
	"pinterest":     func(c map[string]any) error { return required(c, "username") },
	"spotify":       validateSpotify,
	"reddit":        validateReddit,
	"twitch":        func(c map[string]any) error { return required(c, "username") },
	"discord":       func(c map[string]any) error { return requiredSafeURL(c, "inviteUrl") },
	"apps":          validateApps,
	"google-review": validateGoogleReview,
	"feedback":      func(c map[string]any) error { return required(c, "title") },
	"event":         validateEvent,
	"geo":           validateGeo,
	"pdf":           validateAltSource("pdfUrl", "fileUrl"),
	"images":        func(c map[string]any) error { return requiredList(c, "images") },
	"video":         validateAltSource("videoUrl", "fileUrl"),
	"mp3":           validateAltSource("mp3Url", "fileUrl"),
	"menu":          func(c map[string]any) error { return required(c, "restaurantName") },
	"business":      func(c map[string]any) error { return required(c, "businessName") },
	"links":         func(c map[string]any) error { return requiredList(c, "links") },
	"coupon":        func(c map[string]any) error { return required(c, "code") },
	"social":        func(c map[string]any) error { return requiredList(c, "links") },
}

func validateWifi(c map[string]any) error {
	if err := required(c, "ssid"); err != nil {
		return err
	}
	return optionalEnum(c, "encryption", "WPA", "WEP", "nopass")
}

func validateVCard(c map[string]any) error {
	return requiredOneOf(c, "firstName", "lastName", "organization")
}

func validateEmail(c map[string]any) error {
	s := str(c, "email")
	if s == "" {
		return fmt.Errorf("email is required")
	}
	if !emailRe.MatchString(s) {
		return fmt.Errorf("email must be a valid email address")
	}
	return nil
}

func validateYouTube(c map[string]any) error {
	s := str(c, "videoId")
	if s == "" {
		return fmt.Errorf("videoId is required")
	}
	if len(s) != 11 {
		return fmt.Errorf("videoId must be exactly 11 characters")
	}
	return nil
}

func validateSpotify(c map[string]any) error {
	if err := required(c, "spotifyId"); err != nil {
		return err
	}
	return requiredEnum(c, "contentType", "track", "album", "playlist", "artist", "show", "episode")
}

func validateReddit(c map[string]any) error {
	if err := requiredEnum(c, "contentType", "user", "subreddit"); err != nil {
		return err
	}
	if str(c, "contentType") == "user" {
		return required(c, "username")
	}
	return required(c, "subreddit")
}

func validateApps(c map[string]any) error {
	if err := requiredOneOf(c, "appStoreUrl", "playStoreUrl", "fallbackUrl"); err != nil {
		return err
	}
	for _, f := range []string{"appStoreUrl", "playStoreUrl", "fallbackUrl"} {
		if err := optionalSafeURL(c, f); err != nil {
			return err
		}
	}
	return nil
}

func validateGoogleReview(c map[string]any) error {
	placeID := str(c, "placeId")
	if placeID == "" {
		return fmt.Errorf("placeId is required")
	}
	if len(placeID) < 20 {
		return fmt.Errorf("placeId must be at least 20 characters")
	}
	return required(c, "businessName")
}

func validateEvent(c map[string]any) error {
	if err := required(c, "title"); err != nil {
		return err
	}
	startRaw := str(c, "startDate")
	if startRaw == "" {
		return fmt.Errorf("startDate is required")
	}
	endRaw := str(c, "endDate")
	if endRaw == "" {
		return fmt.Errorf("endDate is required")
	}
	start, ok := parseDate(startRaw)
	if !ok {
		return fmt.Errorf("startDate must be a valid date")
	}
	end, ok := parseDate(endRaw)
	if !ok {
		return fmt.Errorf("endDate must be a valid date")
	}
	if !end.After(start) {
		return fmt.Errorf("endDate must be after startDate")
	}
	return nil
}

func validateGeo(c map[string]any) error {
	lat, ok := number(c, "latitude")
	if !ok {
		return fmt.Errorf("latitude is required and must be numeric")
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	lng, ok := number(c, "longitude")
	if !ok {
		return fmt.Errorf("longitude is required and must be numeric")
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}

// validateAltSource builds a validator for kinds that accept either a
// hosted URL or an uploaded-file URL, requiring at least one.
func validateAltSource(urlField, fileField string) func(map[string]any) error {
	return func(c map[string]any) error {
		if err := requiredOneOf(c, urlField, fileField); err != nil {
			return err
		}
		if err := optionalSafeURL(c, urlField); err != nil {
			return err
		}
		return optionalSafeURL(c, fileField)
	}
}
