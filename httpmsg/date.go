package httpmsg

import (
	"net/http"
	"time"
)

// ParseHTTPDate parses an HTTP-date in any of the three forms
// RFC 7231 §7.1.1.1 permits: RFC 1123 ("Mon, 02 Jan 2006 15:04:05 GMT"),
// RFC 850 ("Monday, 02-Jan-06 15:04:05 GMT", with the two-digit year
// resolved to the nearest century) and asctime
// ("Mon Jan  2 15:04:05 2006"). net/http.ParseTime recognizes all
// three forms, so we use it rather than re-deriving them by hand; it
// pins RFC 850 two-digit years to 1969–2068, so the year is then moved
// to whichever century puts it within 50 years of now.
func ParseHTTPDate(s string) (time.Time, error) {
	t, err := http.ParseTime(s)
	if err != nil {
		return t, err
	}
	if _, rfc850Err := time.Parse(time.RFC850, s); rfc850Err == nil {
		now := time.Now().Year()
		for t.Year()-now > 50 {
			t = t.AddDate(-100, 0, 0)
		}
		for now-t.Year() > 50 {
			t = t.AddDate(100, 0, 0)
		}
	}
	return t, nil
}

// FormatHTTPDate renders t in the canonical RFC 1123 form used for
// outbound Date/Last-Modified headers.
func FormatHTTPDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}
